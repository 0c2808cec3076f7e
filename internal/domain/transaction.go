package domain

import (
	"ptbscope/internal/movetype"
)

// ExecutionStatus is the effects' outcome of the transaction.
type ExecutionStatus struct {
	Success bool
	Error   string
}

// TransactionParams carries everything the aggregate is built from.
type TransactionParams struct {
	Digest          string
	Sender          string
	Epoch           *uint64
	Checkpoint      *uint64
	ProtocolVersion *uint64
	Status          ExecutionStatus
	EffectsVersion  string
	Inputs          []Input
	Objects         []ObjectRecord
	Commands        []Command
	Gas             GasLedger
}

// Transaction is the aggregate root of one replayed transaction. It is
// immutable once built; accessors return copies of its collections.
type Transaction struct {
	p     TransactionParams
	index map[string]int
}

func NewTransaction(p TransactionParams) *Transaction {
	tx := &Transaction{
		p: TransactionParams{
			Digest:          p.Digest,
			Sender:          movetype.NormalizeAddress(p.Sender),
			Epoch:           p.Epoch,
			Checkpoint:      p.Checkpoint,
			ProtocolVersion: p.ProtocolVersion,
			Status:          p.Status,
			EffectsVersion:  p.EffectsVersion,
			Inputs:          append([]Input(nil), p.Inputs...),
			Objects:         append([]ObjectRecord(nil), p.Objects...),
			Commands:        append([]Command(nil), p.Commands...),
			Gas:             p.Gas,
		},
		index: make(map[string]int, len(p.Objects)),
	}
	for i, obj := range tx.p.Objects {
		tx.index[movetype.NormalizeAddress(obj.ObjectID)] = i
	}
	return tx
}

func (t *Transaction) Digest() string { return t.p.Digest }

func (t *Transaction) Sender() string { return t.p.Sender }

func (t *Transaction) Epoch() (uint64, bool) { return deref(t.p.Epoch) }

func (t *Transaction) Checkpoint() (uint64, bool) { return deref(t.p.Checkpoint) }

func (t *Transaction) ProtocolVersion() (uint64, bool) { return deref(t.p.ProtocolVersion) }

func (t *Transaction) Status() ExecutionStatus { return t.p.Status }

// EffectsVersion is the schema of the effects artifact, "V1" or "V2".
func (t *Transaction) EffectsVersion() string { return t.p.EffectsVersion }

func (t *Transaction) Inputs() []Input {
	return append([]Input(nil), t.p.Inputs...)
}

// Objects lists every touched object and package in ingestion order.
func (t *Transaction) Objects() []ObjectRecord {
	return append([]ObjectRecord(nil), t.p.Objects...)
}

// Packages lists only the package records.
func (t *Transaction) Packages() []ObjectRecord {
	var out []ObjectRecord
	for _, obj := range t.p.Objects {
		if obj.IsPackage() {
			out = append(out, obj)
		}
	}
	return out
}

func (t *Transaction) Object(id string) (ObjectRecord, bool) {
	i, ok := t.index[movetype.NormalizeAddress(id)]
	if !ok {
		return ObjectRecord{}, false
	}
	return t.p.Objects[i], true
}

// ObjectType returns the Move type of a non-package object when known.
func (t *Transaction) ObjectType(id string) (movetype.Type, bool) {
	obj, ok := t.Object(id)
	if !ok || obj.Kind != ObjectKindMoveObject || obj.Type.IsUnknown() {
		return movetype.Unknown(), false
	}
	return obj.Type, true
}

func (t *Transaction) Commands() []Command {
	return append([]Command(nil), t.p.Commands...)
}

func (t *Transaction) Command(i int) (Command, bool) {
	if i < 0 || i >= len(t.p.Commands) {
		return nil, false
	}
	return t.p.Commands[i], true
}

func (t *Transaction) Gas() GasLedger {
	g := t.p.Gas
	g.Payment = append([]ObjectRef(nil), g.Payment...)
	g.PerObject = append([]ObjectStorage(nil), g.PerObject...)
	return g
}

func deref(v *uint64) (uint64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
