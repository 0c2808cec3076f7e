package application

import (
	"errors"
	"fmt"
	"log/slog"

	"ptbscope/internal/artifact"
	"ptbscope/internal/catalog"
	"ptbscope/internal/domain"
	"ptbscope/internal/inference"
	"ptbscope/internal/movetype"
)

// AggregationError reports the artifact and field that prevented a replay
// from being aggregated. No partial transaction accompanies it.
type AggregationError struct {
	Artifact string
	Field    string
	Err      error
}

func (e *AggregationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("aggregate replay: %s artifact: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("aggregate replay: %s artifact: field %s: %v", e.Artifact, e.Field, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Aggregate decodes all five artifacts and builds the transaction. Decoding
// completes before any derivation starts.
func Aggregate(b artifact.Bundle) (*domain.Transaction, error) {
	decoded, err := b.Decode()
	if err != nil {
		return nil, aggregationError(err)
	}
	return Assemble(decoded), nil
}

func aggregationError(err error) error {
	var fe *artifact.FieldError
	if errors.As(err, &fe) {
		return &AggregationError{Artifact: fe.Artifact, Field: fe.Field, Err: fe.Err}
	}
	return &AggregationError{Err: err}
}

// Assemble derives the transaction from already decoded artifacts in a fixed
// order: cache, sources, effects statuses, gas ledger, signatures, and
// finally command inference.
func Assemble(d artifact.Decoded) *domain.Transaction {
	objects := newObjectSet()
	entries := make([]catalog.Entry, 0, len(d.Cache.Entries))
	for _, e := range d.Cache.Entries {
		rec := recordFromCache(e)
		objects.add(rec)
		entries = append(entries, catalog.Entry{
			ObjectID:   rec.ObjectID,
			Version:    rec.Version,
			Kind:       rec.Kind,
			Modules:    rec.Modules,
			ObjectType: rec.Type,
		})
	}
	cat := catalog.New(entries)
	slog.Debug("aggregate: cache", "entries", cat.Len())

	sources := newSourceIndex(d.Transaction)
	for i := range objects.records {
		objects.records[i].Source = sources.of(objects.records[i].ObjectID)
	}

	synthesized := applyEffects(objects, d.Effects, sources)
	slog.Debug("aggregate: effects", "version", d.Effects.Version, "changes", len(d.Effects.Changes), "synthesized", synthesized)

	gas := buildLedger(d.Transaction, d.Gas)

	signatures := alignSignatures(d.Transaction.Commands, d.Signatures.Commands)

	var gasCoinID string
	if len(gas.Payment) > 0 {
		gasCoinID = gas.Payment[0].ObjectID
	}
	commands := inference.New(cat, d.Transaction.Inputs, signatures, gasCoinID).Resolve(d.Transaction.Commands)
	slog.Debug("aggregate: commands", "count", len(commands))

	return domain.NewTransaction(domain.TransactionParams{
		Digest:          firstNonEmpty(d.Effects.Digest, d.Transaction.Digest),
		Sender:          d.Transaction.Sender,
		Epoch:           firstSet(d.Effects.Epoch, d.Transaction.Epoch, d.Cache.Epoch),
		Checkpoint:      firstSet(d.Transaction.Checkpoint, d.Cache.Checkpoint),
		ProtocolVersion: firstSet(d.Transaction.ProtocolVersion, d.Cache.ProtocolVersion),
		Status:          d.Effects.Status,
		EffectsVersion:  d.Effects.Version,
		Inputs:          d.Transaction.Inputs,
		Objects:         objects.records,
		Commands:        commands,
		Gas:             gas,
	})
}

func recordFromCache(e artifact.CacheEntry) domain.ObjectRecord {
	rec := domain.ObjectRecord{
		ObjectID: movetype.NormalizeAddress(e.ObjectID),
		Version:  e.Version,
		Kind:     domain.ObjectKindUnknown,
		Type:     e.ObjectType,
	}
	switch {
	case e.IsPackage:
		rec.Kind = domain.ObjectKindPackage
		rec.Modules = append([]string(nil), e.Modules...)
		rec.Type = movetype.Unknown()
	case !e.ObjectType.IsUnknown():
		rec.Kind = domain.ObjectKindMoveObject
	}
	return rec
}

type objectSet struct {
	records []domain.ObjectRecord
	byID    map[string]int
}

func newObjectSet() *objectSet {
	return &objectSet{byID: make(map[string]int)}
}

// add keeps the first position of an id; a repeated id overwrites in place.
func (s *objectSet) add(rec domain.ObjectRecord) {
	if i, ok := s.byID[rec.ObjectID]; ok {
		s.records[i] = rec
		return
	}
	s.byID[rec.ObjectID] = len(s.records)
	s.records = append(s.records, rec)
}

func (s *objectSet) get(id string) (*domain.ObjectRecord, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.records[i], true
}

type sourceIndex struct {
	gas    map[string]struct{}
	inputs map[string]struct{}
}

func newSourceIndex(tx artifact.TransactionData) sourceIndex {
	idx := sourceIndex{gas: make(map[string]struct{}), inputs: make(map[string]struct{})}
	for _, ref := range tx.GasPayment {
		idx.gas[movetype.NormalizeAddress(ref.ObjectID)] = struct{}{}
	}
	for _, in := range tx.Inputs {
		if in.IsObject() {
			idx.inputs[movetype.NormalizeAddress(in.ObjectID)] = struct{}{}
		}
	}
	return idx
}

func (s sourceIndex) of(id string) domain.ObjectSource {
	if _, ok := s.gas[id]; ok {
		return domain.SourceGas
	}
	if _, ok := s.inputs[id]; ok {
		return domain.SourceInput
	}
	return domain.SourceRuntime
}

// applyEffects derives statuses and synthesizes records for objects the
// cache did not carry. Records the effects never mention end up Accessed.
func applyEffects(objects *objectSet, effects artifact.Effects, sources sourceIndex) int {
	synthesized := 0
	for _, change := range effects.Changes {
		id := movetype.NormalizeAddress(change.ObjectID)
		rec, ok := objects.get(id)
		if !ok {
			source := sources.of(id)
			if change.Status == domain.StatusCreated {
				source = domain.SourceRuntime
			}
			objects.add(domain.ObjectRecord{
				ObjectID: id,
				Version:  change.Version,
				Kind:     domain.ObjectKindUnknown,
				Type:     movetype.Unknown(),
				Status:   change.Status,
				Source:   source,
			})
			synthesized++
			continue
		}
		if rec.Status == domain.StatusUnset || rec.Status == domain.StatusAccessed {
			rec.Status = change.Status
		}
		if rec.Version == nil {
			rec.Version = change.Version
		}
	}
	for i := range objects.records {
		if objects.records[i].Status == domain.StatusUnset {
			objects.records[i].Status = domain.StatusAccessed
		}
	}
	return synthesized
}

func buildLedger(tx artifact.TransactionData, report artifact.GasReport) domain.GasLedger {
	ledger := domain.GasLedger{
		Payment:         append([]domain.ObjectRef(nil), tx.GasPayment...),
		Owner:           tx.GasOwner,
		Price:           tx.GasPrice,
		Budget:          tx.GasBudget,
		ComputationCost: report.ComputationCost,
		StorageCost:     report.StorageCost,
		StorageRebate:   report.StorageRebate,
		RebateRate:      report.RebateRate,
	}
	if ledger.Owner == "" {
		ledger.Owner = tx.Sender
	}
	if ledger.Price == nil {
		ledger.Price = report.Price
	}
	if ledger.Budget == nil {
		ledger.Budget = report.Budget
	}
	ledger.PerObject = make([]domain.ObjectStorage, 0, len(report.PerObject))
	for _, entry := range report.PerObject {
		ledger.PerObject = append(ledger.PerObject, domain.ObjectStorage{
			ObjectID:         movetype.NormalizeAddress(entry.ObjectID),
			Size:             entry.Size,
			StorageCost:      entry.StorageCost,
			StorageRebate:    entry.StorageRebate,
			NonRefundableFee: domain.NonRefundableFee(entry.StorageRebate, report.RebateRate),
		})
	}
	return ledger
}

// alignSignatures returns one slot per command. Only MoveCall positions keep
// their signature; anything else supplied is dropped.
func alignSignatures(cmds []artifact.Command, supplied []*domain.Signature) []*domain.Signature {
	out := make([]*domain.Signature, len(cmds))
	for i, sig := range supplied {
		if sig == nil {
			continue
		}
		if i >= len(cmds) {
			slog.Debug("signature without command", "index", i, "commands", len(cmds))
			continue
		}
		if cmds[i].Kind != domain.CommandMoveCall {
			slog.Debug("signature ignored for non-MoveCall command", "index", i, "kind", cmds[i].Kind)
			continue
		}
		out[i] = sig
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*uint64) *uint64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
