package httpapi

import (
	"encoding/json"

	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"github.com/holiman/uint256"
)

type typeView struct {
	Type          string `json:"type"`
	TypeQualified string `json:"type_qualified"`
}

func newTypeView(t movetype.Type) typeView {
	return typeView{Type: movetype.ShortString(t), TypeQualified: movetype.QualifiedString(t)}
}

func newTypeViews(types []movetype.Type) []typeView {
	out := make([]typeView, len(types))
	for i, t := range types {
		out[i] = newTypeView(t)
	}
	return out
}

type transactionView struct {
	Digest          string        `json:"digest"`
	Sender          string        `json:"sender"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Epoch           *uint64       `json:"epoch,omitempty"`
	Checkpoint      *uint64       `json:"checkpoint,omitempty"`
	ProtocolVersion *uint64       `json:"protocol_version,omitempty"`
	EffectsVersion  string        `json:"effects_version"`
	Inputs          []inputView   `json:"inputs"`
	Objects         []objectView  `json:"objects"`
	Commands        []commandView `json:"commands"`
	Gas             gasView       `json:"gas"`
}

type inputView struct {
	Index                int     `json:"index"`
	Kind                 string  `json:"kind"`
	ObjectID             string  `json:"object_id,omitempty"`
	Version              *uint64 `json:"version,omitempty"`
	InitialSharedVersion *uint64 `json:"initial_shared_version,omitempty"`
	Mutable              bool    `json:"mutable,omitempty"`
	Bytes                int     `json:"bytes,omitempty"`
}

type objectView struct {
	ObjectID      string       `json:"object_id"`
	Version       *uint64      `json:"version,omitempty"`
	Kind          string       `json:"kind"`
	Type          string       `json:"type,omitempty"`
	TypeQualified string       `json:"type_qualified,omitempty"`
	Modules       []string     `json:"modules,omitempty"`
	Status        string       `json:"status"`
	Source        string       `json:"source"`
	Storage       *storageView `json:"storage,omitempty"`
}

type argumentView struct {
	Argument      string `json:"argument"`
	Shape         string `json:"shape"`
	Type          string `json:"type"`
	TypeQualified string `json:"type_qualified"`
	Value         string `json:"value,omitempty"`
	ObjectID      string `json:"object_id,omitempty"`
}

type commandView struct {
	Index         int            `json:"index"`
	Kind          string         `json:"kind"`
	Package       string         `json:"package,omitempty"`
	Module        string         `json:"module,omitempty"`
	Function      string         `json:"function,omitempty"`
	TypeArguments []typeView     `json:"type_arguments,omitempty"`
	HasSignature  *bool          `json:"has_signature,omitempty"`
	ElementType   *typeView      `json:"element_type,omitempty"`
	ModuleCount   int            `json:"module_count,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty"`
	Arguments     []argumentView `json:"arguments"`
	Returns       []typeView     `json:"returns"`
}

type storageView struct {
	ObjectID         string `json:"object_id,omitempty"`
	Size             uint64 `json:"size"`
	StorageCost      string `json:"storage_cost"`
	StorageRebate    string `json:"storage_rebate"`
	NonRefundableFee string `json:"non_refundable_fee"`
}

type refView struct {
	ObjectID string  `json:"object_id"`
	Version  *uint64 `json:"version,omitempty"`
	Digest   string  `json:"digest,omitempty"`
}

type gasView struct {
	Owner            string        `json:"owner"`
	Price            string        `json:"price,omitempty"`
	Budget           string        `json:"budget,omitempty"`
	ComputationCost  string        `json:"computation_cost"`
	StorageCost      string        `json:"storage_cost"`
	StorageRebate    string        `json:"storage_rebate"`
	RebateRate       uint64        `json:"rebate_rate"`
	NonRefundableFee string        `json:"non_refundable_fee"`
	NetCost          string        `json:"net_cost"`
	Payment          []refView     `json:"payment"`
	PerObject        []storageView `json:"per_object"`
}

func newTransactionView(tx *domain.Transaction) transactionView {
	status := tx.Status()
	v := transactionView{
		Digest:         tx.Digest(),
		Sender:         tx.Sender(),
		Success:        status.Success,
		Error:          status.Error,
		EffectsVersion: tx.EffectsVersion(),
		Inputs:         newInputViews(tx.Inputs()),
		Objects:        newObjectViews(tx),
		Commands:       newCommandViews(tx.Commands()),
		Gas:            newGasView(tx.Gas()),
	}
	if n, ok := tx.Epoch(); ok {
		v.Epoch = &n
	}
	if n, ok := tx.Checkpoint(); ok {
		v.Checkpoint = &n
	}
	if n, ok := tx.ProtocolVersion(); ok {
		v.ProtocolVersion = &n
	}
	return v
}

func newInputViews(inputs []domain.Input) []inputView {
	out := make([]inputView, len(inputs))
	for i, in := range inputs {
		out[i] = inputView{
			Index:                i,
			Kind:                 string(in.Kind),
			ObjectID:             in.ObjectID,
			Version:              in.Version,
			InitialSharedVersion: in.InitialSharedVersion,
			Mutable:              in.Mutable,
			Bytes:                len(in.Pure),
		}
	}
	return out
}

func newObjectViews(tx *domain.Transaction) []objectView {
	gas := tx.Gas()
	objects := tx.Objects()
	out := make([]objectView, len(objects))
	for i, obj := range objects {
		out[i] = newObjectView(obj, gas)
	}
	return out
}

func newObjectView(obj domain.ObjectRecord, gas domain.GasLedger) objectView {
	v := objectView{
		ObjectID: obj.ObjectID,
		Version:  obj.Version,
		Kind:     string(obj.Kind),
		Modules:  obj.Modules,
		Status:   string(obj.Status),
		Source:   string(obj.Source),
	}
	if !obj.IsPackage() && !obj.Type.IsUnknown() {
		v.Type = movetype.ShortString(obj.Type)
		v.TypeQualified = movetype.QualifiedString(obj.Type)
	}
	if entry, ok := gas.Storage(obj.ObjectID); ok {
		s := newStorageView(entry)
		s.ObjectID = ""
		v.Storage = &s
	}
	return v
}

func newCommandViews(cmds []domain.Command) []commandView {
	out := make([]commandView, len(cmds))
	for i, cmd := range cmds {
		out[i] = newCommandView(i, cmd)
	}
	return out
}

func newCommandView(index int, cmd domain.Command) commandView {
	v := commandView{
		Index:     index,
		Kind:      string(cmd.Kind()),
		Arguments: newArgumentViews(cmd.Arguments()),
		Returns:   newTypeViews(cmd.Returns()),
	}
	switch c := cmd.(type) {
	case domain.MoveCall:
		v.Package = c.Package
		v.Module = c.Module
		v.Function = c.Function
		if len(c.TypeArguments) > 0 {
			v.TypeArguments = newTypeViews(c.TypeArguments)
		}
		has := c.Signature != nil
		v.HasSignature = &has
	case domain.MakeMoveVec:
		elem := newTypeView(c.ElementType)
		v.ElementType = &elem
	case domain.Publish:
		v.ModuleCount = c.ModuleCount
		v.Dependencies = c.Dependencies
	case domain.Upgrade:
		v.Package = c.Package
		v.ModuleCount = c.ModuleCount
		v.Dependencies = c.Dependencies
	}
	return v
}

func newArgumentViews(args []domain.ResolvedArgument) []argumentView {
	out := make([]argumentView, len(args))
	for i, arg := range args {
		v := argumentView{
			Argument:      arg.Argument.String(),
			Shape:         string(arg.Shape),
			Type:          movetype.ShortString(arg.Type),
			TypeQualified: movetype.QualifiedString(arg.Type),
			ObjectID:      arg.ObjectID,
		}
		if arg.Value != nil {
			v.Value = arg.Value.String()
		}
		out[i] = v
	}
	return out
}

func newStorageView(entry domain.ObjectStorage) storageView {
	return storageView{
		ObjectID:         entry.ObjectID,
		Size:             entry.Size,
		StorageCost:      decimal(entry.StorageCost),
		StorageRebate:    decimal(entry.StorageRebate),
		NonRefundableFee: decimal(entry.NonRefundableFee),
	}
}

func newGasView(gas domain.GasLedger) gasView {
	v := gasView{
		Owner:            gas.Owner,
		ComputationCost:  decimal(gas.ComputationCost),
		StorageCost:      decimal(gas.StorageCost),
		StorageRebate:    decimal(gas.StorageRebate),
		RebateRate:       gas.RebateRate,
		NonRefundableFee: decimal(gas.TotalNonRefundableFee()),
		NetCost:          decimal(gas.NetCost()),
		Payment:          make([]refView, len(gas.Payment)),
		PerObject:        make([]storageView, len(gas.PerObject)),
	}
	if gas.Price != nil {
		v.Price = gas.Price.Dec()
	}
	if gas.Budget != nil {
		v.Budget = gas.Budget.Dec()
	}
	for i, ref := range gas.Payment {
		v.Payment[i] = refView{ObjectID: ref.ObjectID, Version: ref.Version, Digest: ref.Digest}
	}
	for i, entry := range gas.PerObject {
		v.PerObject[i] = newStorageView(entry)
	}
	return v
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// MarshalTransaction renders tx as the view served by GET /replays/{digest}.
func MarshalTransaction(tx *domain.Transaction) ([]byte, error) {
	return json.MarshalIndent(newTransactionView(tx), "", "  ")
}
