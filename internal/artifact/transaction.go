package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"github.com/holiman/uint256"
)

// Command is a transaction command before type resolution. Args are in the
// variant's canonical order: SplitCoins coin then amounts, MergeCoins target
// then sources, TransferObjects objects then recipient, Upgrade the ticket.
type Command struct {
	Kind           domain.CommandKind
	Args           []domain.Argument
	Package        string
	Module         string
	Function       string
	TypeArguments  []movetype.Type
	ExplicitType   *movetype.Type
	ModuleCount    int
	Dependencies   []string
	UpgradePackage string
}

type TransactionData struct {
	Digest          string
	Sender          string
	Epoch           *uint64
	Checkpoint      *uint64
	ProtocolVersion *uint64
	GasPayment      []domain.ObjectRef
	GasOwner        string
	GasPrice        *uint256.Int
	GasBudget       *uint256.Int
	Inputs          []domain.Input
	Commands        []Command
}

type rawTransaction struct {
	Digest          string          `json:"digest"`
	Sender          *string         `json:"sender"`
	Epoch           json.RawMessage `json:"epoch"`
	Checkpoint      json.RawMessage `json:"checkpoint"`
	ProtocolVersion json.RawMessage `json:"protocol_version"`
	GasData         *rawGasData     `json:"gas_data"`
	Kind            json.RawMessage `json:"kind"`
}

type rawGasData struct {
	Payment *[]json.RawMessage `json:"payment"`
	Owner   string             `json:"owner"`
	Price   json.RawMessage    `json:"price"`
	Budget  json.RawMessage    `json:"budget"`
}

type rawProgrammable struct {
	Inputs   *[]json.RawMessage `json:"inputs"`
	Commands *[]json.RawMessage `json:"commands"`
}

const programmableField = "kind.ProgrammableTransaction"

// DecodeTransaction reads the transaction-structure artifact. The body may
// be wrapped in a {"V1": ...} envelope.
func DecodeTransaction(payload []byte) (TransactionData, error) {
	body, err := unwrapVersioned(payload, "sender")
	if err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "", err)
	}
	var raw rawTransaction
	if err := json.Unmarshal(body, &raw); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "", err)
	}
	if raw.Sender == nil || strings.TrimSpace(*raw.Sender) == "" {
		return TransactionData{}, missing(ArtifactTransaction, "sender")
	}
	if raw.GasData == nil {
		return TransactionData{}, missing(ArtifactTransaction, "gas_data")
	}
	if raw.GasData.Payment == nil {
		return TransactionData{}, missing(ArtifactTransaction, "gas_data.payment")
	}

	out := TransactionData{
		Digest:   raw.Digest,
		Sender:   movetype.NormalizeAddress(*raw.Sender),
		GasOwner: raw.GasData.Owner,
	}
	if out.GasOwner != "" {
		out.GasOwner = movetype.NormalizeAddress(out.GasOwner)
	}
	if out.Epoch, err = decodeUint64(raw.Epoch); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "epoch", err)
	}
	if out.Checkpoint, err = decodeUint64(raw.Checkpoint); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "checkpoint", err)
	}
	if out.ProtocolVersion, err = decodeUint64(raw.ProtocolVersion); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "protocol_version", err)
	}
	if out.GasPrice, err = decodeAmount(raw.GasData.Price); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "gas_data.price", err)
	}
	if out.GasBudget, err = decodeAmount(raw.GasData.Budget); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "gas_data.budget", err)
	}
	for i, item := range *raw.GasData.Payment {
		ref, ok := decodeObjectRef(item)
		if !ok {
			return TransactionData{}, wrongShape(ArtifactTransaction, fmt.Sprintf("gas_data.payment[%d]", i), nil)
		}
		out.GasPayment = append(out.GasPayment, ref)
	}

	if isAbsent(raw.Kind) {
		return TransactionData{}, missing(ArtifactTransaction, "kind")
	}
	var kind map[string]json.RawMessage
	if err := json.Unmarshal(raw.Kind, &kind); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, "kind", err)
	}
	ptbRaw, ok := kind["ProgrammableTransaction"]
	if !ok {
		return TransactionData{}, &FieldError{Artifact: ArtifactTransaction, Field: "kind", Err: ErrUnsupported}
	}
	var ptb rawProgrammable
	if err := json.Unmarshal(ptbRaw, &ptb); err != nil {
		return TransactionData{}, wrongShape(ArtifactTransaction, programmableField, err)
	}
	if ptb.Inputs == nil {
		return TransactionData{}, missing(ArtifactTransaction, programmableField+".inputs")
	}
	if ptb.Commands == nil {
		return TransactionData{}, missing(ArtifactTransaction, programmableField+".commands")
	}

	for i, item := range *ptb.Inputs {
		input, err := decodeInput(item)
		if err != nil {
			return TransactionData{}, wrongShape(ArtifactTransaction, fmt.Sprintf("%s.inputs[%d]", programmableField, i), err)
		}
		out.Inputs = append(out.Inputs, input)
	}
	for i, item := range *ptb.Commands {
		cmd, err := decodeCommand(item)
		if err != nil {
			return TransactionData{}, wrongShape(ArtifactTransaction, fmt.Sprintf("%s.commands[%d]", programmableField, i), err)
		}
		out.Commands = append(out.Commands, cmd)
	}
	return out, nil
}

// unwrapVersioned strips a single-key {"V1": body} envelope unless the
// payload already carries the marker field at top level.
func unwrapVersioned(payload []byte, marker string) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, err
	}
	if _, ok := top[marker]; ok {
		return payload, nil
	}
	if inner, ok := top["V1"]; ok && len(top) == 1 {
		return inner, nil
	}
	return payload, nil
}

// decodeObjectRef accepts [id, version, digest] and {"objectId"|"object_id", "version", "digest"}.
func decodeObjectRef(raw json.RawMessage) (domain.ObjectRef, bool) {
	if items, ok := decodeTuple(raw); ok {
		if len(items) < 1 {
			return domain.ObjectRef{}, false
		}
		id, ok := decodeObjectID(items[0])
		if !ok {
			return domain.ObjectRef{}, false
		}
		ref := domain.ObjectRef{ObjectID: id}
		if len(items) > 1 {
			version, err := decodeUint64(items[1])
			if err != nil {
				return domain.ObjectRef{}, false
			}
			ref.Version = version
		}
		if len(items) > 2 {
			ref.Digest, _ = decodeString(items[2])
		}
		return ref, true
	}
	var obj struct {
		ObjectID  json.RawMessage `json:"objectId"`
		ObjectID2 json.RawMessage `json:"object_id"`
		Version   json.RawMessage `json:"version"`
		Digest    string          `json:"digest"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.ObjectRef{}, false
	}
	idRaw := obj.ObjectID
	if isAbsent(idRaw) {
		idRaw = obj.ObjectID2
	}
	id, ok := decodeObjectID(idRaw)
	if !ok {
		return domain.ObjectRef{}, false
	}
	version, err := decodeUint64(obj.Version)
	if err != nil {
		return domain.ObjectRef{}, false
	}
	return domain.ObjectRef{ObjectID: id, Version: version, Digest: obj.Digest}, true
}

func decodeInput(raw json.RawMessage) (domain.Input, error) {
	tag, value, ok := decodeTagged(raw)
	if !ok {
		return domain.Input{}, ErrWrongShape
	}
	switch tag {
	case "Pure":
		b, err := decodeBytes(value)
		if err != nil {
			return domain.Input{}, err
		}
		return domain.Input{Kind: domain.InputPure, Pure: b}, nil
	case "Object":
		return decodeObjectInput(value)
	default:
		return domain.Input{}, fmt.Errorf("%w input %q", ErrUnsupported, tag)
	}
}

func decodeObjectInput(raw json.RawMessage) (domain.Input, error) {
	tag, value, ok := decodeTagged(raw)
	if !ok {
		return domain.Input{}, ErrWrongShape
	}
	switch tag {
	case "ImmOrOwnedObject", "Receiving":
		ref, ok := decodeObjectRef(value)
		if !ok {
			return domain.Input{}, ErrWrongShape
		}
		kind := domain.InputImmOrOwned
		if tag == "Receiving" {
			kind = domain.InputReceiving
		}
		return domain.Input{Kind: kind, ObjectID: ref.ObjectID, Version: ref.Version, Digest: ref.Digest}, nil
	case "SharedObject":
		var shared struct {
			ID                   json.RawMessage `json:"id"`
			InitialSharedVersion json.RawMessage `json:"initial_shared_version"`
			Mutable              bool            `json:"mutable"`
		}
		if err := json.Unmarshal(value, &shared); err != nil {
			return domain.Input{}, err
		}
		id, ok := decodeObjectID(shared.ID)
		if !ok {
			return domain.Input{}, ErrMissing
		}
		version, err := decodeUint64(shared.InitialSharedVersion)
		if err != nil {
			return domain.Input{}, err
		}
		return domain.Input{Kind: domain.InputShared, ObjectID: id, InitialSharedVersion: version, Mutable: shared.Mutable}, nil
	default:
		return domain.Input{}, fmt.Errorf("%w object input %q", ErrUnsupported, tag)
	}
}

func decodeArgument(raw json.RawMessage) (domain.Argument, error) {
	if s, ok := decodeString(raw); ok {
		if s == "GasCoin" {
			return domain.GasCoinArg(), nil
		}
		return domain.Argument{}, fmt.Errorf("%w argument %q", ErrUnsupported, s)
	}
	tag, value, ok := decodeTagged(raw)
	if !ok {
		return domain.Argument{}, ErrWrongShape
	}
	switch tag {
	case "Input", "Result":
		index, err := decodeIndex(value)
		if err != nil {
			return domain.Argument{}, err
		}
		if tag == "Input" {
			return domain.InputArg(index), nil
		}
		return domain.ResultArg(index), nil
	case "NestedResult":
		pair, ok := decodeTuple(value)
		if !ok || len(pair) != 2 {
			return domain.Argument{}, ErrWrongShape
		}
		index, err := decodeIndex(pair[0])
		if err != nil {
			return domain.Argument{}, err
		}
		result, err := decodeIndex(pair[1])
		if err != nil {
			return domain.Argument{}, err
		}
		return domain.NestedResultArg(index, result), nil
	default:
		return domain.Argument{}, fmt.Errorf("%w argument %q", ErrUnsupported, tag)
	}
}

func decodeIndex(raw json.RawMessage) (uint16, error) {
	v, err := decodeUint64(raw)
	if err != nil {
		return 0, err
	}
	if v == nil || *v > math.MaxUint16 {
		return 0, ErrWrongShape
	}
	return uint16(*v), nil
}

func decodeArguments(raw json.RawMessage) ([]domain.Argument, error) {
	items, ok := decodeTuple(raw)
	if !ok {
		return nil, ErrWrongShape
	}
	out := make([]domain.Argument, 0, len(items))
	for _, item := range items {
		arg, err := decodeArgument(item)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

type rawMoveCall struct {
	Package       string            `json:"package"`
	Module        string            `json:"module"`
	Function      string            `json:"function"`
	TypeArguments []json.RawMessage `json:"type_arguments"`
	Arguments     json.RawMessage   `json:"arguments"`
}

func decodeCommand(raw json.RawMessage) (Command, error) {
	tag, value, ok := decodeTagged(raw)
	if !ok {
		return Command{}, ErrWrongShape
	}
	kind := domain.CommandKind(tag)
	switch kind {
	case domain.CommandMoveCall:
		var call rawMoveCall
		if err := json.Unmarshal(value, &call); err != nil {
			return Command{}, err
		}
		if call.Package == "" || call.Module == "" || call.Function == "" {
			return Command{}, ErrMissing
		}
		var args []domain.Argument
		if !isAbsent(call.Arguments) {
			var err error
			if args, err = decodeArguments(call.Arguments); err != nil {
				return Command{}, err
			}
		}
		return Command{
			Kind:          kind,
			Args:          args,
			Package:       movetype.NormalizeAddress(call.Package),
			Module:        call.Module,
			Function:      call.Function,
			TypeArguments: movetype.NormalizeAll(call.TypeArguments),
		}, nil

	case domain.CommandSplitCoins, domain.CommandMergeCoins:
		parts, ok := decodeTuple(value)
		if !ok || len(parts) != 2 {
			return Command{}, ErrWrongShape
		}
		head, err := decodeArgument(parts[0])
		if err != nil {
			return Command{}, err
		}
		rest, err := decodeArguments(parts[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Args: append([]domain.Argument{head}, rest...)}, nil

	case domain.CommandMakeMoveVec:
		parts, ok := decodeTuple(value)
		if !ok || len(parts) != 2 {
			return Command{}, ErrWrongShape
		}
		elems, err := decodeArguments(parts[1])
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Kind: kind, Args: elems}
		if !isAbsent(parts[0]) {
			explicit := movetype.Normalize(parts[0])
			cmd.ExplicitType = &explicit
		}
		return cmd, nil

	case domain.CommandTransferObjects:
		parts, ok := decodeTuple(value)
		if !ok || len(parts) != 2 {
			return Command{}, ErrWrongShape
		}
		objects, err := decodeArguments(parts[0])
		if err != nil {
			return Command{}, err
		}
		recipient, err := decodeArgument(parts[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Args: append(objects, recipient)}, nil

	case domain.CommandPublish:
		parts, ok := decodeTuple(value)
		if !ok || len(parts) != 2 {
			return Command{}, ErrWrongShape
		}
		modules, _ := decodeTuple(parts[0])
		return Command{Kind: kind, ModuleCount: len(modules), Dependencies: decodeIDs(parts[1])}, nil

	case domain.CommandUpgrade:
		parts, ok := decodeTuple(value)
		if !ok || len(parts) != 4 {
			return Command{}, ErrWrongShape
		}
		modules, _ := decodeTuple(parts[0])
		pkg, ok := decodeObjectID(parts[2])
		if !ok {
			return Command{}, ErrMissing
		}
		ticket, err := decodeArgument(parts[3])
		if err != nil {
			return Command{}, err
		}
		return Command{
			Kind:           kind,
			Args:           []domain.Argument{ticket},
			ModuleCount:    len(modules),
			Dependencies:   decodeIDs(parts[1]),
			UpgradePackage: pkg,
		}, nil

	default:
		return Command{}, fmt.Errorf("%w command %q", ErrUnsupported, tag)
	}
}

func decodeIDs(raw json.RawMessage) []string {
	items, ok := decodeTuple(raw)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := decodeObjectID(item); ok {
			out = append(out, id)
		}
	}
	return out
}
