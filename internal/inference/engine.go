// Package inference resolves the argument and return types of a programmable
// transaction's commands in program order.
package inference

import (
	"log/slog"

	"ptbscope/internal/artifact"
	"ptbscope/internal/bcs"
	"ptbscope/internal/catalog"
	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"
)

// Engine holds the read-only context commands are resolved against.
type Engine struct {
	catalog    *catalog.Catalog
	inputs     []domain.Input
	signatures []*domain.Signature
	gasCoinID  string
}

// New builds an engine. signatures is positional, aligned with the command
// list; shorter lists and nil entries mean no signature. gasCoinID is the
// first gas payment object, or empty.
func New(c *catalog.Catalog, inputs []domain.Input, signatures []*domain.Signature, gasCoinID string) *Engine {
	return &Engine{catalog: c, inputs: inputs, signatures: signatures, gasCoinID: gasCoinID}
}

// pass is one left-to-right fold over the commands. results[i] holds the
// return types of command i once it has been resolved.
type pass struct {
	*Engine
	results [][]movetype.Type
}

// Resolve never fails: anything it cannot determine is left as Unknown.
func (e *Engine) Resolve(cmds []artifact.Command) []domain.Command {
	p := &pass{Engine: e, results: make([][]movetype.Type, 0, len(cmds))}
	out := make([]domain.Command, 0, len(cmds))
	for i, cmd := range cmds {
		resolved := p.command(i, cmd)
		p.results = append(p.results, resolved.Returns())
		out = append(out, resolved)
	}
	return out
}

func (e *Engine) signature(i int) *domain.Signature {
	if i < 0 || i >= len(e.signatures) {
		return nil
	}
	return e.signatures[i]
}

func (p *pass) command(i int, cmd artifact.Command) domain.Command {
	switch cmd.Kind {
	case domain.CommandMoveCall:
		return p.moveCall(i, cmd)
	case domain.CommandSplitCoins:
		return p.splitCoins(cmd)
	case domain.CommandMergeCoins:
		return p.mergeCoins(cmd)
	case domain.CommandMakeMoveVec:
		return p.makeMoveVec(cmd)
	case domain.CommandTransferObjects:
		return p.transferObjects(cmd)
	case domain.CommandPublish:
		return domain.Publish{
			Resolution:   domain.Resolution{Results: []movetype.Type{movetype.UpgradeCap()}},
			ModuleCount:  cmd.ModuleCount,
			Dependencies: cmd.Dependencies,
		}
	case domain.CommandUpgrade:
		return domain.Upgrade{
			Resolution:   domain.Resolution{Args: p.arguments(cmd.Args, nil)},
			ModuleCount:  cmd.ModuleCount,
			Dependencies: cmd.Dependencies,
			Package:      cmd.UpgradePackage,
		}
	default:
		// artifact decoding rejects unknown tags; keep the arguments visible anyway.
		slog.Debug("unhandled command kind", "index", i, "kind", cmd.Kind)
		return domain.TransferObjects{Resolution: domain.Resolution{Args: p.arguments(cmd.Args, nil)}}
	}
}

func (p *pass) moveCall(i int, cmd artifact.Command) domain.MoveCall {
	call := domain.MoveCall{
		Package:       cmd.Package,
		Module:        cmd.Module,
		Function:      cmd.Function,
		TypeArguments: cmd.TypeArguments,
	}
	sig := p.signature(i)
	if sig == nil {
		call.Args = p.arguments(cmd.Args, nil)
		return call
	}
	call.Signature = sig

	params := make([]movetype.Type, 0, len(sig.Parameters))
	for _, param := range sig.Parameters {
		params = append(params, movetype.Instantiate(param, cmd.TypeArguments))
	}
	if n := len(params); n > len(cmd.Args) && n > 0 && movetype.IsTxContext(params[n-1]) {
		params = params[:n-1]
	}
	call.Args = p.arguments(cmd.Args, params)

	if len(sig.Returns) > 0 {
		call.Results = make([]movetype.Type, 0, len(sig.Returns))
		for _, ret := range sig.Returns {
			call.Results = append(call.Results, movetype.Instantiate(ret, cmd.TypeArguments))
		}
	}
	return call
}

func (p *pass) splitCoins(cmd artifact.Command) domain.SplitCoins {
	if len(cmd.Args) == 0 {
		return domain.SplitCoins{CoinType: movetype.Unknown()}
	}
	coin := p.argument(cmd.Args[0], movetype.Unknown(), false)
	coinType := movetype.StripReference(coin.Type)

	args := []domain.ResolvedArgument{coin}
	u64 := movetype.Primitive(movetype.U64)
	results := make([]movetype.Type, 0, len(cmd.Args)-1)
	for _, amount := range cmd.Args[1:] {
		args = append(args, p.argument(amount, u64, false))
		results = append(results, coinType)
	}
	return domain.SplitCoins{
		Resolution: domain.Resolution{Args: args, Results: results},
		CoinType:   coinType,
	}
}

func (p *pass) mergeCoins(cmd artifact.Command) domain.MergeCoins {
	if len(cmd.Args) == 0 {
		return domain.MergeCoins{CoinType: movetype.Unknown()}
	}
	target := p.argument(cmd.Args[0], movetype.Unknown(), false)
	coinType := movetype.StripReference(target.Type)

	args := []domain.ResolvedArgument{target}
	for _, source := range cmd.Args[1:] {
		args = append(args, p.argument(source, coinType, false))
	}
	return domain.MergeCoins{
		Resolution: domain.Resolution{Args: args},
		CoinType:   coinType,
	}
}

func (p *pass) makeMoveVec(cmd artifact.Command) domain.MakeMoveVec {
	declared := movetype.Unknown()
	if cmd.ExplicitType != nil {
		declared = *cmd.ExplicitType
	}
	args := make([]domain.ResolvedArgument, 0, len(cmd.Args))
	for _, elem := range cmd.Args {
		args = append(args, p.argument(elem, declared, false))
	}

	elemType := declared
	if cmd.ExplicitType == nil {
		elemType = movetype.Unknown()
		if len(args) > 0 {
			elemType = movetype.StripReference(args[0].Type)
		}
	}
	return domain.MakeMoveVec{
		Resolution:   domain.Resolution{Args: args, Results: []movetype.Type{movetype.Vector(elemType)}},
		ExplicitType: cmd.ExplicitType,
		ElementType:  elemType,
	}
}

func (p *pass) transferObjects(cmd artifact.Command) domain.TransferObjects {
	if len(cmd.Args) == 0 {
		return domain.TransferObjects{}
	}
	last := len(cmd.Args) - 1
	args := make([]domain.ResolvedArgument, 0, len(cmd.Args))
	for _, obj := range cmd.Args[:last] {
		args = append(args, p.argument(obj, movetype.Unknown(), false))
	}
	args = append(args, p.argument(cmd.Args[last], movetype.Unknown(), true))
	return domain.TransferObjects{Resolution: domain.Resolution{Args: args}}
}

// arguments resolves args against an optional parameter list. Arguments
// beyond the list resolve by shape alone.
func (p *pass) arguments(args []domain.Argument, params []movetype.Type) []domain.ResolvedArgument {
	out := make([]domain.ResolvedArgument, 0, len(args))
	for i, arg := range args {
		declared := movetype.Unknown()
		if i < len(params) {
			declared = params[i]
		}
		out = append(out, p.argument(arg, declared, false))
	}
	return out
}

func (p *pass) argument(arg domain.Argument, declared movetype.Type, expectAddress bool) domain.ResolvedArgument {
	declared = movetype.StripReference(declared)
	switch arg.Kind {
	case domain.ArgGasCoin:
		return domain.ResolvedArgument{
			Argument: arg,
			Shape:    domain.ShapeObject,
			Type:     movetype.GasCoin(),
			ObjectID: p.gasCoinID,
		}
	case domain.ArgInput:
		return p.input(arg, declared, expectAddress)
	case domain.ArgResult, domain.ArgNestedResult:
		return domain.ResolvedArgument{
			Argument: arg,
			Shape:    domain.ShapeResult,
			Type:     orDeclared(p.result(arg), declared),
		}
	default:
		return domain.ResolvedArgument{Argument: arg, Type: movetype.Unknown()}
	}
}

func (p *pass) input(arg domain.Argument, declared movetype.Type, expectAddress bool) domain.ResolvedArgument {
	idx := int(arg.Index)
	if idx >= len(p.inputs) {
		slog.Debug("input index out of range", "argument", arg.String(), "inputs", len(p.inputs))
		return domain.ResolvedArgument{Argument: arg, Shape: domain.ShapeLiteral, Type: orDeclared(movetype.Unknown(), declared)}
	}
	in := p.inputs[idx]
	if in.IsObject() {
		typ, ok := p.catalog.TypeOf(in.ObjectID)
		if !ok {
			typ = declared
		}
		return domain.ResolvedArgument{Argument: arg, Shape: domain.ShapeObject, Type: typ, ObjectID: in.ObjectID}
	}

	var value bcs.Value
	if usable(declared) {
		value, _ = bcs.DecodeOrRaw(in.Pure, declared)
		value.Type = declared
	} else {
		value = bcs.Infer(in.Pure, expectAddress)
	}
	return domain.ResolvedArgument{Argument: arg, Shape: domain.ShapeLiteral, Type: value.Type, Value: &value}
}

// result follows a (nested) result reference into the table of earlier
// returns. References to the current or a later command are Unknown.
func (p *pass) result(arg domain.Argument) movetype.Type {
	cmd := int(arg.Index)
	if cmd >= len(p.results) {
		slog.Debug("result reference not yet available", "argument", arg.String(), "resolved", len(p.results))
		return movetype.Unknown()
	}
	returns := p.results[cmd]
	pos := 0
	if arg.Kind == domain.ArgNestedResult {
		pos = int(arg.Result)
	} else if len(returns) != 1 {
		return movetype.Unknown()
	}
	if pos >= len(returns) {
		return movetype.Unknown()
	}
	return returns[pos]
}

// usable reports whether t is concrete enough to drive a byte decode.
func usable(t movetype.Type) bool {
	switch t.Kind {
	case movetype.KindUnknown, movetype.KindTypeParameter:
		return false
	case movetype.KindVector:
		return usable(t.Element())
	default:
		return true
	}
}

func orDeclared(t, declared movetype.Type) movetype.Type {
	if t.IsUnknown() {
		return declared
	}
	return t
}
