package domain

import (
	"fmt"

	"ptbscope/internal/bcs"
	"ptbscope/internal/movetype"
)

type ArgumentKind int

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument is a raw command argument: the gas coin, an input by index, or
// the (nested) result of an earlier command.
type Argument struct {
	Kind   ArgumentKind
	Index  uint16
	Result uint16
}

func GasCoinArg() Argument { return Argument{Kind: ArgGasCoin} }

func InputArg(index uint16) Argument { return Argument{Kind: ArgInput, Index: index} }

func ResultArg(index uint16) Argument { return Argument{Kind: ArgResult, Index: index} }

func NestedResultArg(index, result uint16) Argument {
	return Argument{Kind: ArgNestedResult, Index: index, Result: result}
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgGasCoin:
		return "GasCoin"
	case ArgInput:
		return fmt.Sprintf("Input(%d)", a.Index)
	case ArgResult:
		return fmt.Sprintf("Result(%d)", a.Index)
	case ArgNestedResult:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Index, a.Result)
	default:
		return "Unknown"
	}
}

type InputKind string

const (
	InputPure       InputKind = "pure"
	InputImmOrOwned InputKind = "imm_or_owned"
	InputShared     InputKind = "shared"
	InputReceiving  InputKind = "receiving"
)

// Input is one entry of the programmable transaction's input list.
type Input struct {
	Kind                 InputKind
	Pure                 []byte
	ObjectID             string
	Version              *uint64
	Digest               string
	InitialSharedVersion *uint64
	Mutable              bool
}

func (i Input) IsObject() bool {
	return i.Kind != InputPure
}

// ArgumentShape distinguishes how an argument's type was obtained.
type ArgumentShape string

const (
	ShapeLiteral ArgumentShape = "literal"
	ShapeObject  ArgumentShape = "object"
	ShapeResult  ArgumentShape = "result"
)

// ResolvedArgument is an argument together with its inferred type. Value is
// set for literal arguments and ObjectID for object arguments when known.
type ResolvedArgument struct {
	Argument Argument
	Shape    ArgumentShape
	Type     movetype.Type
	Value    *bcs.Value
	ObjectID string
}
