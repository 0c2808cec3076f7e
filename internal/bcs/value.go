package bcs

import (
	"encoding/hex"
	"strconv"
	"strings"

	"ptbscope/internal/movetype"

	"github.com/holiman/uint256"
)

type ValueKind int

const (
	ValueRaw ValueKind = iota
	ValueBool
	ValueUint
	ValueAddress
	ValueString
	ValueVector
	ValueOption
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "bool"
	case ValueUint:
		return "uint"
	case ValueAddress:
		return "address"
	case ValueString:
		return "string"
	case ValueVector:
		return "vector"
	case ValueOption:
		return "option"
	default:
		return "raw"
	}
}

// Value is a decoded argument. Type is the type the bytes were read as and
// is Unknown for raw values. For options, Some is nil when the value is None.
type Value struct {
	Kind    ValueKind
	Type    movetype.Type
	Bool    bool
	Uint    *uint256.Int
	Address string
	Text    string
	Elems   []Value
	Some    *Value
	Raw     []byte
}

// Raw wraps bytes that could not be read as any known shape.
func Raw(buf []byte) Value {
	b := make([]byte, len(buf))
	copy(b, buf)
	return Value{Kind: ValueRaw, Type: movetype.Unknown(), Raw: b}
}

func (v Value) IsNone() bool {
	return v.Kind == ValueOption && v.Some == nil
}

// String renders the value as plain text: decimal integers, 0x-prefixed
// addresses and raw bytes, quoted strings, [a, b] vectors, None / Some(x).
func (v Value) String() string {
	switch v.Kind {
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueUint:
		if v.Uint == nil {
			return "0"
		}
		return v.Uint.Dec()
	case ValueAddress:
		return v.Address
	case ValueString:
		return strconv.Quote(v.Text)
	case ValueVector:
		parts := make([]string, len(v.Elems))
		for i, elem := range v.Elems {
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueOption:
		if v.Some == nil {
			return "None"
		}
		return "Some(" + v.Some.String() + ")"
	default:
		return "0x" + hex.EncodeToString(v.Raw)
	}
}

// MarshalText lets values travel as their display string in JSON views.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
