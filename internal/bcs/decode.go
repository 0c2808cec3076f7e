// Package bcs decodes the little-endian fixed-width and ULEB128-prefixed
// encodings used by pure transaction arguments. It covers primitives,
// vectors, addresses, strings, object ids and options; nothing else.
package bcs

import (
	"encoding/hex"
	"errors"
	"unicode/utf8"

	"ptbscope/internal/movetype"

	"github.com/holiman/uint256"
)

var (
	ErrTruncated       = errors.New("bcs: buffer exhausted")
	ErrOverflow        = errors.New("bcs: uleb128 overflows 64 bits")
	ErrTrailingBytes   = errors.New("bcs: trailing bytes after value")
	ErrBadOption       = errors.New("bcs: invalid option discriminant")
	ErrInvalidUTF8     = errors.New("bcs: string is not valid utf-8")
	ErrUnsupportedType = errors.New("bcs: type cannot be decoded")
)

const addressLength = 32

// Decode reads exactly one value of type t from buf. References decode as
// their target type. An option whose inner type is unknown decodes its
// payload as raw bytes instead of failing.
func Decode(buf []byte, t movetype.Type) (Value, error) {
	r := &reader{buf: buf}
	v, err := r.decode(t)
	if err != nil {
		return Value{}, err
	}
	if r.remaining() > 0 {
		return Value{}, ErrTrailingBytes
	}
	return v, nil
}

// DecodePrimitive is Decode for a primitive type name such as "u64".
func DecodePrimitive(buf []byte, name string) (Value, error) {
	t := movetype.Primitive(name)
	if t.IsUnknown() {
		return Value{}, ErrUnsupportedType
	}
	return Decode(buf, t)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) uleb() (uint64, error) {
	n, size, err := ReadULEB128(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += size
	return n, nil
}

func (r *reader) decode(t movetype.Type) (Value, error) {
	switch t.Kind {
	case movetype.KindReference:
		return r.decode(t.Element())
	case movetype.KindPrimitive:
		return r.primitive(t)
	case movetype.KindVector:
		return r.vector(t)
	case movetype.KindStruct:
		return r.datatype(t)
	default:
		return Value{}, ErrUnsupportedType
	}
}

func (r *reader) primitive(t movetype.Type) (Value, error) {
	switch t.Name {
	case movetype.Bool:
		b, err := r.take(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBool, Type: t, Bool: b[0] != 0}, nil
	case movetype.U8:
		return r.uint(t, 1)
	case movetype.U16:
		return r.uint(t, 2)
	case movetype.U32:
		return r.uint(t, 4)
	case movetype.U64:
		return r.uint(t, 8)
	case movetype.U128:
		return r.uint(t, 16)
	case movetype.U256:
		return r.uint(t, 32)
	case movetype.Address, movetype.Signer:
		return r.address(t)
	default:
		return Value{}, ErrUnsupportedType
	}
}

func (r *reader) uint(t movetype.Type, width int) (Value, error) {
	b, err := r.take(width)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: ValueUint, Type: t, Uint: littleEndian(b)}, nil
}

func (r *reader) address(t movetype.Type) (Value, error) {
	b, err := r.take(addressLength)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: ValueAddress, Type: t, Address: "0x" + hex.EncodeToString(b)}, nil
}

func (r *reader) vector(t movetype.Type) (Value, error) {
	n, err := r.uleb()
	if err != nil {
		return Value{}, err
	}
	// every element occupies at least one byte
	if n > uint64(r.remaining()) {
		return Value{}, ErrTruncated
	}
	elemType := t.Element()
	elems := make([]Value, 0, int(n))
	for i := uint64(0); i < n; i++ {
		elem, err := r.decode(elemType)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, elem)
	}
	return Value{Kind: ValueVector, Type: t, Elems: elems}, nil
}

func (r *reader) datatype(t movetype.Type) (Value, error) {
	switch {
	case movetype.IsOption(t):
		return r.option(t)
	case movetype.IsString(t):
		n, err := r.uleb()
		if err != nil {
			return Value{}, err
		}
		if n > uint64(r.remaining()) {
			return Value{}, ErrTruncated
		}
		b, err := r.take(int(n))
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, ErrInvalidUTF8
		}
		return Value{Kind: ValueString, Type: t, Text: string(b)}, nil
	case movetype.IsObjectID(t):
		return r.address(t)
	default:
		return Value{}, ErrUnsupportedType
	}
}

func (r *reader) option(t movetype.Type) (Value, error) {
	tag, err := r.take(1)
	if err != nil {
		return Value{}, err
	}
	switch tag[0] {
	case 0:
		return Value{Kind: ValueOption, Type: t}, nil
	case 1:
		inner, ok := movetype.OptionInner(t)
		if !ok {
			rest, _ := r.take(r.remaining())
			raw := Raw(rest)
			return Value{Kind: ValueOption, Type: t, Some: &raw}, nil
		}
		v, err := r.decode(inner)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueOption, Type: t, Some: &v}, nil
	default:
		return Value{}, ErrBadOption
	}
}

func littleEndian(b []byte) *uint256.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(uint256.Int).SetBytes(be)
}
