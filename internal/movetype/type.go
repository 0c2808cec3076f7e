// Package movetype holds the canonical Move type tree and the normalizers
// that fold every known JSON encoding of a type into it.
package movetype

import (
	"strconv"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindPrimitive
	KindVector
	KindReference
	KindTypeParameter
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindVector:
		return "vector"
	case KindReference:
		return "reference"
	case KindTypeParameter:
		return "type_parameter"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Primitive type names, lowercase as rendered.
const (
	Bool    = "bool"
	U8      = "u8"
	U16     = "u16"
	U32     = "u32"
	U64     = "u64"
	U128    = "u128"
	U256    = "u256"
	Address = "address"
	Signer  = "signer"
)

var primitives = map[string]struct{}{
	Bool: {}, U8: {}, U16: {}, U32: {}, U64: {}, U128: {}, U256: {}, Address: {}, Signer: {},
}

// IsPrimitiveName reports whether name (any case) is a primitive type name.
func IsPrimitiveName(name string) bool {
	_, ok := primitives[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Type is one node of a Move type tree. Which fields are meaningful depends
// on Kind: Name for primitives and structs, Elem for vectors and references,
// Mutable for references, Index for type parameters, Package/Module/TypeArgs
// for structs. Package is always a normalized address on structs.
type Type struct {
	Kind     Kind
	Name     string
	Package  string
	Module   string
	TypeArgs []Type
	Elem     *Type
	Mutable  bool
	Index    uint16
}

func Unknown() Type {
	return Type{Kind: KindUnknown}
}

// Primitive returns the primitive type for name, or Unknown if name is not
// one of the primitive names.
func Primitive(name string) Type {
	lower := strings.ToLower(strings.TrimSpace(name))
	if _, ok := primitives[lower]; !ok {
		return Unknown()
	}
	return Type{Kind: KindPrimitive, Name: lower}
}

func Vector(elem Type) Type {
	return Type{Kind: KindVector, Elem: &elem}
}

func Reference(inner Type, mutable bool) Type {
	return Type{Kind: KindReference, Elem: &inner, Mutable: mutable}
}

func TypeParameter(index uint16) Type {
	return Type{Kind: KindTypeParameter, Index: index}
}

// Struct builds a datatype node. An empty module or name yields Unknown.
func Struct(pkg, module, name string, typeArgs ...Type) Type {
	module = strings.TrimSpace(module)
	name = strings.TrimSpace(name)
	if module == "" || name == "" {
		return Unknown()
	}
	var args []Type
	if len(typeArgs) > 0 {
		args = make([]Type, len(typeArgs))
		copy(args, typeArgs)
	}
	return Type{
		Kind:     KindStruct,
		Package:  NormalizeAddress(pkg),
		Module:   module,
		Name:     name,
		TypeArgs: args,
	}
}

func (t Type) IsUnknown() bool {
	return t.Kind == KindUnknown
}

// Element returns the vector element or reference target, Unknown otherwise.
func (t Type) Element() Type {
	if t.Elem == nil {
		return Unknown()
	}
	return *t.Elem
}

// Equal compares two trees variant by variant, recursively.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUnknown:
		return true
	case KindPrimitive:
		return a.Name == b.Name
	case KindVector:
		return Equal(a.Element(), b.Element())
	case KindReference:
		return a.Mutable == b.Mutable && Equal(a.Element(), b.Element())
	case KindTypeParameter:
		return a.Index == b.Index
	case KindStruct:
		if a.Package != b.Package || a.Module != b.Module || a.Name != b.Name {
			return false
		}
		if len(a.TypeArgs) != len(b.TypeArgs) {
			return false
		}
		for i := range a.TypeArgs {
			if !Equal(a.TypeArgs[i], b.TypeArgs[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ShortString renders module::Name<Args> without the package address.
func ShortString(t Type) string {
	var b strings.Builder
	render(&b, t, false)
	return b.String()
}

// QualifiedString renders 0xPackage::module::Name<Args>.
func QualifiedString(t Type) string {
	var b strings.Builder
	render(&b, t, true)
	return b.String()
}

func (t Type) String() string {
	return QualifiedString(t)
}

// MarshalText encodes the qualified form so that Parse reads it back.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(QualifiedString(t)), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	*t = Parse(string(text))
	return nil
}

func render(b *strings.Builder, t Type, qualified bool) {
	switch t.Kind {
	case KindPrimitive:
		b.WriteString(t.Name)
	case KindVector:
		b.WriteString("vector<")
		render(b, t.Element(), qualified)
		b.WriteByte('>')
	case KindReference:
		if t.Mutable {
			b.WriteString("&mut ")
		} else {
			b.WriteByte('&')
		}
		render(b, t.Element(), qualified)
	case KindTypeParameter:
		b.WriteByte('T')
		b.WriteString(strconv.Itoa(int(t.Index)))
	case KindStruct:
		if qualified {
			b.WriteString(t.Package)
			b.WriteString("::")
		}
		b.WriteString(t.Module)
		b.WriteString("::")
		b.WriteString(t.Name)
		if len(t.TypeArgs) > 0 {
			b.WriteByte('<')
			for i, arg := range t.TypeArgs {
				if i > 0 {
					b.WriteString(", ")
				}
				render(b, arg, qualified)
			}
			b.WriteByte('>')
		}
	default:
		b.WriteString("unknown")
	}
}
