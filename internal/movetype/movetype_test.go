package movetype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x2", NormalizeAddress("0x0002"))
	assert.Equal(t, "0x2", NormalizeAddress("2"))
	assert.Equal(t, "0x0", NormalizeAddress(""))
	assert.Equal(t, "0x0", NormalizeAddress("0x0000"))
	assert.Equal(t, "0xabc", NormalizeAddress("0X0ABC"))

	once := NormalizeAddress("0x00000000000000000000000000000000000000000000000000000000000000a1")
	assert.Equal(t, "0xa1", once)
	assert.Equal(t, once, NormalizeAddress(once))
	assert.True(t, SameAddress("0x02", "0x0000000000000000000000000000000000000000000000000000000000000002"))
}

func TestNormalizeEquivalentStructEncodings(t *testing.T) {
	tuple := Normalize(json.RawMessage(`{"Struct": [["0x2","coin","Coin",[]]]}`))
	cache := Normalize(json.RawMessage(`{"address":"0x2","module":"coin","name":"Coin","type_args":[]}`))
	lower := Normalize(json.RawMessage(`{"struct":{"address":"0x0002","module":"coin","name":"Coin"}}`))
	datatype := Normalize(json.RawMessage(`{"Datatype": ["0x2","coin","Coin",["key","store"]]}`))

	require.Equal(t, KindStruct, tuple.Kind)
	assert.True(t, Equal(tuple, cache))
	assert.True(t, Equal(tuple, lower))
	assert.True(t, Equal(tuple, datatype))
	assert.Equal(t, "0x2", tuple.Package)
}

func TestNormalizeGenericInstantiation(t *testing.T) {
	inst := Normalize(json.RawMessage(`{"DatatypeInstantiation": [["0x2","coin","Coin",null], [{"Datatype":["0x2","sui","SUI",null]}]]}`))
	require.Equal(t, KindStruct, inst.Kind)
	assert.True(t, Equal(GasCoin(), inst))

	rpc := Normalize(json.RawMessage(`{"Struct":{"address":"0x2","module":"coin","name":"Coin","typeArguments":[{"Struct":{"address":"0x2","module":"sui","name":"SUI","typeArguments":[]}}]}}`))
	assert.True(t, Equal(GasCoin(), rpc))

	params := Normalize(json.RawMessage(`{"struct":{"address":"0x2","module":"coin","name":"Coin","type_params":[{"struct":{"address":"0x2","module":"sui","name":"SUI","type_params":[]}}]}}`))
	assert.True(t, Equal(GasCoin(), params))
}

func TestNormalizePrimitivesVectorsReferences(t *testing.T) {
	assert.True(t, Equal(Primitive(U8), Normalize(json.RawMessage(`"U8"`))))
	assert.True(t, Equal(Primitive(Bool), Normalize(json.RawMessage(`"bool"`))))
	assert.True(t, Equal(Vector(Primitive(U64)), Normalize(json.RawMessage(`{"Vector":"U64"}`))))
	assert.True(t, Equal(Vector(Primitive(Address)), Normalize(json.RawMessage(`{"vector":"address"}`))))
	assert.True(t, Equal(TypeParameter(1), Normalize(json.RawMessage(`{"TypeParameter":1}`))))

	ref := Normalize(json.RawMessage(`{"MutableReference":{"Datatype":["0x2","tx_context","TxContext",null]}}`))
	require.Equal(t, KindReference, ref.Kind)
	assert.True(t, ref.Mutable)
	assert.True(t, IsTxContext(ref))

	imm := Normalize(json.RawMessage(`{"Reference":"U8"}`))
	assert.False(t, imm.Mutable)
}

func TestNormalizeUnknownShapes(t *testing.T) {
	for _, raw := range []string{``, `null`, `42`, `{"Foo":1}`, `{"TypeParameter":"x"}`, `{"Struct":["0x2"]}`, `"not a type<"`, `[1,2]`} {
		assert.True(t, Normalize(json.RawMessage(raw)).IsUnknown(), raw)
	}
}

func TestParseRoundTrip(t *testing.T) {
	nested := Struct("0x2", "dynamic_field", "Field",
		Struct("0x1", "string", "String"),
		Vector(Struct("0xabc", "pool", "Pool", GasCoin(), Primitive(U64))),
	)
	assert.True(t, Equal(nested, Parse(QualifiedString(nested))))

	parsed := Parse("0x2::coin::Coin<0x0000000000000000000000000000000000000000000000000000000000000002::sui::SUI>")
	assert.True(t, Equal(GasCoin(), parsed))

	short := Parse("coin::Coin<sui::SUI>")
	require.Equal(t, KindStruct, short.Kind)
	assert.Equal(t, "0x0", short.Package)
	assert.Equal(t, "coin::Coin<sui::SUI>", ShortString(short))

	assert.True(t, Equal(Reference(Vector(Primitive(U8)), true), Parse("&mut vector<u8>")))
	assert.True(t, Equal(TypeParameter(0), Parse("T0")))
	assert.True(t, Parse("a::b<c").IsUnknown())
	assert.True(t, Parse("a::b<c,>").IsUnknown())
	assert.True(t, Parse("vector<u8, u8>").IsUnknown())
}

func TestRenderForms(t *testing.T) {
	coin := GasCoin()
	assert.Equal(t, "coin::Coin<sui::SUI>", ShortString(coin))
	assert.Equal(t, "0x2::coin::Coin<0x2::sui::SUI>", QualifiedString(coin))
	assert.Equal(t, "u64", ShortString(Primitive(U64)))
	assert.Equal(t, "u64", QualifiedString(Primitive(U64)))
	assert.Equal(t, "vector<coin::Coin<sui::SUI>>", ShortString(Vector(coin)))
	assert.Equal(t, "&mut T0", ShortString(Reference(TypeParameter(0), true)))
	assert.Equal(t, "unknown", ShortString(Unknown()))

	text, err := coin.MarshalText()
	require.NoError(t, err)
	var back Type
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, Equal(coin, back))
}

func TestInstantiateAndOption(t *testing.T) {
	generic := Reference(Struct("0x2", "coin", "Coin", TypeParameter(0)), true)
	inst := Instantiate(generic, []Type{Struct("0x2", "sui", "SUI")})
	assert.True(t, Equal(Reference(GasCoin(), true), inst))
	assert.True(t, Instantiate(TypeParameter(3), nil).IsUnknown())

	opt := Struct("0x1", "option", "Option", Primitive(U8))
	inner, ok := OptionInner(opt)
	require.True(t, ok)
	assert.True(t, Equal(Primitive(U8), inner))

	_, ok = OptionInner(Struct("0x1", "option", "Option"))
	assert.False(t, ok)
}
