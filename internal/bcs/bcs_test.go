package bcs

import (
	"bytes"
	"testing"

	"ptbscope/internal/movetype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULEB128(t *testing.T) {
	n, size, err := ReadULEB128([]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, 1, size)

	n, size, err = ReadULEB128([]byte{0x80, 0x01})
	require.NoError(t, err)
	assert.Equal(t, uint64(128), n)
	assert.Equal(t, 2, size)

	for _, want := range []uint64{0, 1, 127, 128, 255, 300, 16383, 16384, 1 << 32, 1<<63 + 5, ^uint64(0)} {
		enc := AppendULEB128(nil, want)
		got, size, err := ReadULEB128(enc)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, len(enc), size)
	}

	_, _, err = ReadULEB128([]byte{0x80, 0x80})
	assert.ErrorIs(t, err, ErrTruncated)
	_, _, err = ReadULEB128(bytes.Repeat([]byte{0xff}, 11))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestFixedWidthDecode(t *testing.T) {
	v, err := DecodePrimitive([]byte{1, 0, 0, 0, 0, 0, 0, 0}, "u64")
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	wide := make([]byte, 16)
	wide[0] = 1
	v, err = DecodePrimitive(wide, "u128")
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	max := bytes.Repeat([]byte{0xff}, 32)
	v, err = DecodePrimitive(max, "u256")
	require.NoError(t, err)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", v.String())

	v, err = DecodePrimitive([]byte{0x34, 0x12}, "u16")
	require.NoError(t, err)
	assert.Equal(t, "4660", v.String())

	v, err = DecodePrimitive([]byte{0x02}, "bool")
	require.NoError(t, err)
	assert.True(t, v.Bool)

	_, err = DecodePrimitive(nil, "bool")
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = DecodePrimitive([]byte{1, 2, 3}, "u32")
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = DecodePrimitive([]byte{1, 2}, "u8")
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestAddressDecode(t *testing.T) {
	buf := make([]byte, 32)
	buf[31] = 0x2
	v, err := DecodePrimitive(buf, "address")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000002", v.Address)

	_, err = DecodePrimitive(buf[:31], "address")
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestVectorDecode(t *testing.T) {
	v, err := Decode([]byte{0x02, 0x03, 0x04}, movetype.Vector(movetype.Primitive(movetype.U8)))
	require.NoError(t, err)
	require.Equal(t, ValueVector, v.Kind)
	assert.Equal(t, "[3, 4]", v.String())

	v, err = Decode([]byte{0x00}, movetype.Vector(movetype.Primitive(movetype.U64)))
	require.NoError(t, err)
	assert.Empty(t, v.Elems)

	_, err = Decode([]byte{0x03, 0x01, 0x02}, movetype.Vector(movetype.Primitive(movetype.U8)))
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = Decode([]byte{0x01, 0x01, 0x00}, movetype.Vector(movetype.Primitive(movetype.U64)))
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = Decode([]byte{0x80}, movetype.Vector(movetype.Primitive(movetype.U8)))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestOptionDecode(t *testing.T) {
	optU8 := movetype.Struct("0x1", "option", "Option", movetype.Primitive(movetype.U8))

	v, err := Decode([]byte{0}, optU8)
	require.NoError(t, err)
	assert.True(t, v.IsNone())
	assert.Equal(t, "None", v.String())

	v, err = Decode([]byte{1, 5}, optU8)
	require.NoError(t, err)
	require.NotNil(t, v.Some)
	assert.Equal(t, "Some(5)", v.String())

	_, err = Decode([]byte{2, 5}, optU8)
	assert.ErrorIs(t, err, ErrBadOption)

	nested := movetype.Struct("0x1", "option", "Option", optU8)
	v, err = Decode([]byte{1, 1, 7}, nested)
	require.NoError(t, err)
	assert.Equal(t, "Some(Some(7))", v.String())

	untyped := movetype.Struct("0x1", "option", "Option")
	v, err = Decode([]byte{1, 0xde, 0xad}, untyped)
	require.NoError(t, err)
	require.NotNil(t, v.Some)
	assert.Equal(t, ValueRaw, v.Some.Kind)
	assert.Equal(t, "Some(0xdead)", v.String())
}

func TestStringAndIDDecode(t *testing.T) {
	str := movetype.Struct("0x1", "string", "String")
	v, err := Decode(append([]byte{5}, []byte("hello")...), str)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Text)

	_, err = Decode([]byte{2, 0xff, 0xfe}, str)
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	id := make([]byte, 32)
	id[0] = 0xab
	v, err = Decode(id, movetype.Reference(movetype.Struct("0x2", "object", "ID"), false))
	require.NoError(t, err)
	assert.Equal(t, ValueAddress, v.Kind)

	_, err = Decode([]byte{1}, movetype.Struct("0x2", "coin", "Coin"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestInfer(t *testing.T) {
	assert.Equal(t, ValueBool, Infer([]byte{1}, false).Kind)
	assert.Equal(t, ValueBool, Infer([]byte{0}, false).Kind)

	u8 := Infer([]byte{7}, false)
	assert.Equal(t, ValueUint, u8.Kind)
	assert.Equal(t, movetype.U8, u8.Type.Name)

	assert.Equal(t, movetype.U16, Infer([]byte{1, 0}, false).Type.Name)
	assert.Equal(t, movetype.U32, Infer([]byte{1, 0, 0, 0}, false).Type.Name)
	assert.Equal(t, movetype.U64, Infer(make([]byte, 8), false).Type.Name)
	assert.Equal(t, movetype.U128, Infer(make([]byte, 16), false).Type.Name)
	assert.Equal(t, movetype.U256, Infer(make([]byte, 32), false).Type.Name)
	assert.Equal(t, movetype.Address, Infer(make([]byte, 32), true).Type.Name)

	raw := Infer([]byte{1, 2, 3}, false)
	assert.Equal(t, ValueRaw, raw.Kind)
	assert.Equal(t, "0x010203", raw.String())
}

func TestDecodeOrRaw(t *testing.T) {
	v, ok := DecodeOrRaw([]byte{1, 2, 3}, movetype.Primitive(movetype.U64))
	assert.False(t, ok)
	assert.Equal(t, ValueRaw, v.Kind)
	assert.Equal(t, movetype.U64, v.Type.Name)

	v, ok = DecodeOrRaw([]byte{9}, movetype.Primitive(movetype.U8))
	assert.True(t, ok)
	assert.Equal(t, "9", v.String())
}
