package bcs

import "ptbscope/internal/movetype"

// Infer guesses a primitive from the buffer length when no declared type is
// available: 1 byte is a bool when it is 0 or 1 and a u8 otherwise, 2/4/8/16
// bytes are u16/u32/u64/u128, and 32 bytes are an address when one is
// expected by context and a u256 otherwise. Other lengths stay raw.
func Infer(buf []byte, expectAddress bool) Value {
	var name string
	switch len(buf) {
	case 1:
		if buf[0] == 0 || buf[0] == 1 {
			name = movetype.Bool
		} else {
			name = movetype.U8
		}
	case 2:
		name = movetype.U16
	case 4:
		name = movetype.U32
	case 8:
		name = movetype.U64
	case 16:
		name = movetype.U128
	case 32:
		if expectAddress {
			name = movetype.Address
		} else {
			name = movetype.U256
		}
	default:
		return Raw(buf)
	}
	v, err := DecodePrimitive(buf, name)
	if err != nil {
		return Raw(buf)
	}
	return v
}

// DecodeOrRaw decodes buf as t and falls back to a raw value that keeps the
// declared type when the bytes do not fit it.
func DecodeOrRaw(buf []byte, t movetype.Type) (Value, bool) {
	v, err := Decode(buf, t)
	if err != nil {
		raw := Raw(buf)
		raw.Type = t
		return raw, false
	}
	return v, true
}
