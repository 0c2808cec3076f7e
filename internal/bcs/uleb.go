package bcs

// ReadULEB128 decodes an unsigned LEB128 varint from the start of buf and
// returns the value and the number of bytes consumed.
func ReadULEB128(buf []byte) (uint64, int, error) {
	var (
		value uint64
		shift uint
	)
	for i, b := range buf {
		if shift == 63 && b > 1 || shift > 63 {
			return 0, 0, ErrOverflow
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrTruncated
}

// AppendULEB128 appends the canonical encoding of n to dst.
func AppendULEB128(dst []byte, n uint64) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}
