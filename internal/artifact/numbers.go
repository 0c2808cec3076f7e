package artifact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"ptbscope/internal/movetype"

	"github.com/holiman/uint256"
)

var null = []byte("null")

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, null)
}

// numberText accepts a JSON number or a JSON string holding digits.
func numberText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	text := string(raw)
	if text == "" {
		return "", errors.New("empty number")
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return "", errors.New("not an unsigned integer: " + text)
		}
	}
	return text, nil
}

// decodeAmount parses an unsigned integer of up to 256 bits. Absent values
// return nil without error.
func decodeAmount(raw json.RawMessage) (*uint256.Int, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	return uint256.FromDecimal(text)
}

func decodeUint64(raw json.RawMessage) (*uint64, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeObjectID(raw json.RawMessage) (string, bool) {
	s, ok := decodeString(raw)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return movetype.NormalizeAddress(s), true
}

// decodeBytes accepts a JSON array of byte values or a base64 string.
func decodeBytes(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(s)
	}
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.New("byte out of range")
		}
		out[i] = byte(v)
	}
	return out, nil
}

// decodeTuple splits a JSON array into its raw elements.
func decodeTuple(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// decodeTagged splits a single-key JSON object into its key and value.
func decodeTagged(raw json.RawMessage) (string, json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		return k, v, true
	}
	return "", nil, false
}
