package movetype

import "strings"

// NormalizeAddress strips an optional 0x prefix and leading zero nibbles,
// lowercases the remainder and re-adds the prefix. "0x0002", "2" and "0x2"
// all normalize to "0x2"; the empty string normalizes to "0x0".
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	s = strings.TrimLeft(strings.ToLower(s), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// SameAddress compares two addresses after normalization.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
