package movetype

import (
	"strconv"
	"strings"
)

// Parse reads a rendered type string back into a tree. It accepts both the
// qualified form (0x2::coin::Coin<0x2::sui::SUI>) and the short form
// (coin::Coin<sui::SUI>); short forms carry package 0x0 since the address is
// not recoverable. Unparsable input yields Unknown.
func Parse(s string) Type {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown()
	}
	if rest, ok := strings.CutPrefix(s, "&mut "); ok {
		return Reference(Parse(rest), true)
	}
	if rest, ok := strings.CutPrefix(s, "&"); ok {
		return Reference(Parse(rest), false)
	}
	if IsPrimitiveName(s) {
		return Primitive(s)
	}
	if index, ok := typeParameterName(s); ok {
		return TypeParameter(index)
	}

	base, rawArgs, ok := splitGenerics(s)
	if !ok {
		return Unknown()
	}
	args := make([]Type, 0, len(rawArgs))
	for _, raw := range rawArgs {
		args = append(args, Parse(raw))
	}

	if strings.EqualFold(base, "vector") {
		if len(args) != 1 {
			return Unknown()
		}
		return Vector(args[0])
	}

	parts := strings.Split(base, "::")
	switch len(parts) {
	case 3:
		return Struct(parts[0], parts[1], parts[2], args...)
	case 2:
		return Struct("0x0", parts[0], parts[1], args...)
	default:
		return Unknown()
	}
}

func typeParameterName(s string) (uint16, bool) {
	if len(s) < 2 || s[0] != 'T' {
		return 0, false
	}
	index, err := strconv.ParseUint(s[1:], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(index), true
}

// splitGenerics separates "base<a, b<c, d>>" into "base" and ["a", "b<c, d>"],
// splitting only on commas at generic depth one.
func splitGenerics(s string) (string, []string, bool) {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		if strings.ContainsAny(s, ">,") {
			return "", nil, false
		}
		return s, nil, true
	}
	if !strings.HasSuffix(s, ">") {
		return "", nil, false
	}
	base := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]

	var (
		args  []string
		depth int
		start int
	)
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", nil, false
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false
	}
	if last := strings.TrimSpace(inner[start:]); last != "" {
		args = append(args, last)
	} else if len(args) > 0 {
		return "", nil, false
	}
	for _, arg := range args {
		if arg == "" {
			return "", nil, false
		}
	}
	return base, args, true
}
