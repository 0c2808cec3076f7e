package movetype

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Wrapper keys in match priority order. A single object is matched against
// the first key it carries; objects without any of them fall through to the
// bare cache shape and finally to Unknown.
var wrapperKeys = []string{
	"struct",
	"Struct",
	"Datatype",
	"DatatypeInstantiation",
	"vector",
	"Vector",
	"Reference",
	"MutableReference",
	"TypeParameter",
}

// Normalize folds one JSON-encoded type into the canonical tree. It never
// fails: malformed or unrecognized input yields Unknown.
func Normalize(raw json.RawMessage) Type {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Unknown()
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Unknown()
	}
	return NormalizeValue(v)
}

// NormalizeAll normalizes a list of encoded types in order.
func NormalizeAll(raws []json.RawMessage) []Type {
	if len(raws) == 0 {
		return nil
	}
	out := make([]Type, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw)
	}
	return out
}

// NormalizeValue normalizes a value already decoded by encoding/json.
func NormalizeValue(v any) Type {
	switch x := v.(type) {
	case string:
		return normalizeString(x)
	case map[string]any:
		return normalizeObject(x)
	default:
		return Unknown()
	}
}

func normalizeString(s string) Type {
	if IsPrimitiveName(s) {
		return Primitive(s)
	}
	return Parse(s)
}

func normalizeObject(m map[string]any) Type {
	for _, key := range wrapperKeys {
		inner, ok := m[key]
		if !ok {
			continue
		}
		switch key {
		case "struct", "Struct":
			return structFrom(inner, true)
		case "Datatype":
			return structFrom(inner, false)
		case "DatatypeInstantiation":
			return instantiationFrom(inner)
		case "vector", "Vector":
			return Vector(NormalizeValue(inner))
		case "Reference":
			return Reference(NormalizeValue(inner), false)
		case "MutableReference":
			return Reference(NormalizeValue(inner), true)
		case "TypeParameter":
			index, ok := indexFrom(inner)
			if !ok {
				return Unknown()
			}
			return TypeParameter(index)
		}
	}
	if hasStructFields(m) {
		return structFrom(m, true)
	}
	return Unknown()
}

func hasStructFields(m map[string]any) bool {
	_, a := m["address"]
	_, mod := m["module"]
	_, n := m["name"]
	return a && mod && n
}

// structFrom accepts the object form {address, module, name, type_args} and
// the tuple forms [address, module, name, args] and [[address, module, name, args]].
func structFrom(v any, withArgs bool) Type {
	switch x := v.(type) {
	case map[string]any:
		addr, _ := x["address"].(string)
		module, _ := x["module"].(string)
		name, _ := x["name"].(string)
		if addr == "" {
			return Unknown()
		}
		var args []Type
		if withArgs {
			args = normalizeList(firstPresent(x, "type_args", "type_params", "typeArguments", "type_arguments"))
		}
		return Struct(addr, module, name, args...)
	case []any:
		if len(x) == 1 {
			if nested, ok := x[0].([]any); ok {
				return structFrom(nested, withArgs)
			}
			if nested, ok := x[0].(map[string]any); ok {
				return structFrom(nested, withArgs)
			}
			return Unknown()
		}
		if len(x) < 3 {
			return Unknown()
		}
		addr, ok1 := x[0].(string)
		module, ok2 := x[1].(string)
		name, ok3 := x[2].(string)
		if !ok1 || !ok2 || !ok3 || addr == "" {
			return Unknown()
		}
		var args []Type
		if withArgs && len(x) > 3 {
			args = normalizeList(x[3])
		}
		return Struct(addr, module, name, args...)
	default:
		return Unknown()
	}
}

func instantiationFrom(v any) Type {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return Unknown()
	}
	base := structFrom(pair[0], false)
	if base.IsUnknown() {
		return Unknown()
	}
	return Struct(base.Package, base.Module, base.Name, normalizeList(pair[1])...)
}

func normalizeList(v any) []Type {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]Type, len(items))
	for i, item := range items {
		out[i] = NormalizeValue(item)
	}
	return out
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func indexFrom(v any) (uint16, bool) {
	var raw string
	switch x := v.(type) {
	case json.Number:
		raw = x.String()
	case float64:
		raw = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		raw = strings.TrimSpace(x)
	default:
		return 0, false
	}
	index, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(index), true
}
