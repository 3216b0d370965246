package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Move values arrive as loosely typed JSON: u64 as decimal strings,
// Option<T> as null, a bare value or {"vec": [...]}, IDs as strings or
// wrapped {"id": ...} references.

// extractUint converts common scalar encodings into uint64.
func extractUint(val any) (uint64, error) {
	switch v := val.(type) {
	case uint64:
		return v, nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return uint64(v), nil
	case float64:
		if v < 0 || v >= math.MaxUint64 || v != math.Trunc(v) {
			return 0, fmt.Errorf("not an unsigned integer: %v", v)
		}
		return uint64(v), nil
	case json.Number:
		return strconv.ParseUint(v.String(), 10, 64)
	case string:
		if v == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseUint(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", val)
	}
}

// uintOrZero reads an unsigned field, treating an absent value as zero.
func uintOrZero(fields map[string]any, key string) (uint64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, err := extractUint(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

// unwrapOption returns the inner value of a Move Option, or nil for none.
func unwrapOption(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	vec, ok := m["vec"].([]any)
	if !ok {
		return v
	}
	if len(vec) == 0 {
		return nil
	}
	return vec[0]
}

// optionalUint reads an Option<u64> field.
func optionalUint(fields map[string]any, key string) (*uint64, error) {
	v := unwrapOption(fields[key])
	if v == nil {
		return nil, nil
	}
	n, err := extractUint(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", key, err)
	}
	return &n, nil
}

// optionalID reads an ID or address field that may be wrapped in an Option.
func optionalID(fields map[string]any, key string) string {
	return extractID(unwrapOption(fields[key]))
}

// extractID accepts a raw string or a wrapped object reference such as
// {"id": "0x.."} or {"id": {"id": "0x.."}}.
func extractID(v any) string {
	for depth := 0; depth < 3; depth++ {
		switch t := v.(type) {
		case string:
			return t
		case map[string]any:
			if id, ok := t["id"]; ok {
				v = id
				continue
			}
			if inner, ok := t["fields"]; ok {
				v = inner
				continue
			}
			return ""
		default:
			return ""
		}
	}
	return ""
}

func boolField(fields map[string]any, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// moveStructFields unwraps a nested Move struct {"type": .., "fields": {..}}.
func moveStructFields(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	if inner, ok := m["fields"].(map[string]any); ok {
		if _, typed := m["type"]; typed {
			return inner
		}
	}
	return m
}
