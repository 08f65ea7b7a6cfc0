package services

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Helpers for reading untrusted decoded JSON (map[string]any) without trusting its shape.

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$"))
		f, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asUint(value any) (uint, bool) {
	f, ok := asFloat(value)
	if !ok || f < 1 || f != float64(uint(f)) {
		return 0, false
	}
	return uint(f), true
}

func asStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// lookup walks nested objects by key; arrays are entered at their first element.
func lookup(value any, path ...string) any {
	current := value
	for _, key := range path {
		if list, ok := current.([]any); ok {
			if len(list) == 0 {
				return nil
			}
			current = list[0]
		}
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = object[key]
	}
	return current
}

// decodeObjectList accepts either {"<key>": [...]} or a bare array.
func decodeObjectList(text string, key string) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		inner, ok := v[key].([]any)
		if !ok {
			return nil, &json.UnmarshalTypeError{Value: "object", Field: key}
		}
		list = inner
	default:
		return nil, &json.UnmarshalTypeError{Value: "scalar", Field: key}
	}
	objects := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if object, ok := entry.(map[string]any); ok {
			objects = append(objects, object)
		}
	}
	return objects, nil
}
