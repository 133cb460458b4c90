package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Helpers for digging values out of the weakly typed payloads the problem
// generators emit. Every accessor tries a list of historical key aliases
// in order and tolerates JSON-decoded numbers, bools, and nested shapes.

func rawString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			return s, true
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		case int:
			return strconv.Itoa(s), true
		case bool:
			return strconv.FormatBool(s), true
		}
	}
	return "", false
}

func rawBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "t", "yes", "1":
				return true, true
			case "false", "f", "no", "0":
				return false, true
			}
		case float64:
			return b != 0, true
		}
	}
	return false, false
}

func rawMap(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

func rawList(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok {
			return v, true
		}
	}
	return nil, false
}

func rawStringSlice(m map[string]any, keys ...string) ([]string, bool) {
	list, ok := rawList(m, keys...)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, stringify(v))
	}
	return out, true
}

// toStringMap coerces a decoded JSON object into map[string]string.
func toStringMap(v any) (map[string]string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		out[k] = stringify(val)
	}
	return out, true
}

// toStringSlice coerces a decoded JSON array into []string.
func toStringSlice(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, stringify(item))
	}
	return out, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
