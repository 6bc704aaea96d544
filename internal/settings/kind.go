package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a configuration item.
type Kind string

// Supported item kinds.
const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// ParseKind converts a `type` tag from the defaults document into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindString, "str":
		return KindString, nil
	case KindInt, "integer":
		return KindInt, nil
	case KindFloat, "number":
		return KindFloat, nil
	case KindBool, "boolean":
		return KindBool, nil
	case KindList:
		return KindList, nil
	case KindMap, "dict":
		return KindMap, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidDefaults, s)
	}
}

// intSuffixes is the fixed table of key suffixes treated as integers when an
// item has neither a type tag nor a typed default value.
var intSuffixes = []string{
	"_port",
	"_size",
	"_days",
	"_hours",
	"_notifications",
	"_interval",
	"_backups",
}

func kindFromSuffix(key string) Kind {
	name := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		name = key[i+1:]
	}
	for _, suffix := range intSuffixes {
		if strings.HasSuffix(name, suffix) {
			return KindInt
		}
	}
	return KindString
}

func inferKind(key string, v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	case nil:
		return kindFromSuffix(key)
	default:
		return KindString
	}
}

// conforms reports whether a default value already has the given kind.
func conforms(kind Kind, v any) bool {
	if v == nil {
		return true
	}
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		_, ok := toInt(v)
		return ok
	case KindFloat:
		_, ok := toFloat(v)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindList:
		_, ok := v.([]any)
		return ok
	case KindMap:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// normalize converts v to the representation used for the given kind.
// Strings are parsed the way form input is: integers and floats by strconv,
// booleans from "true"/"false", lists from comma separated text or a JSON
// array, maps from a JSON object.
func normalize(kind Kind, v any) (any, error) {
	if s, ok := v.(string); ok && kind != KindString {
		return parseInput(kind, s)
	}

	switch kind {
	case KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case bool, int, int64, float64, json.Number:
			return formatScalar(x), nil
		}
	case KindInt:
		if n, ok := toInt(v); ok {
			return n, nil
		}
	case KindFloat:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindList:
		switch x := v.(type) {
		case []any:
			return deepCopy(x), nil
		case []string:
			out := make([]any, len(x))
			for i, s := range x {
				out[i] = s
			}
			return out, nil
		}
	case KindMap:
		if m, ok := v.(map[string]any); ok {
			return deepCopy(m), nil
		}
	default:
		return deepCopy(v), nil
	}
	return nil, fmt.Errorf("%w: %T is not a %s", ErrInvalidValue, v, kind)
}

func parseInput(kind Kind, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch kind {
	case KindInt:
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	case KindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	case KindBool:
		switch strings.ToLower(s) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case KindList:
		if strings.HasPrefix(s, "[") {
			if v, err := decodeJSON(s); err == nil {
				if list, ok := v.([]any); ok {
					return list, nil
				}
			}
			break
		}
		list := make([]any, 0)
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return list, nil
	case KindMap:
		if v, err := decodeJSON(s); err == nil {
			if m, ok := v.(map[string]any); ok {
				return m, nil
			}
		}
	default:
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %q is not a %s", ErrInvalidValue, raw, kind)
}

// nullText is the override text for a nil value.
const nullText = "null"

// encodeValue renders a value as override text: lists and maps as JSON,
// everything else in its plain string form.
func encodeValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return nullText, nil
	case string, bool, int, int64, float64, json.Number:
		if f, ok := x.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return "", fmt.Errorf("%w: %v", ErrSerialization, f)
		}
		return formatScalar(x), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(b), nil
}

// decodeValue turns override text back into a typed value. Text that does
// not parse as the expected kind is decoded loosely instead of being lost.
// "null" is nil for every kind.
func decodeValue(kind Kind, text string) any {
	if text == nullText {
		return nil
	}
	switch kind {
	case KindString:
		return text
	case KindInt, KindFloat, KindBool:
		if v, err := parseInput(kind, text); err == nil {
			return v
		}
	case KindList:
		if v, err := decodeJSON(text); err == nil {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	case KindMap:
		if v, err := decodeJSON(text); err == nil {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	if v, err := decodeJSON(text); err == nil {
		return v
	}
	return text
}

func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return fromJSON(v), nil
}

// fromJSON replaces json.Number values with int or float64.
func fromJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = fromJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = fromJSON(x[k])
		}
		return x
	}
	return v
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case json.Number:
		return x.String()
	}
	return fmt.Sprint(v)
}

// displayValue renders a value for the settings page. Lists are joined with
// ", " and maps are shown as JSON.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSpace(buf.String())
	}
	return formatScalar(v)
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<53 {
			return int(x), true
		}
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return n, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), true
	}
	return 0, false
}
