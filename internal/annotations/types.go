package annotations

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AttributeMap holds the parsed arguments of one annotation. Values are
// scalars (string, bool, int, float64, nil), ordered lists ([]interface{}),
// nested AttributeMaps (one level), or already-hydrated child annotations.
type AttributeMap map[string]interface{}

// Get returns the value stored under key, matched exactly
func (m AttributeMap) Get(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

// Lookup finds key exactly, then case-insensitively. It returns the key as
// stored in the map so callers can mark it consumed.
func (m AttributeMap) Lookup(key string) (string, interface{}, bool) {
	if v, ok := m[key]; ok {
		return key, v, true
	}
	for _, k := range m.Keys() {
		if strings.EqualFold(k, key) {
			return k, m[k], true
		}
	}
	return "", nil, false
}

// Keys returns the map keys in sorted order
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone copies the map, its lists and its nested maps
func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case AttributeMap:
		return tv.Clone()
	case []interface{}:
		items := make([]interface{}, len(tv))
		for i, item := range tv {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}

// ParameterType represents the type of a parameter
type ParameterType int

const (
	StringType ParameterType = iota
	BoolType
	IntType
	StringSliceType
	AnyType
)

// String returns the string representation of the parameter type
func (p ParameterType) String() string {
	switch p {
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case StringSliceType:
		return "[]string"
	case AnyType:
		return "any"
	default:
		return "unknown"
	}
}

// Convert coerces value to the parameter type
func (p ParameterType) Convert(value interface{}) (interface{}, error) {
	switch p {
	case StringType:
		return ConvertToString(value)
	case BoolType:
		return ConvertToBool(value)
	case IntType:
		return ConvertToInt(value)
	case StringSliceType:
		return ConvertToStringSlice(value)
	default:
		return value, nil
	}
}

// Type conversion utilities

// ConvertToString converts any value to a string
func ConvertToString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case AttributeMap, []interface{}:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
	return fmt.Sprintf("%v", value), nil
}

// ConvertToBool converts various types to boolean
func ConvertToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return parseBoolString(v)
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}

// ConvertToInt converts various types to integer
func ConvertToInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return parseIntString(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

// ConvertToStringSlice converts various types to string slice
func ConvertToStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case string:
		if v == "" {
			return []string{}, nil
		}
		if strings.Contains(v, ",") {
			return parseCommaSeparated(v), nil
		}
		return []string{v}, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			s, err := ConvertToString(item)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			result[i] = s
		}
		return result, nil
	case AttributeMap:
		return nil, fmt.Errorf("cannot convert %T to []string", value)
	default:
		return []string{fmt.Sprintf("%v", value)}, nil
	}
}

// As returns a converter that type-asserts a value, typically a hydrated child annotation
func As[V any]() func(interface{}) (V, error) {
	return func(value interface{}) (V, error) {
		v, ok := value.(V)
		if !ok {
			var zero V
			return zero, fmt.Errorf("expected %T, got %T", zero, value)
		}
		return v, nil
	}
}

// SliceOf returns a converter for a list whose items are all V. A single V
// is accepted as a one-element list.
func SliceOf[V any]() func(interface{}) ([]V, error) {
	one := As[V]()
	return func(value interface{}) ([]V, error) {
		items, ok := value.([]interface{})
		if !ok {
			v, err := one(value)
			if err != nil {
				return nil, err
			}
			return []V{v}, nil
		}
		out := make([]V, 0, len(items))
		for i, item := range items {
			v, err := one(item)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// Helper functions for type conversion

func parseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s", s)
	}
}

func parseIntString(s string) (int, error) {
	result, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer string: %s", s)
	}
	return result, nil
}

func parseCommaSeparated(s string) []string {
	var parts []string
	var current strings.Builder
	var quote rune

	for _, char := range s {
		switch {
		case quote != 0:
			if char == quote {
				quote = 0
			}
			current.WriteRune(char)
		case char == '"' || char == '\'':
			quote = char
			current.WriteRune(char)
		case char == ',':
			parts = append(parts, trimAndUnquote(current.String()))
			current.Reset()
		default:
			current.WriteRune(char)
		}
	}
	parts = append(parts, trimAndUnquote(current.String()))

	return parts
}

func trimAndUnquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
