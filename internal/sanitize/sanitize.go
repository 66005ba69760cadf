// Package sanitize strips query-operator payloads from caller input before it
// is used as a filter value.
package sanitize

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrEmptyValue = errors.New("sanitize: filter value is empty")
	ErrNotScalar  = errors.New("sanitize: filter value must be a scalar")
)

// Sanitizer is the stateless default cleanser handed to the query service.
type Sanitizer struct{}

// Default is the sanitizer used when none is injected.
var Default Sanitizer

func (Sanitizer) Scalar(value any) (any, error) {
	return Scalar(value)
}

// Scalar returns value unchanged when it is a plain scalar. Structured values
// (maps, slices, structs) are rejected so they can never reach the store as
// an operator document.
func Scalar(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, ErrEmptyValue
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	default:
		return nil, ErrNotScalar
	}
}

// IsOperatorKey reports whether key would be read as a query operator or a
// nested path by a document store.
func IsOperatorKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

// Object returns a copy of doc without operator keys, at any depth.
func Object(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}

	out := make(map[string]any, len(doc))
	for key, value := range doc {
		if IsOperatorKey(key) {
			continue
		}
		out[key] = cleanValue(value)
	}
	return out
}

func cleanValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Object(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cleanValue(item)
		}
		return out
	default:
		return v
	}
}

// Query drops parameters whose names carry operator markers, including the
// bracket form (ip[$ne]=...) some frameworks expand into nested objects.
func Query(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		if IsOperatorKey(key) || strings.ContainsAny(key, "[]") {
			continue
		}
		out[key] = append([]string(nil), vals...)
	}
	return out
}
