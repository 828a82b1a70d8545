// Package normalization maps loosely written configuration strings onto typed values.
package normalization

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// Enum converts case- and whitespace-insensitive strings into values of T.
type Enum[T comparable] struct {
	name     string
	values   map[string]T
	fallback T
	keys     []string
}

// NewEnum creates an enum normalizer. name is used in validation errors.
func NewEnum[T comparable](name string, values map[string]T, fallback T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		key := clean(k)
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	sort.Strings(e.keys)
	return e
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize returns the value for raw, or the fallback when raw is unknown.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[clean(raw)]; ok {
		return v
	}
	return e.fallback
}

// Parse returns the value for raw. Empty input yields the fallback; unknown
// input yields a validation error listing the accepted keys.
func (e *Enum[T]) Parse(raw string) (T, error) {
	if clean(raw) == "" {
		return e.fallback, nil
	}
	if v, ok := e.values[clean(raw)]; ok {
		return v, nil
	}
	return e.fallback, errors.ValidationError("invalid "+e.name).
		WithContext("value", raw).
		WithContext("valid", strings.Join(e.keys, ",")).
		Build()
}

// Keys returns the accepted keys in sorted order.
func (e *Enum[T]) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}
