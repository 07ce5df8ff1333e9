// Package normalization maps loosely written configuration strings onto
// enum values.
package normalization

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Normalizer maps case- and space-insensitive strings to values of T.
type Normalizer[T comparable] struct {
	values   map[string]T
	fallback T
	keys     []string
}

// NewNormalizer builds a Normalizer. Keys are normalized the same way as
// the input later passed to Normalize.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[clean(k)] = v
	}
	return &Normalizer[T]{
		values:   normalized,
		fallback: fallback,
		keys:     slices.Sorted(maps.Keys(normalized)),
	}
}

// Normalize returns the value for raw, or the fallback when raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[clean(raw)]; ok {
		return v
	}
	return n.fallback
}

// NormalizeWithError is Normalize that reports unknown input.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// ValidateEnum reports whether value is one of the known values.
func (n *Normalizer[T]) ValidateEnum(value T) bool {
	return slices.Contains(slices.Collect(maps.Values(n.values)), value)
}

// ValidKeys returns the accepted spellings in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.keys)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
