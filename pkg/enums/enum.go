// Package enums holds the closed string sets mirrored by Postgres enum types.
package enums

import (
	"fmt"
	"slices"
)

// values is the member list of one enum type.
type values[T ~string] []T

func (v values[T]) has(x T) bool {
	return slices.Contains(v, x)
}

func (v values[T]) parse(kind, raw string) (T, error) {
	if x := T(raw); v.has(x) {
		return x, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
