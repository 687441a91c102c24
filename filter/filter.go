// Package filter implements the list search used by every listing endpoint:
// a case-insensitive substring match over a few text fields, optionally
// narrowed by exact-match predicates.
package filter

import (
	"strings"
)

// Predicate is an exact-match condition an item must satisfy.
type Predicate[T any] func(T) bool

// Apply keeps the items whose fields contain term (ignoring case) and that
// satisfy every predicate. Input order is preserved and items is never
// modified; with an empty term and no predicates items is returned as is.
func Apply[T any](items []T, term string, fields func(T) []string, preds ...Predicate[T]) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" && len(preds) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if term != "" && !matchAny(fields(it), term) {
			continue
		}
		if !all(it, preds) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchAny(fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func all[T any](it T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if !p(it) {
			return false
		}
	}
	return true
}

// Equals builds a predicate comparing key(item) with want. An empty want
// or "all" yields nil, meaning no filtering.
func Equals[T any, K ~string](want string, key func(T) K) Predicate[T] {
	if want == "" || want == "all" {
		return nil
	}
	return func(it T) bool { return string(key(it)) == want }
}

// Compact drops nil predicates so optional filters can be passed inline.
func Compact[T any](preds ...Predicate[T]) []Predicate[T] {
	out := preds[:0:0]
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
