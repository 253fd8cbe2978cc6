package analysis

import (
	"fmt"
	"strings"
)

// Reasons attached to unavailable results.
const (
	ReasonMissingColumns      = "missing columns"
	ReasonNoValues            = "no values"
	ReasonNotNumeric          = "not numeric"
	ReasonInsufficientColumns = "insufficient columns"
	ReasonNoGeoColumns        = "no geo columns"
)

// Result is either a computed value or an explanation of why the value
// cannot be computed from the columns at hand. An unavailable result is a
// normal outcome, not a failure.
type Result[T any] struct {
	Available bool     `json:"available"`
	Value     T        `json:"value"`
	Missing   []string `json:"missing,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func available[T any](v T) Result[T] {
	return Result[T]{Available: true, Value: v}
}

func unavailable[T any](reason string, missing ...string) Result[T] {
	return Result[T]{Reason: reason, Missing: missing}
}

func missingColumns[T any](cols ...string) Result[T] {
	return unavailable[T](ReasonMissingColumns, cols...)
}

// Note renders why r is unavailable, prefixed with what was asked for.
func (r Result[T]) Note(what string) string {
	if r.Available {
		return ""
	}
	if len(r.Missing) > 0 {
		return fmt.Sprintf("%s unavailable: %s (%s)", what, r.Reason, strings.Join(r.Missing, ", "))
	}
	return fmt.Sprintf("%s unavailable: %s", what, r.Reason)
}
