package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNoColumns is returned for empty content or a missing header row.
	ErrNoColumns = errors.New("no columns to parse")
	// ErrTooManyFields is returned when a data row is wider than the header.
	ErrTooManyFields = errors.New("too many fields")
)

// ReadError reports that a source could not be read or parsed. It carries
// the source identity so callers can tell the user which input failed.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
