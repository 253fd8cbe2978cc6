// Package export writes filtered listing views to files and databases.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Run identifies one export of one view.
type Run struct {
	ID        uuid.UUID   `json:"id"`
	Source    string      `json:"source"`
	Filter    filter.Spec `json:"filter"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewRun stamps a fresh run id for an export of source under spec.
func NewRun(source string, spec filter.Spec) Run {
	return Run{ID: uuid.New(), Source: source, Filter: spec, CreatedAt: time.Now().UTC()}
}

// Sink is implemented by every export destination.
type Sink interface {
	Write(ctx context.Context, run Run, view *table.Table) (int, error)
	Close() error
}

// Format names a file export format.
type Format string

const (
	CSV      Format = "csv"
	XLSX     Format = "xlsx"
	Postgres Format = "postgres"
)

// ParseFormat validates a --to value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, XLSX, Postgres:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv|xlsx|postgres)", s)
}

// Ext returns the file extension for file formats.
func (f Format) Ext() string {
	switch f {
	case XLSX:
		return ".xlsx"
	case CSV:
		return ".csv"
	}
	return ""
}
