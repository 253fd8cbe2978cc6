// Package cleaner applies the fixed light-cleaning rules to a freshly
// loaded listings table.
package cleaner

import (
	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// DefaultFillValue replaces missing listing and host names.
const DefaultFillValue = "Unknown"

// Rules describes a cleaning pass. Columns named here but absent from the
// table are skipped.
type Rules struct {
	FillColumns []string
	FillValue   string
	DropColumns []string
}

// DefaultRules fills missing names and drops the sparse review columns.
func DefaultRules() Rules {
	return Rules{
		FillColumns: []string{schema.Name, schema.HostName},
		FillValue:   DefaultFillValue,
		DropColumns: []string{schema.LastReview, schema.ReviewsPerMonth},
	}
}

// Clean applies DefaultRules.
func Clean(raw *table.Table) *table.Table {
	return CleanWith(raw, DefaultRules())
}

// CleanWith fills nulls, then drops columns. Row count and every other
// column are preserved, and the input table is left untouched. Running it
// twice yields the same table as running it once.
func CleanWith(raw *table.Table, r Rules) *table.Table {
	out := raw
	for _, name := range r.FillColumns {
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		out = out.Replace(col.FillNull(r.FillValue))
	}
	return out.Drop(r.DropColumns...)
}
