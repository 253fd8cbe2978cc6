package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/listings-eda/internal/table"
	"github.com/KaramelBytes/listings-eda/internal/utils"
)

const utf8BOM = "\ufeff"

// CSVOptions tune CSV output.
type CSVOptions struct {
	// BOM prefixes the file with a UTF-8 byte order mark so spreadsheet
	// apps pick the right encoding.
	BOM   bool
	Comma rune
}

// WriteCSV writes the view with a header row. Missing cells are empty.
func WriteCSV(w io.Writer, view *table.Table, opts CSVOptions) error {
	if opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("csv: write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	if err := cw.Write(view.Names()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i := 0; i < view.Len(); i++ {
		if err := cw.Write(view.Row(i)); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DefaultSheet is the worksheet name used for XLSX exports.
const DefaultSheet = "listings"

// WriteXLSX writes the view to a single worksheet. Numeric columns are
// stored as numbers; missing cells are left blank.
func WriteXLSX(w io.Writer, view *table.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}
	header := make([]interface{}, view.Width())
	for j, n := range view.Names() {
		header[j] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}
	cols := view.Columns()
	row := make([]interface{}, len(cols))
	for i := 0; i < view.Len(); i++ {
		for j, c := range cols {
			row[j] = c.Value(i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// FileSink writes each run to a file at Path.
type FileSink struct {
	Path   string
	Format Format
	CSV    CSVOptions
	Sheet  string
}

// Write renders the view in memory and replaces Path atomically.
func (s *FileSink) Write(_ context.Context, _ Run, view *table.Table) (int, error) {
	var buf bytes.Buffer
	var err error
	switch s.Format {
	case XLSX:
		err = WriteXLSX(&buf, view, s.Sheet)
	case CSV, "":
		err = WriteCSV(&buf, view, s.CSV)
	default:
		err = fmt.Errorf("file sink cannot write %q", s.Format)
	}
	if err != nil {
		return 0, err
	}
	if err := utils.SafeWriteFile(s.Path, buf.Bytes()); err != nil {
		return 0, err
	}
	return view.Len(), nil
}

// Close is a no-op.
func (s *FileSink) Close() error { return nil }
