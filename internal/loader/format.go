package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format reads one on-disk representation into a header and raw rows.
type Format interface {
	Name() string
	Detect(name string, head []byte) bool
	Read(data []byte, name string, opts Options) (header []string, rows [][]string, err error)
}

var registry []Format

// Register adds a format. Formats are tried in registration order; the
// last registered format acts as the fallback when nothing else matches.
func Register(f Format) {
	registry = append(registry, f)
}

func init() {
	Register(xlsxFormat{})
	Register(csvFormat{})
}

func detect(name string, data []byte) Format {
	head := data
	if len(head) > 8 {
		head = head[:8]
	}
	for _, f := range registry {
		if f.Detect(name, head) {
			return f
		}
	}
	return registry[len(registry)-1]
}

// formatHint names how an upload called name is parsed. Identical bytes
// read under a different format or delimiter are a different table.
func formatHint(name string, data []byte) string {
	f := detect(name, data)
	if _, ok := f.(csvFormat); ok && sniffDelimiter(name) == '\t' {
		return "tsv"
	}
	return f.Name()
}

type csvFormat struct{}

func (csvFormat) Name() string { return "csv" }

func (csvFormat) Detect(name string, _ []byte) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".tsv")
}

func (csvFormat) Read(data []byte, name string, opts Options) ([]string, [][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoColumns
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, append([]string(nil), rec...))
	}
	return header, rows, nil
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

type xlsxFormat struct{}

func (xlsxFormat) Name() string { return "xlsx" }

func (xlsxFormat) Detect(name string, head []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(head, []byte("PK\x03\x04"))
}

func (xlsxFormat) Read(data []byte, _ string, opts Options) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, ErrNoColumns
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil, ErrNoColumns
	}
	// Sheets carry no field count; columns with a blank header cell still
	// hold data, so widen the header to the widest row.
	header := rows[0]
	for _, r := range rows[1:] {
		for len(header) < len(r) {
			header = append(header, "")
		}
	}
	return header, rows[1:], nil
}
