package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/listings-eda/internal/table"
)

// naTokens are the cell spellings read as missing.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// buildTable turns a header and raw rows into typed columns. Short rows are
// padded with missing cells; wider rows are rejected.
func buildTable(header []string, rows [][]string) (*table.Table, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	names := mangleHeader(header)
	ncol := len(names)
	for i, r := range rows {
		if len(r) > ncol {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d", ErrTooManyFields, ncol, i+2, len(r))
		}
	}
	cols := make([]*table.Column, ncol)
	for j, name := range names {
		cols[j] = inferColumn(name, rows, j)
	}
	return table.New(cols...)
}

// inferColumn types column j as numeric when every present cell parses as a
// number. An entirely missing column is numeric. Non-finite numbers are
// kept out of the table so every derived value stays JSON encodable.
func inferColumn(name string, rows [][]string, j int) *table.Column {
	n := len(rows)
	valid := make([]bool, n)
	nums := make([]float64, n)
	numeric := true
	for i, r := range rows {
		if j >= len(r) || isNA(r[j]) {
			nums[i] = math.NaN()
			continue
		}
		valid[i] = true
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(r[j]), 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[i] = f
	}
	if numeric {
		for i, v := range nums {
			// NaN and the infinities ("inf", "-Infinity") are read as missing
			if math.IsNaN(v) || math.IsInf(v, 0) {
				valid[i] = false
			}
		}
		return table.NewNumber(name, nums, valid)
	}
	strs := make([]string, n)
	for i, r := range rows {
		if valid[i] {
			strs[i] = r[j]
		}
	}
	return table.NewText(name, strs, valid)
}

// mangleHeader names blank headers "Unnamed: <i>" and suffixes repeats
// with ".1", ".2", and so on.
func mangleHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for taken[name] {
			seen[h]++
			name = fmt.Sprintf("%s.%d", h, seen[h])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
