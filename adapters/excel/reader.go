// Package excel loads tabular evaluation datasets from spreadsheet files
// into the in-memory table consumed by test adapters.
package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"aigovern/domain/asset"
	"aigovern/domain/dataset"
	"aigovern/ports"
)

// DatasetReader implements ports.DatasetResolver over .xlsx files. The
// dataset asset's Location is the file path; the first sheet's first row
// is the header.
type DatasetReader struct{}

// NewDatasetReader creates an excel-backed dataset resolver
func NewDatasetReader() *DatasetReader {
	return &DatasetReader{}
}

var _ ports.DatasetResolver = (*DatasetReader)(nil)

// Resolve reads the spreadsheet behind a dataset asset
func (r *DatasetReader) Resolve(a asset.DatasetAsset) (*dataset.Table, error) {
	return ReadFile(a.Location, a.Name)
}

// ReadFile loads the first sheet of an .xlsx file into a table. Columns
// whose values all parse as numbers become numeric; everything else is
// categorical. Blank cells in numeric columns read as zero.
func ReadFile(path, name string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("dataset file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset file %s has no data rows", path)
	}

	headers := rows[0]
	data := rows[1:]
	table := dataset.NewTable(name)

	for c, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		raw := make([]string, len(data))
		for i, row := range data {
			if c < len(row) {
				raw[i] = strings.TrimSpace(row[c])
			}
		}
		if numeric, ok := parseNumericColumn(raw); ok {
			if err := table.AddNumeric(header, numeric); err != nil {
				return nil, err
			}
		} else {
			if err := table.AddCategorical(header, raw); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// parseNumericColumn attempts to parse every non-blank cell as a float
func parseNumericColumn(raw []string) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, cell := range raw {
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
