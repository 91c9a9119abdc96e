// Package tabular reads raw CSV tables into columnar tables and writes dense
// auxiliary tables as CSV or Parquet.
package tabular

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// ReadOptions controls how raw values are normalised
type ReadOptions struct {
	// MissingTokens are field values treated as missing. An empty field is
	// always missing.
	MissingTokens []string
	// TrimSpace strips surrounding white space from header names and values
	// before the missing check.
	TrimSpace bool
	// Comma is the field delimiter, ',' when zero.
	Comma rune
}

// DefaultReadOptions uses "?" as the missing sentinel and trims white space
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		MissingTokens: []string{"?"},
		TrimSpace:     true,
		Comma:         ',',
	}
}

// ReadCSV reads a table with a header row. Every column is read as text;
// numeric interpretation is left to the transform that consumes it.
func ReadCSV(r io.Reader, opts ReadOptions) (*columnar.Table, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "input has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header")
	}

	names := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if opts.TrimSpace {
			h = strings.TrimSpace(h)
		}
		if _, dup := seen[h]; dup {
			return nil, errors.New(errors.ErrorTypeConflict, "duplicate column in header").WithDetail("column", h)
		}
		seen[h] = struct{}{}
		names[i] = h
	}

	missing := make(map[string]struct{}, len(opts.MissingTokens)+1)
	missing[""] = struct{}{}
	for _, tok := range opts.MissingTokens {
		missing[tok] = struct{}{}
	}

	cols := make([]*columnar.StringColumn, len(names))
	for i := range cols {
		cols[i] = columnar.NewStringColumn(1024)
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read row").WithDetail("row", rows)
		}
		for i, field := range record {
			if opts.TrimSpace {
				field = strings.TrimSpace(field)
			}
			if _, ok := missing[field]; ok {
				cols[i].AppendMissing()
			} else {
				cols[i].Append(field)
			}
		}
		rows++
	}

	table := columnar.NewTable(rows)
	for i, name := range names {
		if err := table.AddColumn(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// WriteCSV writes the named columns of t, one row per table row, in row order.
// Missing values are written as empty fields.
func WriteCSV(w io.Writer, t *columnar.Table, columns []string) error {
	cols, err := lookup(t, columns)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header")
	}
	record := make([]string, len(cols))
	for row := 0; row < t.Rows(); row++ {
		for i, col := range cols {
			record[i] = col.Text(row)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row").WithDetail("row", row)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush output")
	}
	return nil
}

func lookup(t *columnar.Table, columns []string) ([]columnar.Column, error) {
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no columns requested")
	}
	cols := make([]columnar.Column, len(columns))
	for i, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, errors.New(errors.ErrorTypeNotFound, "column not found").WithDetail("column", name)
		}
		cols[i] = col
	}
	return cols, nil
}
