// Package csc reads and writes the compressed sparse column text stream used
// for model matrices.
//
// A stream declares the row count up front, then holds one block per column
// listing the 0-based row indices of the non-zero entries and their values,
// and ends with the number of columns written:
//
//	#csc start nrow=4
//	column AGE
//	0 2 3
//	-1.2 0.5 0.7
//	#csc end ncol=1
//
// Values use the %g format with 6 significant digits. NaN and infinities are
// non-zero and are written as nan, inf and -inf.
package csc

import (
	"bufio"
	"io"

	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/strings"
)

const (
	startPrefix  = "#csc start nrow="
	endPrefix    = "#csc end ncol="
	columnPrefix = "column "
)

// Column is one sparse column: the non-zero entries of a dense vector
type Column struct {
	Name   string
	Index  []int
	Values []float64
}

// Sparse extracts the non-zero entries of values
func Sparse(name string, values []float64) Column {
	col := Column{Name: name}
	for i, v := range values {
		if v != 0 {
			col.Index = append(col.Index, i)
			col.Values = append(col.Values, v)
		}
	}
	return col
}

// Dense expands the column into a vector of length rows
func (c Column) Dense(rows int) []float64 {
	out := make([]float64, rows)
	for k, i := range c.Index {
		out[i] = c.Values[k]
	}
	return out
}

// Writer streams sparse columns to an output. It owns the output for its
// lifetime and closes it, if it is an io.Closer, exactly once in Close.
type Writer struct {
	bw     *bufio.Writer
	closer io.Closer
	rows   int
	names  map[string]struct{}
	buf    *strings.Builder
	closed bool
}

// NewWriter writes the stream header for rows rows and returns the writer
func NewWriter(w io.Writer, rows int) (*Writer, error) {
	if rows < 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "row count must not be negative").WithDetail("rows", rows)
	}
	cw := &Writer{
		bw:    bufio.NewWriterSize(w, 64*1024),
		rows:  rows,
		names: make(map[string]struct{}),
		buf:   strings.NewBuilder(4096),
	}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}

	cw.buf.WriteString(startPrefix)
	cw.buf.AppendInt(rows)
	_ = cw.buf.WriteByte('\n')
	if err := cw.flushLine(); err != nil {
		return nil, err
	}
	return cw, nil
}

// Rows returns the declared row count
func (w *Writer) Rows() int { return w.rows }

// Columns returns the number of columns written so far
func (w *Writer) Columns() int { return len(w.names) }

// Has reports whether a column of that name was already written
func (w *Writer) Has(name string) bool {
	_, ok := w.names[name]
	return ok
}

// WriteColumn writes the non-zero entries of a dense column. Writing the same
// name twice is a conflict.
func (w *Writer) WriteColumn(name string, values []float64) error {
	if len(values) != w.rows {
		return errors.New(errors.ErrorTypeSchema, "column length does not match row count").
			WithDetail("column", name).
			WithDetail("rows", w.rows).
			WithDetail("length", len(values))
	}
	return w.WriteSparse(Sparse(name, values))
}

// WriteSparse writes an already sparse column
func (w *Writer) WriteSparse(col Column) error {
	if w.closed {
		return errors.New(errors.ErrorTypeInternal, "write to closed sparse writer").WithDetail("column", col.Name)
	}
	if _, dup := w.names[col.Name]; dup {
		return errors.New(errors.ErrorTypeConflict, "column written twice").WithDetail("column", col.Name)
	}
	if len(col.Index) != len(col.Values) {
		return errors.New(errors.ErrorTypeSchema, "index and value counts differ").WithDetail("column", col.Name)
	}
	for _, i := range col.Index {
		if i < 0 || i >= w.rows {
			return errors.New(errors.ErrorTypeSchema, "row index out of range").
				WithDetail("column", col.Name).
				WithDetail("index", i)
		}
	}

	w.buf.WriteString(columnPrefix)
	w.buf.WriteString(col.Name)
	_ = w.buf.WriteByte('\n')
	for k, i := range col.Index {
		if k > 0 {
			_ = w.buf.WriteByte(' ')
		}
		w.buf.AppendInt(i)
	}
	_ = w.buf.WriteByte('\n')
	for k, v := range col.Values {
		if k > 0 {
			_ = w.buf.WriteByte(' ')
		}
		w.buf.AppendValue(v)
	}
	_ = w.buf.WriteByte('\n')
	if err := w.flushLine(); err != nil {
		return err
	}
	w.names[col.Name] = struct{}{}
	return nil
}

// Close writes the trailer and closes the output. Calling Close again is a
// no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.buf.WriteString(endPrefix)
	w.buf.AppendInt(len(w.names))
	_ = w.buf.WriteByte('\n')
	err := w.flushLine()
	if err == nil {
		if ferr := w.bw.Flush(); ferr != nil {
			err = errors.Wrap(ferr, errors.ErrorTypeFile, "failed to flush sparse output")
		}
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close sparse output")
		}
	}
	return err
}

func (w *Writer) flushLine() error {
	_, err := w.bw.Write(w.buf.Bytes())
	w.buf.Reset()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write sparse output")
	}
	return nil
}
