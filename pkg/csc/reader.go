package csc

import (
	"bufio"
	"io"
	"math"
	"strconv"
	gostrings "strings"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Reader parses a sparse column stream one column at a time
type Reader struct {
	sc      *bufio.Scanner
	line    int
	rows    int
	columns int
	done    bool
}

// NewReader reads the stream header and returns the reader
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<30)
	cr := &Reader{sc: sc}

	header, err := cr.next()
	if err != nil {
		return nil, err
	}
	rest, ok := gostrings.CutPrefix(header, startPrefix)
	if !ok {
		return nil, cr.malformed("missing start record")
	}
	cr.rows, err = strconv.Atoi(rest)
	if err != nil || cr.rows < 0 {
		return nil, cr.malformed("invalid row count")
	}
	return cr, nil
}

// Rows returns the row count declared in the header
func (r *Reader) Rows() int { return r.rows }

// Next returns the next column, or io.EOF after the trailer. The trailer's
// column count must match the number of columns read.
func (r *Reader) Next() (Column, error) {
	if r.done {
		return Column{}, io.EOF
	}
	line, err := r.next()
	if err != nil {
		return Column{}, err
	}

	if rest, ok := gostrings.CutPrefix(line, endPrefix); ok {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Column{}, r.malformed("invalid column count")
		}
		if n != r.columns {
			return Column{}, r.malformed("column count does not match trailer").
				WithDetail("declared", n).
				WithDetail("read", r.columns)
		}
		r.done = true
		return Column{}, io.EOF
	}

	name, ok := gostrings.CutPrefix(line, columnPrefix)
	if !ok {
		return Column{}, r.malformed("expected column record")
	}
	col := Column{Name: name}

	indexLine, err := r.next()
	if err != nil {
		return Column{}, err
	}
	for _, f := range gostrings.Fields(indexLine) {
		i, err := strconv.Atoi(f)
		if err != nil || i < 0 || i >= r.rows {
			return Column{}, r.malformed("invalid row index").WithDetail("column", name).WithDetail("index", f)
		}
		col.Index = append(col.Index, i)
	}

	valueLine, err := r.next()
	if err != nil {
		return Column{}, err
	}
	for _, f := range gostrings.Fields(valueLine) {
		v, err := parseValue(f)
		if err != nil {
			return Column{}, r.malformed("invalid value").WithDetail("column", name).WithDetail("value", f)
		}
		col.Values = append(col.Values, v)
	}
	if len(col.Values) != len(col.Index) {
		return Column{}, r.malformed("index and value counts differ").WithDetail("column", name)
	}

	r.columns++
	return col, nil
}

// ReadAll reads every remaining column
func (r *Reader) ReadAll() ([]Column, error) {
	var cols []Column
	for {
		col, err := r.Next()
		if err == io.EOF {
			return cols, nil
		}
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
}

func (r *Reader) next() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to read sparse input")
		}
		return "", r.malformed("unexpected end of stream")
	}
	r.line++
	return r.sc.Text(), nil
}

func (r *Reader) malformed(msg string) *errors.Error {
	return errors.New(errors.ErrorTypeData, msg).WithDetail("line", r.line)
}

func parseValue(s string) (float64, error) {
	switch s {
	case "nan":
		return math.NaN(), nil
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
