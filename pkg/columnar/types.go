package columnar

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// ColumnType represents the data type of a column
type ColumnType int

const (
	ColumnTypeString ColumnType = iota
	ColumnTypeFloat
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeString:
		return "string"
	case ColumnTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Column is the base interface for all column types
type Column interface {
	Type() ColumnType
	Len() int
	IsMissing(i int) bool
	// Text returns the row value as written to dense outputs; missing is "".
	Text(i int) string
}

const missingCode = -1

// StringColumn stores text values dictionary-encoded. Each distinct value is
// stored once; rows hold a code into the dictionary, or -1 when missing.
type StringColumn struct {
	dict  []string
	index map[string]int32
	codes []int32
}

// NewStringColumn creates an empty string column with room for capacity rows
func NewStringColumn(capacity int) *StringColumn {
	return &StringColumn{
		index: make(map[string]int32),
		codes: make([]int32, 0, capacity),
	}
}

// StringColumnOf builds a column from values, with no missing entries
func StringColumnOf(values ...string) *StringColumn {
	c := NewStringColumn(len(values))
	for _, v := range values {
		c.Append(v)
	}
	return c
}

func (c *StringColumn) Type() ColumnType { return ColumnTypeString }
func (c *StringColumn) Len() int         { return len(c.codes) }

func (c *StringColumn) IsMissing(i int) bool { return c.codes[i] == missingCode }

func (c *StringColumn) Text(i int) string {
	v, _ := c.Value(i)
	return v
}

// Value returns the row value and whether it is present
func (c *StringColumn) Value(i int) (string, bool) {
	code := c.codes[i]
	if code == missingCode {
		return "", false
	}
	return c.dict[code], true
}

// Code returns the dictionary code of row i, or -1 when missing
func (c *StringColumn) Code(i int) int32 { return c.codes[i] }

// Dictionary returns the distinct values in first-seen order
func (c *StringColumn) Dictionary() []string { return c.dict }

// Append adds a present value
func (c *StringColumn) Append(value string) {
	code, ok := c.index[value]
	if !ok {
		code = int32(len(c.dict))
		c.dict = append(c.dict, value)
		c.index[value] = code
	}
	c.codes = append(c.codes, code)
}

// AppendMissing adds a missing value
func (c *StringColumn) AppendMissing() {
	c.codes = append(c.codes, missingCode)
}

// FillMissing replaces every missing row with value
func (c *StringColumn) FillMissing(value string) {
	var code int32 = missingCode
	for i, cur := range c.codes {
		if cur != missingCode {
			continue
		}
		if code == missingCode {
			existing, ok := c.index[value]
			if !ok {
				existing = int32(len(c.dict))
				c.dict = append(c.dict, value)
				c.index[value] = existing
			}
			code = existing
		}
		c.codes[i] = code
	}
}

// Floats parses every present value as a float64. Missing rows become NaN.
// A value that does not parse is a data error naming the offending row.
func (c *StringColumn) Floats() ([]float64, error) {
	parsed := make([]float64, len(c.dict))
	for code, s := range c.dict {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			row := c.firstRow(int32(code))
			return nil, errors.Wrap(err, errors.ErrorTypeData, "value is not numeric").
				WithDetail("value", s).
				WithDetail("row", row)
		}
		parsed[code] = v
	}

	out := make([]float64, len(c.codes))
	for i, code := range c.codes {
		if code == missingCode {
			out[i] = math.NaN()
			continue
		}
		out[i] = parsed[code]
	}
	return out, nil
}

func (c *StringColumn) firstRow(code int32) int {
	for i, cur := range c.codes {
		if cur == code {
			return i
		}
	}
	return -1
}

func (c *StringColumn) appendFrom(other *StringColumn) {
	for i := range other.codes {
		if v, ok := other.Value(i); ok {
			c.Append(v)
		} else {
			c.AppendMissing()
		}
	}
}

// FloatColumn stores numeric values. NaN is the missing representation.
type FloatColumn struct {
	values []float64
}

// NewFloatColumn wraps values without copying
func NewFloatColumn(values []float64) *FloatColumn {
	return &FloatColumn{values: values}
}

func (c *FloatColumn) Type() ColumnType     { return ColumnTypeFloat }
func (c *FloatColumn) Len() int             { return len(c.values) }
func (c *FloatColumn) IsMissing(i int) bool { return math.IsNaN(c.values[i]) }

func (c *FloatColumn) Text(i int) string {
	v := c.values[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Values returns the backing slice. Callers may modify it in place.
func (c *FloatColumn) Values() []float64 { return c.values }
