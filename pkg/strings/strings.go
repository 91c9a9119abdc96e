// Package strings provides the naming and formatting helpers shared by the
// feature engine, the sparse column writer and the stability aggregator.
package strings

import (
	"math"
	"strconv"
	"strings"
)

// InteractionSeparator joins the two derived column names of a pairwise
// interaction. The aggregator splits on it to recover the main effects.
const InteractionSeparator = "_X_"

// SanitizeName maps an arbitrary feature label to an identifier by replacing
// every character outside [A-Za-z0-9] with an underscore and upper-casing the
// result. It performs no uniqueness checking.
func SanitizeName(label string) string {
	b := make([]byte, 0, len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z':
			b = append(b, byte(r-'a'+'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b = append(b, byte(r))
		default:
			b = append(b, '_')
		}
	}
	return string(b)
}

// JoinInteraction names the interaction between two derived columns.
func JoinInteraction(a, b string) string {
	return a + InteractionSeparator + b
}

// SplitInteraction splits name at the first InteractionSeparator.
// ok is false when name is not an interaction.
func SplitInteraction(name string) (a, b string, ok bool) {
	return strings.Cut(name, InteractionSeparator)
}

// IsInteraction reports whether name contains the interaction separator.
func IsInteraction(name string) bool {
	return strings.Contains(name, InteractionSeparator)
}

// Builder accumulates a single output line without intermediate string
// allocations per value.
type Builder struct {
	buf []byte
}

// NewBuilder creates a new builder with the given initial capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends s.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// AppendInt appends the decimal form of i.
func (b *Builder) AppendInt(i int) {
	b.buf = strconv.AppendInt(b.buf, int64(i), 10)
}

// AppendValue appends v in the general format with six significant digits.
// Non-finite values are written as inf, -inf and nan.
func (b *Builder) AppendValue(v float64) {
	b.buf = AppendValue(b.buf, v)
}

// Bytes returns the underlying buffer. It is only valid until the next Reset.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// String returns a copy of the accumulated content.
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns the number of accumulated bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset empties the builder, keeping its capacity.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// AppendValue appends v to dst using the sparse matrix value format.
func AppendValue(dst []byte, v float64) []byte {
	switch {
	case math.IsNaN(v):
		return append(dst, "nan"...)
	case math.IsInf(v, 1):
		return append(dst, "inf"...)
	case math.IsInf(v, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, v, 'g', 6, 64)
}

// FormatValue formats v using the sparse matrix value format.
func FormatValue(v float64) string {
	return string(AppendValue(nil, v))
}

// FormatDecimal formats v the way tabular outputs print floats: the shortest
// representation that round-trips, always carrying a decimal point or exponent.
func FormatDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatValue(v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
