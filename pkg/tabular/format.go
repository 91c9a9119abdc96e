package tabular

import (
	"io"
	"strings"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Format is a dense output format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat parses a format name. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", errors.New(errors.ErrorTypeValidation, "unsupported output format").WithDetail("format", s)
	}
}

// Write writes the named columns of t in the given format
func Write(w io.Writer, t *columnar.Table, columns []string, format Format) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, t, columns)
	case FormatParquet:
		return WriteParquet(w, t, columns)
	default:
		return errors.New(errors.ErrorTypeValidation, "unsupported output format").WithDetail("format", string(format))
	}
}
