package selection

import (
	"encoding/csv"
	"io"

	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/strings"
)

// WriteFrequencies writes the frequency table as var,freq in variable order
func WriteFrequencies(w io.Writer, freqs []Frequency) error {
	records := make([][]string, 0, len(freqs)+1)
	records = append(records, []string{varColumn, "freq"})
	for _, f := range freqs {
		records = append(records, []string{f.Var, strings.FormatDecimal(f.Freq)})
	}
	return writeRecords(w, records)
}

// WriteMeans writes the averaged coefficients as var,coef, leaving out
// variables whose mean is zero
func WriteMeans(w io.Writer, freqs []Frequency) error {
	records := [][]string{{varColumn, coefColumn}}
	for _, f := range freqs {
		if f.MeanCoef == 0 {
			continue
		}
		records = append(records, []string{f.Var, strings.FormatDecimal(f.MeanCoef)})
	}
	return writeRecords(w, records)
}

// WriteSelected writes the selected variables under a var header, one per
// line, in the given order
func WriteSelected(w io.Writer, names []string) error {
	records := make([][]string, 0, len(names)+1)
	records = append(records, []string{varColumn})
	for _, name := range names {
		records = append(records, []string{name})
	}
	return writeRecords(w, records)
}

func writeRecords(w io.Writer, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write table")
	}
	return nil
}
