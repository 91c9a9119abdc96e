package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/csc"
	"github.com/ajitpratap0/bolasso/pkg/selection"
	"github.com/ajitpratap0/bolasso/pkg/storage"
	"github.com/ajitpratap0/bolasso/pkg/strings"
)

// RenderFrequencies prints the top variables by selection frequency. Ties
// keep the order of the frequency table. A non-positive top prints all.
func RenderFrequencies(w io.Writer, freqs []selection.Frequency, selected []string, top int) {
	if len(freqs) == 0 {
		_, _ = fmt.Fprintln(w, "(0 variables)")
		return
	}

	ranked := make([]selection.Frequency, len(freqs))
	copy(ranked, freqs)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Freq > ranked[j].Freq })
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	chosen := make(map[string]bool, len(selected))
	for _, name := range selected {
		chosen[name] = true
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Variable", "Freq", "Mean coef", "Selected"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, f := range ranked {
		mark := ""
		if chosen[f.Var] {
			mark = "yes"
		}
		t.AppendRow(table.Row{f.Var, strings.FormatDecimal(f.Freq), strings.FormatValue(f.MeanCoef), mark})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d of %d variables, %d selected)\n", len(ranked), len(freqs), len(selected))
}

// ColumnSummary describes one column of a sparse matrix
type ColumnSummary struct {
	Name    string `json:"name"`
	NonZero int    `json:"non_zero"`
}

// MatrixSummary describes a sparse matrix stream
type MatrixSummary struct {
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
}

// Inspect reads a sparse matrix stream and counts the entries of each column
func Inspect(ctx context.Context, uri string, cfg config.StorageConfig) (*MatrixSummary, error) {
	opts, err := storageOptions(cfg)
	if err != nil {
		return nil, err
	}
	in, err := storage.Open(ctx, uri, opts)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	r, err := csc.NewReader(in)
	if err != nil {
		return nil, err
	}
	summary := &MatrixSummary{Rows: r.Rows()}
	for {
		col, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		summary.Columns = append(summary.Columns, ColumnSummary{Name: col.Name, NonZero: len(col.Index)})
	}
	return summary, nil
}

// RenderMatrix prints a matrix summary with the density of each column
func RenderMatrix(w io.Writer, m *MatrixSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Column", "Non-zero", "Density"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	total := 0
	for i, c := range m.Columns {
		density := 0.0
		if m.Rows > 0 {
			density = float64(c.NonZero) / float64(m.Rows)
		}
		t.AppendRow(table.Row{i + 1, c.Name, c.NonZero, fmt.Sprintf("%.4f", density)})
		total += c.NonZero
	}
	t.AppendFooter(table.Row{"", "total", total, ""})
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows, %d columns)\n", m.Rows, len(m.Columns))
}
