// Package selection merges the coefficients of many bootstrap model fits into
// stability selection frequencies and a selected variable set.
//
// Coefficient files are CSV tables with a var column and a coef column, one
// file per bootstrap run. The first file added defines the variables; every
// later file must list the same variables, in any order. A reserved intercept
// row is ignored.
//
//	agg := selection.NewAggregator(logger)
//	for _, f := range files {
//		if err := agg.Add(f); err != nil {
//			return err
//		}
//	}
//	freqs, err := agg.Result()
//	selected, err := selection.Select(freqs, 0.9)
package selection

import (
	"io"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/strings"
	"github.com/ajitpratap0/bolasso/pkg/tabular"
)

const (
	// Intercept is the reserved variable name excluded from selection
	Intercept = "intercept"

	varColumn  = "var"
	coefColumn = "coef"
)

// Coefficient is one variable's coefficient in one run
type Coefficient struct {
	Var  string
	Coef float64
}

// Frequency is the aggregate of one variable over all runs
type Frequency struct {
	Var string
	// Freq is the fraction of runs with a non-zero coefficient.
	Freq float64
	// MeanCoef is the coefficient averaged over all runs.
	MeanCoef float64
}

// Aggregator accumulates coefficient files one run at a time
type Aggregator struct {
	vars   []string
	index  map[string]int
	counts []int
	sums   []float64
	runs   int
	logger *zap.Logger
}

// NewAggregator creates an empty aggregator
func NewAggregator(log *zap.Logger) *Aggregator {
	return &Aggregator{
		logger: logger.OrNop(log).With(zap.String("component", "selection")),
	}
}

// ReadCoefficients parses one coefficient file, keeping the file order
func ReadCoefficients(r io.Reader) ([]Coefficient, error) {
	table, err := tabular.ReadCSV(r, tabular.ReadOptions{TrimSpace: true})
	if err != nil {
		return nil, err
	}
	names, err := table.Strings(varColumn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "coefficient file has no var column")
	}
	coefs, err := table.Floats(coefColumn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "coefficient file has no usable coef column")
	}

	out := make([]Coefficient, table.Rows())
	for i := range out {
		name, ok := names.Value(i)
		if !ok {
			return nil, errors.New(errors.ErrorTypeData, "coefficient row has no variable name").
				WithDetail("row", i+1)
		}
		out[i] = Coefficient{Var: name, Coef: coefs[i]}
	}
	return out, nil
}

// Add reads one coefficient file and accumulates it as a run
func (a *Aggregator) Add(r io.Reader) error {
	coefs, err := ReadCoefficients(r)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to read coefficient file").
			WithDetail("run", a.runs+1)
	}
	return a.AddRun(coefs)
}

// AddRun accumulates the coefficients of one run. A coefficient counts as
// selected when it is not exactly zero; a missing coefficient counts as
// selected.
func (a *Aggregator) AddRun(coefs []Coefficient) error {
	seen := make(map[string]struct{}, len(coefs))
	for _, c := range coefs {
		if _, dup := seen[c.Var]; dup {
			return errors.New(errors.ErrorTypeConflict, "variable listed twice in one run").
				WithDetail("variable", c.Var).
				WithDetail("run", a.runs+1)
		}
		seen[c.Var] = struct{}{}
	}

	if a.index == nil {
		a.define(coefs)
	} else if err := a.checkVariables(seen); err != nil {
		return err
	}

	for _, c := range coefs {
		i, ok := a.index[c.Var]
		if !ok {
			continue
		}
		if c.Coef != 0 {
			a.counts[i]++
		}
		a.sums[i] += c.Coef
	}
	a.runs++
	metrics.RunsAggregated.Inc()
	a.logger.Debug("run aggregated", zap.Int("run", a.runs), zap.Int("variables", len(a.vars)))
	return nil
}

func (a *Aggregator) define(coefs []Coefficient) {
	a.index = make(map[string]int, len(coefs))
	for _, c := range coefs {
		if c.Var == Intercept {
			continue
		}
		a.index[c.Var] = len(a.vars)
		a.vars = append(a.vars, c.Var)
	}
	a.counts = make([]int, len(a.vars))
	a.sums = make([]float64, len(a.vars))
}

func (a *Aggregator) checkVariables(seen map[string]struct{}) error {
	for _, name := range a.vars {
		if _, ok := seen[name]; !ok {
			return errors.New(errors.ErrorTypeSchema, "run is missing a variable").
				WithDetail("variable", name).
				WithDetail("run", a.runs+1)
		}
	}
	for name := range seen {
		if _, ok := a.index[name]; !ok && name != Intercept {
			return errors.New(errors.ErrorTypeSchema, "run has an unknown variable").
				WithDetail("variable", name).
				WithDetail("run", a.runs+1)
		}
	}
	return nil
}

// Runs returns the number of runs added
func (a *Aggregator) Runs() int { return a.runs }

// Variables returns the variable names in the order of the first run
func (a *Aggregator) Variables() []string {
	out := make([]string, len(a.vars))
	copy(out, a.vars)
	return out
}

// Result divides the accumulated counts and sums by the number of runs
func (a *Aggregator) Result() ([]Frequency, error) {
	if a.runs == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no coefficient files aggregated")
	}
	n := float64(a.runs)
	out := make([]Frequency, len(a.vars))
	for i, name := range a.vars {
		out[i] = Frequency{
			Var:      name,
			Freq:     float64(a.counts[i]) / n,
			MeanCoef: a.sums[i] / n,
		}
	}
	return out, nil
}

// Select returns the variables whose frequency is at least threshold, closed
// under interactions: a selected A_X_B also selects A and B. The result is
// sorted.
func Select(freqs []Frequency, threshold float64) ([]string, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, errors.New(errors.ErrorTypeValidation, "threshold must lie in [0, 1]").
			WithDetail("threshold", threshold)
	}

	selected := make(map[string]struct{})
	for _, f := range freqs {
		if f.Freq >= threshold {
			selected[f.Var] = struct{}{}
		}
	}
	metrics.VariablesSelected.WithLabelValues("threshold").Set(float64(len(selected)))

	for name := range Closure(selected) {
		selected[name] = struct{}{}
	}
	metrics.VariablesSelected.WithLabelValues("closure").Set(float64(len(selected)))

	out := make([]string, 0, len(selected))
	for name := range selected {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Closure returns the main effects referenced by the interactions in names
// that are not themselves in names
func Closure(names map[string]struct{}) map[string]struct{} {
	added := make(map[string]struct{})
	for name := range names {
		a, b, ok := strings.SplitInteraction(name)
		if !ok {
			continue
		}
		for _, base := range []string{a, b} {
			if _, ok := names[base]; !ok {
				added[base] = struct{}{}
			}
		}
	}
	return added
}
