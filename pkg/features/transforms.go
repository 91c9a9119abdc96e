package features

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/strings"
)

// MissingCategory replaces missing categorical values before counting
const MissingCategory = "MISSING"

// Derived name suffixes
const (
	suffixMissing = "_MISSING"
	suffixNonzero = "_NONZERO"
	suffixSquared = "_SQUARED"
	suffixCubed   = "_CUBED"
)

// ContinuousOptions controls the continuous transform
type ContinuousOptions struct {
	// Squared and Cubed add higher order terms computed before standardizing.
	Squared bool
	Cubed   bool
	// Log takes the natural log of every value. Non-positive values produce
	// non-finite results that are written as is.
	Log bool
	// TopCode clips values at or above this training quantile to the
	// quantile. Zero disables top-coding; otherwise it must lie in (0, 1).
	TopCode float64
	// OmitMissingIndicator suppresses the NAME_MISSING indicator.
	OmitMissingIndicator bool
}

// HurdleOptions controls the hurdle transform
type HurdleOptions struct {
	// Threshold is the mass point. Values at or below it form the extensive
	// margin.
	Threshold float64
	Squared   bool
	Cubed     bool
	Log       bool
	TopCode   float64
	// OmitMissingIndicator suppresses the NAME_MISSING indicator.
	OmitMissingIndicator bool
}

// Categorical expands a column into one indicator per training category,
// omitting the most frequent one. Missing values form their own MISSING
// category. Ties in frequency go to the category seen first in the training
// rows.
func (e *Engine) Categorical(name string) error {
	if err := e.checkOutstanding(name); err != nil {
		return err
	}
	col, err := e.table.Strings(name)
	if err != nil {
		return err
	}
	col.FillMissing(MissingCategory)

	type category struct {
		code  int32
		count int
	}
	var ranked []*category
	byCode := make(map[int32]*category)
	for i, train := range e.training {
		if !train {
			continue
		}
		code := col.Code(i)
		c, ok := byCode[code]
		if !ok {
			c = &category{code: code}
			byCode[code] = c
			ranked = append(ranked, c)
		}
		c.count++
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })

	dict := col.Dictionary()
	if len(ranked) > 0 {
		e.logger.Debug("categorical reference level",
			zap.String("column", name),
			zap.String("reference", dict[ranked[0].code]),
			zap.Int("levels", len(ranked)))
	}
	for _, c := range ranked[min(1, len(ranked)):] {
		dummy := strings.SanitizeName(name + "_" + dict[c.code])
		values := make([]float64, e.Rows())
		for i := range values {
			if col.Code(i) == c.code {
				values[i] = 1
			}
		}
		if err := e.derive(name, dummy, values, metrics.KindIndicator); err != nil {
			return err
		}
	}

	if err := e.claim(name); err != nil {
		return err
	}
	return e.table.Drop(name)
}

// Continuous standardizes a numeric column to training mean 0 and standard
// deviation 1 and imputes missing values to 0, optionally adding a missing
// indicator and squared and cubed terms. A derived column with zero training
// variance is written unscaled with a warning; one with fewer than two
// observed training values ends up constant and is dropped.
func (e *Engine) Continuous(name string, opts ContinuousOptions) error {
	values, err := e.detachNumeric(name)
	if err != nil {
		return err
	}
	if !opts.OmitMissingIndicator {
		if err := e.missingIndicator(name, values); err != nil {
			return err
		}
	}
	if err := e.continuous(name, values, opts); err != nil {
		return err
	}
	return e.claim(name)
}

// Hurdle splits a column with a mass point at Threshold into an extensive
// margin indicator NAME_NONZERO and an intensive margin holding the values
// above the threshold, standardized like a continuous column.
func (e *Engine) Hurdle(name string, opts HurdleOptions) error {
	values, err := e.detachNumeric(name)
	if err != nil {
		return err
	}
	if !opts.OmitMissingIndicator {
		if err := e.missingIndicator(name, values); err != nil {
			return err
		}
	}

	above := where(values, func(v float64) bool { return v > opts.Threshold })
	if anyWithin(above, e.training) {
		if err := e.derive(name, strings.SanitizeName(name+suffixNonzero), indicator(above), metrics.KindIndicator); err != nil {
			return err
		}
	}

	assign(values, atOrBelow(values, opts.Threshold), math.NaN())
	err = e.continuous(name, values, ContinuousOptions{
		Squared:              opts.Squared,
		Cubed:                opts.Cubed,
		Log:                  opts.Log,
		TopCode:              opts.TopCode,
		OmitMissingIndicator: true,
	})
	if err != nil {
		return err
	}
	return e.claim(name)
}

// atOrBelow selects the rows of the mass point. Missing rows are in neither
// margin.
func atOrBelow(values []float64, threshold float64) []bool {
	return where(values, func(v float64) bool { return v <= threshold })
}

// detachNumeric parses an outstanding column and removes it from the table so
// its derived columns may reuse the name
func (e *Engine) detachNumeric(name string) ([]float64, error) {
	if err := e.checkOutstanding(name); err != nil {
		return nil, err
	}
	parsed, err := e.table.Floats(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(parsed))
	copy(values, parsed)
	if err := e.table.Drop(name); err != nil {
		return nil, err
	}
	return values, nil
}

func (e *Engine) missingIndicator(name string, values []float64) error {
	missing := where(values, isMissing)
	if !anyWithin(missing, e.training) {
		return nil
	}
	return e.derive(name, strings.SanitizeName(name+suffixMissing), indicator(missing), metrics.KindIndicator)
}

type term struct {
	name   string
	values []float64
}

func (e *Engine) continuous(name string, values []float64, opts ContinuousOptions) error {
	if opts.TopCode != 0 {
		if !(opts.TopCode > 0 && opts.TopCode < 1) {
			return errors.New(errors.ErrorTypeValidation, "top-code quantile must lie in (0, 1)").
				WithDetail("column", name).
				WithDetail("quantile", opts.TopCode)
		}
		t := quantile(values, e.training, opts.TopCode)
		assign(values, where(values, func(v float64) bool { return v >= t }), t)
	}
	if opts.Log {
		for i, v := range values {
			values[i] = math.Log(v)
		}
	}

	terms := []term{{strings.SanitizeName(name), values}}
	if opts.Squared {
		sq := make([]float64, len(values))
		for i, v := range values {
			sq[i] = v * v
		}
		terms = append(terms, term{strings.SanitizeName(name + suffixSquared), sq})
	}
	if opts.Cubed {
		cu := make([]float64, len(values))
		for i, v := range values {
			cu[i] = v * v * v
		}
		terms = append(terms, term{strings.SanitizeName(name + suffixCubed), cu})
	}

	for _, t := range terms {
		e.standardize(t.name, t.values)
		assign(t.values, where(t.values, isMissing), 0)
		if err := e.derive(name, t.name, t.values, metrics.KindContinuous); err != nil {
			return err
		}
	}
	return nil
}

// standardize centers and scales values in place using training statistics.
// With zero variance the values are left as they are. With fewer than two
// observed training values the scale is undefined and every value becomes
// missing.
func (e *Engine) standardize(name string, values []float64) {
	mean, sd := meanStdDev(values, e.training)
	if math.IsNaN(sd) {
		e.logger.Warn("column has fewer than two training values, clearing it",
			zap.String("column", name),
			zap.String("reason", metrics.ReasonZeroVariance))
		for i := range values {
			values[i] = math.NaN()
		}
		return
	}
	if sd == 0 {
		e.logger.Warn("column has zero standard deviation, leaving unscaled",
			zap.String("column", name),
			zap.String("reason", metrics.ReasonZeroVariance))
		metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonZeroVariance).Inc()
		return
	}
	for i, v := range values {
		values[i] = (v - mean) / sd
	}
}
