// Package features expands a raw training/testing table into the numeric
// columns of a sparse model matrix.
//
// An Engine owns the combined table, the training mask, the set of columns
// still waiting for a transform, the feature map and the sparse writer. Each
// transform consumes one original column, derives new columns, registers them
// in the feature map and streams them to the writer:
//
//	engine, err := features.New(train, test, out, logger)
//	_ = engine.Categorical("workclass")
//	_ = engine.Continuous("age", features.ContinuousOptions{Squared: true})
//	_ = engine.Hurdle("capital_gain", features.HurdleOptions{Log: true})
//	_ = engine.Drop("education_num")
//	_ = engine.Interactions()
//	_ = engine.Close()
//
// Every statistic (category counts, means, standard deviations, quantiles) is
// computed over training rows only and then applied to every row.
//
// Structural problems (unknown or already handled columns, duplicate names,
// unparsable numbers, I/O failures) are returned as errors. Data quality
// problems (constant or redundant columns, zero variance, columns left
// untransformed) are logged as warnings and never fail the run.
package features

import (
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/csc"
	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/tabular"
)

const (
	// SubsetColumn labels each row with its partition
	SubsetColumn = "subset"
	// SubsetTrain marks training rows
	SubsetTrain = "TRAIN"
	// SubsetTest marks testing rows
	SubsetTest = "TEST"
)

// Engine transforms one combined table into a sparse model matrix
type Engine struct {
	table        *columnar.Table
	training     []bool
	trainRows    int
	outstanding  map[string]struct{}
	featureMap   *FeatureMap
	writer       *csc.Writer
	logger       *zap.Logger
	interactions bool
	closed       bool
}

// New stacks test under train, labels the partitions in a subset column and
// writes the sparse stream header to out. Both tables must have the same
// columns in the same order and neither may already have a subset column.
// The engine takes ownership of out and closes it in Close.
func New(train, test *columnar.Table, out io.Writer, log *zap.Logger) (*Engine, error) {
	for _, part := range []struct {
		name  string
		table *columnar.Table
	}{{"training", train}, {"testing", test}} {
		if part.table.Has(SubsetColumn) {
			return nil, errors.New(errors.ErrorTypeConflict, "input already has a subset column").
				WithDetail("partition", part.name)
		}
	}
	if train.Rows() == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "training partition is empty")
	}

	table, err := columnar.Concat(train, test)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "training and testing columns differ")
	}

	training := make([]bool, table.Rows())
	subset := columnar.NewStringColumn(table.Rows())
	for i := range training {
		if i < train.Rows() {
			training[i] = true
			subset.Append(SubsetTrain)
		} else {
			subset.Append(SubsetTest)
		}
	}

	outstanding := make(map[string]struct{}, table.Len())
	for _, name := range table.Names() {
		outstanding[name] = struct{}{}
	}
	if err := table.AddColumn(SubsetColumn, subset); err != nil {
		return nil, err
	}

	writer, err := csc.NewWriter(out, table.Rows())
	if err != nil {
		return nil, err
	}

	metrics.RowsLoaded.WithLabelValues("train").Set(float64(train.Rows()))
	metrics.RowsLoaded.WithLabelValues("test").Set(float64(test.Rows()))

	return &Engine{
		table:       table,
		training:    training,
		trainRows:   train.Rows(),
		outstanding: outstanding,
		featureMap:  NewFeatureMap(),
		writer:      writer,
		logger:      logger.OrNop(log).With(zap.String("component", "features")),
	}, nil
}

// Rows returns the combined row count
func (e *Engine) Rows() int { return e.table.Rows() }

// TrainingRows returns the number of training rows
func (e *Engine) TrainingRows() int { return e.trainRows }

// TrainingMask returns a copy of the training mask
func (e *Engine) TrainingMask() []bool {
	out := make([]bool, len(e.training))
	copy(out, e.training)
	return out
}

// Table returns the working table
func (e *Engine) Table() *columnar.Table { return e.table }

// FeatureMap returns the feature map built so far
func (e *Engine) FeatureMap() *FeatureMap { return e.featureMap }

// Written returns the number of sparse columns written
func (e *Engine) Written() int { return e.writer.Columns() }

// Outstanding returns the columns not yet transformed, dropped or kept,
// sorted by name
func (e *Engine) Outstanding() []string {
	out := make([]string, 0, len(e.outstanding))
	for name := range e.outstanding {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Drop removes an outstanding column without deriving anything from it
func (e *Engine) Drop(name string) error {
	if err := e.claim(name); err != nil {
		return err
	}
	return e.table.Drop(name)
}

// Keep marks an outstanding column as handled while leaving it in the table,
// for auxiliary columns such as outcomes and weights
func (e *Engine) Keep(name string) error {
	return e.claim(name)
}

// Close warns about columns that were never handled, writes the stream
// trailer and closes the output. Calling Close again is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if rest := e.Outstanding(); len(rest) > 0 {
		e.logger.Warn("outstanding features that have not been processed",
			zap.Strings("columns", rest),
			zap.String("reason", metrics.ReasonOutstanding))
		metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonOutstanding).Add(float64(len(rest)))
	}
	if err := e.writer.Close(); err != nil {
		return err
	}
	e.logger.Info("sparse matrix complete",
		zap.Int("rows", e.Rows()),
		zap.Int("columns", e.writer.Columns()))
	return nil
}

// WriteAuxiliary writes the named columns, in row order, as a dense table.
// The subset column and any kept columns are typical choices.
func (e *Engine) WriteAuxiliary(w io.Writer, format tabular.Format, columns ...string) error {
	return tabular.Write(w, e.table, columns, format)
}

// claim removes name from the outstanding set
func (e *Engine) claim(name string) error {
	if e.closed {
		return errors.New(errors.ErrorTypeValidation, "engine is closed").WithDetail("column", name)
	}
	if _, ok := e.outstanding[name]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "column is not outstanding").WithDetail("column", name)
	}
	delete(e.outstanding, name)
	return nil
}

// checkOutstanding verifies name can be transformed without claiming it
func (e *Engine) checkOutstanding(name string) error {
	if e.closed {
		return errors.New(errors.ErrorTypeValidation, "engine is closed").WithDetail("column", name)
	}
	if _, ok := e.outstanding[name]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "column is not outstanding").WithDetail("column", name)
	}
	return nil
}

// derive adds a derived column to the table, registers it under original and
// emits it
func (e *Engine) derive(original, name string, values []float64, kind string) error {
	if err := e.table.AddFloats(name, values); err != nil {
		return err
	}
	e.featureMap.Add(original, name)
	return e.emit(name, values, kind)
}

// emit writes a column unless it holds a single value over the training rows
func (e *Engine) emit(name string, values []float64, kind string) error {
	if e.writer.Has(name) {
		return errors.New(errors.ErrorTypeConflict, "column written twice").WithDetail("column", name)
	}
	if constantOver(values, e.training) {
		e.logger.Warn("dropping empty column",
			zap.String("column", name),
			zap.String("reason", metrics.ReasonConstant))
		metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonConstant).Inc()
		return nil
	}
	if err := e.writer.WriteColumn(name, values); err != nil {
		return err
	}
	metrics.ColumnsEmitted.WithLabelValues(kind).Inc()
	return nil
}
