// Package metrics records what a run did using Prometheus metrics. Batch jobs
// have nobody to scrape them, so the registry is dumped in the text
// exposition format at the end of a run with WriteTextfile, ready for the node
// exporter textfile collector.
//
// # Basic Usage
//
//	metrics.ColumnsEmitted.WithLabelValues(metrics.KindIndicator).Inc()
//	metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonConstant).Inc()
//
//	timer := metrics.NewTimer("features", "interactions")
//	engine.Interactions()
//	timer.ObserveDuration()
//
//	_ = metrics.WriteTextfile("bolasso.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Column kinds
const (
	KindIndicator   = "indicator"
	KindContinuous  = "continuous"
	KindInteraction = "interaction"
)

// Skip reasons
const (
	ReasonConstant     = "constant"
	ReasonRedundant    = "redundant"
	ReasonZeroVariance = "zero_variance"
	ReasonOutstanding  = "outstanding"
)

var (
	// ColumnsEmitted counts sparse columns written.
	// Labels: kind (indicator/continuous/interaction)
	ColumnsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolasso_columns_emitted_total",
			Help: "Total number of sparse columns written",
		},
		[]string{"kind"},
	)

	// ColumnsSkipped counts advisory conditions. Zero variance columns are
	// still written, unscaled; the other reasons omit the column.
	// Labels: reason (constant/redundant/zero_variance/outstanding)
	ColumnsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolasso_columns_warned_total",
			Help: "Total number of columns that raised a data quality warning",
		},
		[]string{"reason"},
	)

	// RowsLoaded records the size of each input partition.
	// Labels: partition (train/test)
	RowsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bolasso_rows_loaded",
			Help: "Number of rows loaded per partition",
		},
		[]string{"partition"},
	)

	// RunsAggregated counts coefficient files merged by the aggregator.
	RunsAggregated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bolasso_runs_aggregated_total",
			Help: "Total number of bootstrap coefficient files aggregated",
		},
	)

	// VariablesSelected records the size of the selected set.
	// Labels: stage (threshold/closure)
	VariablesSelected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bolasso_variables_selected",
			Help: "Number of variables selected, before and after interaction closure",
		},
		[]string{"stage"},
	)

	// StepDuration tracks how long each pipeline step takes in seconds.
	// Labels: command (features/select), step
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolasso_step_duration_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 600},
		},
		[]string{"command", "step"},
	)
)

// Timer measures one pipeline step
type Timer struct {
	start   time.Time
	command string
	step    string
}

// NewTimer starts timing a step
func NewTimer(command, step string) *Timer {
	return &Timer{
		start:   time.Now(),
		command: command,
		step:    step,
	}
}

// Stop returns the elapsed duration since creation
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in StepDuration and returns it
func (t *Timer) ObserveDuration() time.Duration {
	d := t.Stop()
	StepDuration.WithLabelValues(t.command, t.step).Observe(d.Seconds())
	return d
}

// WriteTextfile writes every metric in the default registry to path
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics file").WithDetail("path", path)
	}
	return nil
}
