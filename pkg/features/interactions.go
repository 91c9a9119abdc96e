package features

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/pool"
	"github.com/ajitpratap0/bolasso/pkg/strings"
)

// Interactions writes the element-wise product of every pair of derived
// columns that come from different original columns, named A_X_B. Originals
// are paired in feature map order, so the output is deterministic. Products
// that are constant over the training rows, or identical to one of their
// inputs, are skipped with a warning. Interactions may run once per engine.
func (e *Engine) Interactions() error {
	if e.closed {
		return errors.New(errors.ErrorTypeValidation, "engine is closed")
	}
	if e.interactions {
		return errors.New(errors.ErrorTypeValidation, "interactions already written")
	}
	e.interactions = true

	originals := e.featureMap.Originals()
	written, skipped := 0, 0
	for i, first := range originals {
		for _, second := range originals[i+1:] {
			for _, a := range e.featureMap.Derived(first) {
				for _, b := range e.featureMap.Derived(second) {
					ok, err := e.interaction(a, b)
					if err != nil {
						return err
					}
					if ok {
						written++
					} else {
						skipped++
					}
				}
			}
		}
	}

	e.logger.Info("interactions complete",
		zap.Int("written", written),
		zap.Int("skipped", skipped))
	return nil
}

func (e *Engine) interaction(a, b string) (bool, error) {
	x, err := e.table.Floats(a)
	if err != nil {
		return false, err
	}
	y, err := e.table.Floats(b)
	if err != nil {
		return false, err
	}
	name := strings.JoinInteraction(a, b)
	// the writer copies non-zero entries, so the buffer is free after emit
	values := pool.Vectors.Get(len(x))
	defer pool.Vectors.Put(values)
	multiply(values, x, y)

	if constantOver(values, e.training) {
		e.logger.Warn("dropping empty interaction",
			zap.String("column", name),
			zap.String("reason", metrics.ReasonConstant))
		metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonConstant).Inc()
		return false, nil
	}
	if identical(values, x) || identical(values, y) {
		e.logger.Warn("dropping redundant interaction",
			zap.String("column", name),
			zap.String("reason", metrics.ReasonRedundant))
		metrics.ColumnsSkipped.WithLabelValues(metrics.ReasonRedundant).Inc()
		return false, nil
	}
	if err := e.emit(name, values, metrics.KindInteraction); err != nil {
		return false, err
	}
	return true, nil
}
