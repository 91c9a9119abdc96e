// Package pipeline runs the bolasso batch jobs end to end: loading inputs from
// storage, driving the feature engine or the selection aggregator, and
// writing every output. Each step is timed in the metrics registry and wrapped
// in a trace span.
package pipeline

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/compression"
	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/observability"
	"github.com/ajitpratap0/bolasso/pkg/storage"
)

// FeaturesStats summarises a feature engineering run
type FeaturesStats struct {
	Recipe       string        `json:"recipe"`
	Rows         int           `json:"rows"`
	TrainingRows int           `json:"training_rows"`
	Originals    int           `json:"originals"`
	Derived      int           `json:"derived"`
	Written      int           `json:"written"`
	Outstanding  []string      `json:"outstanding,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// SelectStats summarises a stability selection run
type SelectStats struct {
	Runs      int           `json:"runs"`
	Variables int           `json:"variables"`
	Selected  int           `json:"selected"`
	Duration  time.Duration `json:"duration"`
}

func storageOptions(cfg config.StorageConfig) (storage.Options, error) {
	level, err := compression.ParseLevel(cfg.CompressionLevel)
	if err != nil {
		return storage.Options{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid storage configuration")
	}
	return storage.Options{
		Region:          cfg.Region,
		CredentialsFile: cfg.CredentialsFile,
		Level:           level,
	}, nil
}

// step runs fn inside a span, records its duration and logs its completion
func step(ctx context.Context, log *zap.Logger, command, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx = logger.ContextWithStep(ctx, name)
	timer := metrics.NewTimer(command, name)

	err := observability.Trace(ctx, command+"."+name, fn, attrs...)
	d := timer.ObserveDuration()
	if err == nil {
		logger.WithContext(ctx, log).Debug("step complete", zap.Duration("duration", d))
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
