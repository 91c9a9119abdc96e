package pipeline

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/selection"
	"github.com/ajitpratap0/bolasso/pkg/storage"
)

const commandSelect = "select"

// SelectPipeline aggregates bootstrap coefficient files into selection
// frequencies and a selected variable list
type SelectPipeline struct {
	cfg     config.SelectConfig
	storage storage.Options
	logger  *zap.Logger

	frequencies []selection.Frequency
	selected    []string
}

// NewSelectPipeline validates cfg
func NewSelectPipeline(cfg config.SelectConfig, log *zap.Logger) (*SelectPipeline, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	opts, err := storageOptions(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &SelectPipeline{
		cfg:     cfg,
		storage: opts,
		logger:  logger.OrNop(log).With(zap.String("component", "pipeline"), zap.String("command", commandSelect)),
	}, nil
}

// Run reads every coefficient file in order, one at a time, and writes the
// frequency table, the optional mean coefficient table and the selected list
func (p *SelectPipeline) Run(ctx context.Context) (*SelectStats, error) {
	start := time.Now()
	p.logger.Info("starting stability selection",
		zap.Float64("threshold", p.cfg.Threshold),
		zap.Int("runs", len(p.cfg.CoefFiles)))

	agg := selection.NewAggregator(p.logger)
	for i, uri := range p.cfg.CoefFiles {
		err := step(ctx, p.logger, commandSelect, "aggregate", func(ctx context.Context) error {
			in, err := storage.Open(ctx, uri, p.storage)
			if err != nil {
				return err
			}
			defer in.Close()
			if err := agg.Add(in); err != nil {
				return errors.Wrap(err, errors.TypeOf(err), "failed to aggregate coefficient file").
					WithDetail("path", uri)
			}
			return nil
		}, attribute.Int("run", i+1), attribute.String("path", uri))
		if err != nil {
			return nil, err
		}
	}

	freqs, err := agg.Result()
	if err != nil {
		return nil, err
	}
	selected, err := selection.Select(freqs, p.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	p.frequencies = freqs
	p.selected = selected

	err = step(ctx, p.logger, commandSelect, "write", func(ctx context.Context) error {
		if err := p.write(ctx, p.cfg.FreqFile, func(w io.Writer) error {
			return selection.WriteFrequencies(w, freqs)
		}); err != nil {
			return err
		}
		if p.cfg.MeanCoefFile != "" {
			if err := p.write(ctx, p.cfg.MeanCoefFile, func(w io.Writer) error {
				return selection.WriteMeans(w, freqs)
			}); err != nil {
				return err
			}
		}
		return p.write(ctx, p.cfg.OutFile, func(w io.Writer) error {
			return selection.WriteSelected(w, selected)
		})
	})
	if err != nil {
		return nil, err
	}

	stats := &SelectStats{
		Runs:      agg.Runs(),
		Variables: len(freqs),
		Selected:  len(selected),
		Duration:  time.Since(start),
	}
	p.logger.Info("stability selection complete",
		zap.Int("runs", stats.Runs),
		zap.Int("variables", stats.Variables),
		zap.Int("selected", stats.Selected),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// Frequencies returns the frequency table of the last run
func (p *SelectPipeline) Frequencies() []selection.Frequency { return p.frequencies }

// Selected returns the selected variables of the last run
func (p *SelectPipeline) Selected() []string { return p.selected }

func (p *SelectPipeline) write(ctx context.Context, uri string, fn func(io.Writer) error) error {
	out, err := storage.Create(ctx, uri, p.storage)
	if err != nil {
		return err
	}
	if err := fn(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
