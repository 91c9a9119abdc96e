package pipeline

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/features"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/storage"
	"github.com/ajitpratap0/bolasso/pkg/tabular"
)

const commandFeatures = "features"

// FeaturesPipeline turns a training and a testing CSV into a sparse model
// matrix, an auxiliary dense table and optionally a feature map
type FeaturesPipeline struct {
	cfg     config.FeaturesConfig
	recipe  *config.Recipe
	storage storage.Options
	format  tabular.Format
	logger  *zap.Logger
}

// NewFeaturesPipeline validates cfg and resolves the recipe. A nil recipe is
// loaded from cfg.Recipe, or the embedded default when that is empty.
func NewFeaturesPipeline(cfg config.FeaturesConfig, recipe *config.Recipe, log *zap.Logger) (*FeaturesPipeline, error) {
	if cfg.AuxFormat == "" {
		cfg.AuxFormat = string(tabular.FormatCSV)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var err error
	if recipe == nil {
		if cfg.Recipe != "" {
			recipe, err = config.LoadRecipe(cfg.Recipe)
		} else {
			recipe, err = config.DefaultRecipe()
		}
		if err != nil {
			return nil, err
		}
	}

	opts, err := storageOptions(cfg.Storage)
	if err != nil {
		return nil, err
	}
	format, err := tabular.ParseFormat(cfg.AuxFormat)
	if err != nil {
		return nil, err
	}

	return &FeaturesPipeline{
		cfg:     cfg,
		recipe:  recipe,
		storage: opts,
		format:  format,
		logger:  logger.OrNop(log).With(zap.String("component", "pipeline"), zap.String("command", commandFeatures)),
	}, nil
}

// Run executes the recipe. The sparse output is closed exactly once whether
// or not a step fails.
func (p *FeaturesPipeline) Run(ctx context.Context) (*FeaturesStats, error) {
	start := time.Now()
	p.logger.Info("starting feature engineering",
		zap.String("recipe", p.recipe.Name),
		zap.String("train", p.cfg.Train),
		zap.String("test", p.cfg.Test),
		zap.Int("transforms", len(p.recipe.Transforms)))

	var train, test *columnar.Table
	err := step(ctx, p.logger, commandFeatures, "load", func(ctx context.Context) error {
		var err error
		if train, err = p.readTable(ctx, p.cfg.Train); err != nil {
			return err
		}
		test, err = p.readTable(ctx, p.cfg.Test)
		return err
	})
	if err != nil {
		return nil, err
	}

	out, err := storage.Create(ctx, p.cfg.CSC, p.storage)
	if err != nil {
		return nil, err
	}
	engine, err := features.New(train, test, out, p.logger)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	defer func() { _ = engine.Close() }()

	for _, t := range p.recipe.Transforms {
		err := step(ctx, p.logger, commandFeatures, t.Kind, func(context.Context) error {
			return apply(engine, t)
		}, attribute.String("column", t.Column))
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "transform failed").
				WithDetail("kind", t.Kind).
				WithDetail("column", t.Column)
		}
	}

	outstanding := make(map[string]struct{})
	for _, name := range engine.Outstanding() {
		outstanding[name] = struct{}{}
	}
	for _, name := range p.recipe.Auxiliary {
		if _, ok := outstanding[name]; ok {
			if err := engine.Keep(name); err != nil {
				return nil, err
			}
		}
	}

	if p.recipe.Interactions {
		err := step(ctx, p.logger, commandFeatures, "interactions", func(context.Context) error {
			return engine.Interactions()
		})
		if err != nil {
			return nil, err
		}
	}

	stats := &FeaturesStats{
		Recipe:       p.recipe.Name,
		Rows:         engine.Rows(),
		TrainingRows: engine.TrainingRows(),
		Originals:    engine.FeatureMap().Len(),
		Outstanding:  engine.Outstanding(),
	}
	for _, entry := range engine.FeatureMap().Entries() {
		stats.Derived += len(entry.Derived)
	}

	err = step(ctx, p.logger, commandFeatures, "close", func(context.Context) error {
		return engine.Close()
	})
	if err != nil {
		return nil, err
	}
	stats.Written = engine.Written()

	if len(p.recipe.Auxiliary) > 0 {
		err = step(ctx, p.logger, commandFeatures, "auxiliary", func(ctx context.Context) error {
			return p.writeOutput(ctx, p.cfg.Aux, func(w *countingWriter) error {
				return engine.WriteAuxiliary(w, p.format, p.recipe.Auxiliary...)
			})
		}, attribute.String("format", string(p.format)))
		if err != nil {
			return nil, err
		}
	} else {
		p.logger.Warn("recipe lists no auxiliary columns, skipping auxiliary output")
	}

	if p.cfg.FeatureMap != "" {
		err = step(ctx, p.logger, commandFeatures, "feature_map", func(ctx context.Context) error {
			return p.writeOutput(ctx, p.cfg.FeatureMap, func(w *countingWriter) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(engine.FeatureMap().Entries()); err != nil {
					return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode feature map")
				}
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	p.logger.Info("feature engineering complete",
		zap.Int("rows", stats.Rows),
		zap.Int("written", stats.Written),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

func (p *FeaturesPipeline) readTable(ctx context.Context, uri string) (*columnar.Table, error) {
	in, err := storage.Open(ctx, uri, p.storage)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	opts := tabular.DefaultReadOptions()
	if p.recipe.Input.MissingTokens != nil {
		opts.MissingTokens = p.recipe.Input.MissingTokens
	}
	opts.TrimSpace = p.recipe.Input.Trim()

	table, err := tabular.ReadCSV(in, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.TypeOf(err), "failed to read input").WithDetail("path", uri)
	}
	p.logger.Debug("input loaded",
		zap.String("path", uri),
		zap.Int("rows", table.Rows()),
		zap.Int("columns", table.Len()))
	return table, nil
}

func (p *FeaturesPipeline) writeOutput(ctx context.Context, uri string, fn func(w *countingWriter) error) error {
	out, err := storage.Create(ctx, uri, p.storage)
	if err != nil {
		return err
	}
	w := &countingWriter{w: out}
	if err := fn(w); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	p.logger.Debug("output written", zap.String("path", uri), zap.Int64("bytes", w.n))
	return nil
}

// apply runs one recipe transform against the engine
func apply(engine *features.Engine, t config.Transform) error {
	switch t.Kind {
	case config.KindCategorical:
		return engine.Categorical(t.Column)
	case config.KindContinuous:
		return engine.Continuous(t.Column, features.ContinuousOptions{
			Squared:              t.Squared,
			Cubed:                t.Cubed,
			Log:                  t.Log,
			TopCode:              t.TopCode,
			OmitMissingIndicator: !t.MissingIndicator(),
		})
	case config.KindHurdle:
		return engine.Hurdle(t.Column, features.HurdleOptions{
			Threshold:            t.Threshold,
			Squared:              t.Squared,
			Cubed:                t.Cubed,
			Log:                  t.Log,
			TopCode:              t.TopCode,
			OmitMissingIndicator: !t.MissingIndicator(),
		})
	case config.KindDrop:
		return engine.Drop(t.Column)
	case config.KindKeep:
		return engine.Keep(t.Column)
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown transform kind").WithDetail("kind", t.Kind)
	}
}
