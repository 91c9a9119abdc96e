package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/internal/pipeline"
	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

func newFeaturesCommand(a *app) *cobra.Command {
	var cfg config.FeaturesConfig

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Expand raw training and testing tables into a sparse model matrix",
		Long: `Apply a feature recipe to a training and a testing CSV table.

Derived columns are streamed to a sparse column file; the auxiliary columns
listed by the recipe (partition label, outcome, weights) are written as a dense
table in row order. Without --recipe the built-in UCI Adult recipe is used.

Example:
  bolasso features --train adult.data --test adult.test \
    --csc X.csc.gz --aux aux.csv --feature-map features.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Storage = a.cfg.Storage
			p, err := pipeline.NewFeaturesPipeline(cfg, nil, a.log)
			if err != nil {
				return err
			}
			stats, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("wrote sparse matrix",
				zap.String("path", cfg.CSC),
				zap.Int("rows", stats.Rows),
				zap.Int("columns", stats.Written))
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Train, "train", "", "Training partition CSV (required)")
	cmd.Flags().StringVar(&cfg.Test, "test", "", "Testing partition CSV (required)")
	cmd.Flags().StringVar(&cfg.CSC, "csc", "", "Sparse column output (required)")
	cmd.Flags().StringVar(&cfg.Aux, "aux", "", "Auxiliary dense output (required)")
	cmd.Flags().StringVar(&cfg.AuxFormat, "aux-format", "csv", "Auxiliary output format (csv, parquet)")
	cmd.Flags().StringVar(&cfg.Recipe, "recipe", "", "Feature recipe YAML file")
	cmd.Flags().StringVar(&cfg.FeatureMap, "feature-map", "", "Write the derived column provenance as JSON")
	for _, name := range []string{"train", "test", "csc", "aux"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newSelectCommand(a *app) *cobra.Command {
	var meanFile string
	var summary int

	cmd := &cobra.Command{
		Use:   "select <threshold> <coef files...> <freq file> <out file>",
		Short: "Aggregate bootstrap coefficients into a selected variable set",
		Long: `Count, for every variable, the fraction of coefficient files in which its
coefficient is non-zero, and select the variables whose frequency is at least
the threshold. A selected interaction A_X_B also selects A and B.

Each coefficient file is a CSV table with var and coef columns; an intercept
row is ignored.

Example:
  bolasso select 0.9 runs/*.csv freq.csv selected.csv`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseSelectArgs(args)
			if err != nil {
				return err
			}
			cfg.MeanCoefFile = meanFile
			cfg.Summary = summary
			cfg.Storage = a.cfg.Storage

			p, err := pipeline.NewSelectPipeline(cfg, a.log)
			if err != nil {
				return err
			}
			if _, err := p.Run(cmd.Context()); err != nil {
				return err
			}
			if summary > 0 {
				pipeline.RenderFrequencies(cmd.OutOrStdout(), p.Frequencies(), p.Selected(), summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&meanFile, "mean-coef", "", "Also write the run-averaged non-zero coefficients")
	cmd.Flags().IntVar(&summary, "summary", 0, "Print the N most frequently selected variables")
	return cmd
}

// parseSelectArgs splits <threshold> <coef files...> <freq file> <out file>
func parseSelectArgs(args []string) (config.SelectConfig, error) {
	if len(args) < 4 {
		return config.SelectConfig{}, errors.New(errors.ErrorTypeConfig,
			"expected <threshold> <coef files...> <freq file> <out file>").
			WithDetail("args", len(args))
	}
	threshold, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return config.SelectConfig{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid threshold").
			WithDetail("threshold", args[0])
	}
	n := len(args)
	return config.SelectConfig{
		Threshold: threshold,
		CoefFiles: args[1 : n-2],
		FreqFile:  args[n-2],
		OutFile:   args[n-1],
	}, nil
}

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <csc file>",
		Short: "Summarise a sparse column file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := pipeline.Inspect(cmd.Context(), args[0], a.cfg.Storage)
			if err != nil {
				return err
			}
			pipeline.RenderMatrix(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}
