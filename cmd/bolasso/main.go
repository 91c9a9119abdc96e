package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/logger"
	"github.com/ajitpratap0/bolasso/pkg/metrics"
	"github.com/ajitpratap0/bolasso/pkg/observability"
)

var version = "0.1.0"

// app carries the settings and services shared by every command
type app struct {
	configFile string
	cfg        config.AppConfig
	log        *zap.Logger
	shutdown   observability.ShutdownFunc
	ready      bool
}

func main() {
	// Credentials for s3:// and gs:// may come from a local .env file
	_ = godotenv.Load()

	a := &app{}
	root := newRootCommand(a)
	err := root.Execute()
	if ferr := a.finish(); err == nil {
		err = ferr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "bolasso:", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bolasso",
		Short: "Feature engineering and stability selection for sparse linear models",
		Long: `bolasso expands a raw training/testing table into a sparse model matrix
and aggregates the coefficients of many bootstrap lasso fits into stability
selection frequencies and a selected variable set.

Paths may be local files, s3://bucket/key or gs://bucket/object. Files ending
in .gz, .zst, .sz, .s2 or .lz4 are compressed transparently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file when the command ends")
	flags.Bool("trace", false, "Print OpenTelemetry spans for each step to stderr")
	flags.String("region", "", "AWS region for s3:// paths")
	flags.String("credentials-file", "", "Service account key for gs:// paths")
	flags.String("compression-level", "default", "Output compression level (fastest, default, better, best)")

	root.AddCommand(
		newFeaturesCommand(a),
		newSelectCommand(a),
		newInspectCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Args:  cobra.NoArgs,
			PersistentPreRunE: func(*cobra.Command, []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "bolasso v%s\n", version)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	return root
}

// setup loads the configuration and starts logging and tracing
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadAppConfig(a.configFile, cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Format,
	}); err != nil {
		return err
	}
	a.log = logger.With(zap.String("command", cmd.Name()))

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Trace,
		ServiceName:    "bolasso",
		ServiceVersion: version,
		Output:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	a.ready = true
	return nil
}

// finish flushes spans, writes the metrics file and syncs the logger. It runs
// whether or not the command failed.
func (a *app) finish() error {
	if !a.ready {
		return nil
	}
	var err error
	if serr := a.shutdown(context.Background()); serr != nil {
		err = serr
	}
	if a.cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(a.cfg.MetricsFile); merr != nil && err == nil {
			err = merr
		}
	}
	_ = logger.Sync()
	return err
}
