package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/bolasso/pkg/config"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// flagKeys maps persistent flags to configuration keys
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-format":        "log.format",
	"metrics-file":      "metrics_file",
	"trace":             "trace",
	"region":            "storage.region",
	"credentials-file":  "storage.credentials_file",
	"compression-level": "storage.compression_level",
}

// loadAppConfig resolves the shared settings.
// Precedence (highest to lowest): flags > BOLASSO_* env vars > config file > defaults
func loadAppConfig(file string, cmd *cobra.Command) (config.AppConfig, error) {
	v := viper.New()

	defaults := config.DefaultAppConfig()
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("metrics_file", defaults.MetricsFile)
	v.SetDefault("trace", defaults.Trace)
	v.SetDefault("storage.region", defaults.Storage.Region)
	v.SetDefault("storage.credentials_file", defaults.Storage.CredentialsFile)
	v.SetDefault("storage.compression_level", defaults.Storage.CompressionLevel)

	v.SetEnvPrefix("BOLASSO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config.AppConfig{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", file)
		}
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return config.AppConfig{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").
				WithDetail("flag", name)
		}
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return config.AppConfig{}, errors.Wrap(err, errors.ErrorTypeConfig, "unable to decode config")
	}
	if err := config.Validate(cfg); err != nil {
		return config.AppConfig{}, err
	}
	return cfg, nil
}
