package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// AppConfig holds the settings shared by every command. It is populated by
// viper from flags, BOLASSO_* environment variables and an optional config
// file.
type AppConfig struct {
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
	MetricsFile string        `mapstructure:"metrics_file" yaml:"metrics_file"`
	Trace       bool          `mapstructure:"trace" yaml:"trace"`
	Storage     StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
}

// StorageConfig configures remote object stores and output compression
type StorageConfig struct {
	Region           string `mapstructure:"region" yaml:"region"`
	CredentialsFile  string `mapstructure:"credentials_file" yaml:"credentials_file"`
	CompressionLevel string `mapstructure:"compression_level" yaml:"compression_level" validate:"omitempty,oneof=fastest default better best"`
}

// FeaturesConfig holds the arguments of a feature engineering run
type FeaturesConfig struct {
	Train      string `validate:"required"`
	Test       string `validate:"required"`
	CSC        string `validate:"required"`
	Aux        string `validate:"required"`
	AuxFormat  string `validate:"oneof=csv parquet"`
	Recipe     string
	FeatureMap string
	Storage    StorageConfig
}

// SelectConfig holds the arguments of a stability selection run
type SelectConfig struct {
	Threshold    float64  `validate:"gte=0,lte=1"`
	CoefFiles    []string `validate:"min=1,dive,required"`
	FreqFile     string   `validate:"required"`
	OutFile      string   `validate:"required"`
	MeanCoefFile string
	Summary      int `validate:"gte=0"`
	Storage      StorageConfig
}

// DefaultAppConfig returns the settings used when nothing is configured
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Log:     LogConfig{Level: "info", Format: "console"},
		Storage: StorageConfig{CompressionLevel: "default"},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the validate tags of v. Violations are reported as a
// single config error with one detail per field.
func Validate(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to validate configuration")
	}

	messages := make([]string, 0, len(verrs))
	out := errors.New(errors.ErrorTypeConfig, "invalid configuration")
	for _, fe := range verrs {
		msg := formatValidationError(fe)
		messages = append(messages, msg)
		out.WithDetail(fe.Namespace(), msg)
	}
	out.Message = "invalid configuration: " + strings.Join(messages, "; ")
	return out
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "unique":
		return fmt.Sprintf("%s must not repeat %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
