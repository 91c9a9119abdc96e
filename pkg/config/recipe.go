// Package config holds the YAML recipe that drives a feature engineering run
// and the validated settings of each command.
//
// # Recipes
//
// A recipe lists the transforms to apply, in order, to the columns of the raw
// table:
//
//	name: adult
//	input:
//	  missing_tokens: ["?"]
//	transforms:
//	  - {kind: categorical, column: workclass}
//	  - {kind: continuous, column: age, squared: true, cubed: true}
//	  - {kind: hurdle, column: capital_gain, log: true}
//	  - {kind: drop, column: education_num}
//	interactions: true
//	auxiliary: [subset, salary_50k, fnlwgt]
//
// ${VAR_NAME} references are replaced with environment variable values
// before parsing. The recipe for the UCI Adult data set is embedded and used
// when no recipe is given.
package config

import (
	_ "embed"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Transform kinds
const (
	KindCategorical = "categorical"
	KindContinuous  = "continuous"
	KindHurdle      = "hurdle"
	KindDrop        = "drop"
	KindKeep        = "keep"
)

//go:embed recipes/adult.yaml
var adultRecipe []byte

// Recipe describes a feature engineering run
type Recipe struct {
	Name         string      `yaml:"name" json:"name"`
	Input        InputConfig `yaml:"input" json:"input"`
	Transforms   []Transform `yaml:"transforms" json:"transforms" validate:"unique=Column,dive"`
	Interactions bool        `yaml:"interactions" json:"interactions"`
	// Auxiliary columns are written to the dense side table. Any that are
	// still outstanding when the transforms finish are kept automatically.
	Auxiliary []string `yaml:"auxiliary" json:"auxiliary" validate:"dive,required"`
}

// InputConfig controls how raw CSV values are read
type InputConfig struct {
	MissingTokens []string `yaml:"missing_tokens" json:"missing_tokens"`
	// TrimSpace defaults to true when omitted.
	TrimSpace *bool `yaml:"trim_space,omitempty" json:"trim_space,omitempty"`
}

// Trim reports whether values should be trimmed
func (c InputConfig) Trim() bool {
	return c.TrimSpace == nil || *c.TrimSpace
}

// Transform is one step of a recipe
type Transform struct {
	Kind   string `yaml:"kind" json:"kind" validate:"required,oneof=categorical continuous hurdle drop keep"`
	Column string `yaml:"column" json:"column" validate:"required"`

	Squared bool    `yaml:"squared,omitempty" json:"squared,omitempty"`
	Cubed   bool    `yaml:"cubed,omitempty" json:"cubed,omitempty"`
	Log     bool    `yaml:"log,omitempty" json:"log,omitempty"`
	TopCode float64 `yaml:"topcode,omitempty" json:"topcode,omitempty" validate:"gte=0,lt=1"`
	// Missing disables the missing indicator when set to false.
	Missing *bool `yaml:"missing,omitempty" json:"missing,omitempty"`
	// Threshold is the hurdle mass point.
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// MissingIndicator reports whether a missing indicator is requested
func (t Transform) MissingIndicator() bool {
	return t.Missing == nil || *t.Missing
}

// DefaultRecipe returns the embedded UCI Adult recipe
func DefaultRecipe() (*Recipe, error) {
	return ParseRecipe(adultRecipe)
}

// LoadRecipe reads and validates a recipe file
func LoadRecipe(path string) (*Recipe, error) {
	var r Recipe
	if err := Load(path, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseRecipe decodes and validates a recipe
func ParseRecipe(data []byte) (*Recipe, error) {
	var r Recipe
	if err := Parse(data, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks field constraints and that options only appear on the
// transforms that use them
func (r *Recipe) Validate() error {
	if err := Validate(r); err != nil {
		return err
	}
	for i, t := range r.Transforms {
		numeric := t.Kind == KindContinuous || t.Kind == KindHurdle
		if !numeric && (t.Squared || t.Cubed || t.Log || t.TopCode != 0 || t.Missing != nil) {
			return errors.New(errors.ErrorTypeConfig, "numeric options are only valid on continuous and hurdle transforms").
				WithDetail("transform", i).
				WithDetail("column", t.Column)
		}
		if t.Kind != KindHurdle && t.Threshold != 0 {
			return errors.New(errors.ErrorTypeConfig, "threshold is only valid on hurdle transforms").
				WithDetail("transform", i).
				WithDetail("column", t.Column)
		}
	}
	return nil
}
