package genome

import (
	"github.com/XiaoConstantine/genetic-go/pkg/errors"
)

// Config holds the feature-set parameters shared by every individual in a run.
// All individuals in one run use the same fixed length and value bounds, which
// is what keeps crossover well defined.
type Config struct {
	// Target is the feature-set sum an individual is evolved toward.
	Target int `yaml:"target" validate:"required,gt=0"`

	// Length is the number of features in every individual.
	Length int `yaml:"length" validate:"required,gt=0"`

	// Min and Max bound each feature value, inclusive on both ends.
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DefaultConfig returns the stock demo parameters.
func DefaultConfig() Config {
	return Config{
		Target: 231,
		Length: 5,
		Min:    0,
		Max:    100,
	}
}

// Validate checks the configuration at construction time so that no
// malformed parameter can surface mid-generation.
func (c Config) Validate() error {
	if c.Target <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "target must be positive"),
			errors.Fields{"target": c.Target})
	}
	if c.Length <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "length must be positive"),
			errors.Fields{"length": c.Length})
	}
	if c.Min > c.Max {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "min bound exceeds max bound"),
			errors.Fields{"min": c.Min, "max": c.Max})
	}
	return nil
}
