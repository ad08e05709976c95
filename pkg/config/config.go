// Package config loads and validates run configuration from YAML files,
// layering file values over defaults.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/genetic-go/pkg/engine"
	"github.com/XiaoConstantine/genetic-go/pkg/errors"
	"github.com/XiaoConstantine/genetic-go/pkg/genome"
	"github.com/XiaoConstantine/genetic-go/pkg/population"
)

// Config is the full configuration for an experiment: the genome parameters,
// the population parameters, the run settings, and where results go.
type Config struct {
	Genome     genome.Config     `yaml:"genome" validate:"required"`
	Population population.Config `yaml:"population" validate:"required"`
	Run        engine.Config     `yaml:"run" validate:"required"`

	// Seeds lists one seed per restart. Empty means a single run seeded
	// from Run.seed.
	Seeds []int64 `yaml:"seeds"`

	// Concurrency bounds parallel restarts. Zero means unbounded.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`

	// HistoryPath, when set, is where the best run's per-generation
	// history is written as Parquet.
	HistoryPath string `yaml:"history_path"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR, FATAL.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
}

// Default returns the stock configuration, the same demo parameters the CLI
// runs with no arguments.
func Default() Config {
	return Config{
		Genome:     genome.DefaultConfig(),
		Population: population.DefaultConfig(),
		Run:        engine.DefaultConfig(),
		LogLevel:   "INFO",
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithFields(
			errors.Wrap(err, errors.InvalidConfig, "failed to read config file"),
			errors.Fields{"path": path})
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WithFields(
			errors.Wrap(err, errors.InvalidConfig, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation plus the per-section checks.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "config validation failed"),
				errors.Fields{
					"field": first.Namespace(),
					"tag":   first.Tag(),
					"value": first.Value(),
				})
		}
		return errors.Wrap(err, errors.ValidationFailed, "config validation failed")
	}

	if err := c.Genome.Validate(); err != nil {
		return err
	}
	if err := c.Population.Validate(); err != nil {
		return err
	}
	return c.Run.Validate()
}

// Experiment converts the loaded config into the engine's experiment form.
func (c Config) Experiment() engine.ExperimentConfig {
	return engine.ExperimentConfig{
		Run:         c.Run,
		Population:  c.Population,
		Genome:      c.Genome,
		Seeds:       c.Seeds,
		Concurrency: c.Concurrency,
	}
}
