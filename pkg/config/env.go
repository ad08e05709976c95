package config

import (
	"os"
	"strconv"

	"github.com/XiaoConstantine/genetic-go/pkg/errors"
)

// Environment variables recognized by ApplyEnv. Each overrides the matching
// config field when set.
const (
	EnvTarget      = "GENETIC_TARGET"
	EnvGenerations = "GENETIC_GENERATIONS"
	EnvSeed        = "GENETIC_SEED"
	EnvPrefix      = "GENETIC_PREFIX"
	EnvLogLevel    = "GENETIC_LOG_LEVEL"
)

// ApplyEnv layers environment-variable overrides onto the config. Files win
// over defaults, the environment wins over files.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvTarget); v != "" {
		target, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvTarget, v, err)
		}
		c.Genome.Target = target
	}
	if v := os.Getenv(EnvGenerations); v != "" {
		generations, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvGenerations, v, err)
		}
		c.Run.Generations = generations
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError(EnvSeed, v, err)
		}
		c.Run.Seed = seed
	}
	if v := os.Getenv(EnvPrefix); v != "" {
		c.Population.Prefix = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

func envError(name, value string, err error) error {
	return errors.WithFields(
		errors.Wrap(err, errors.InvalidConfig, "invalid environment override"),
		errors.Fields{"variable": name, "value": value})
}
