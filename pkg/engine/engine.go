// Package engine drives the generational loop: seed a population, then
// repeatedly select, cull, mutate, and breed until the population converges
// on the fitness target or the generation budget runs out.
package engine

import (
	"context"
	"io"
	"math/rand"
	"os"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/genetic-go/pkg/errors"
	"github.com/XiaoConstantine/genetic-go/pkg/genome"
	"github.com/XiaoConstantine/genetic-go/pkg/logging"
	"github.com/XiaoConstantine/genetic-go/pkg/population"
)

// Config controls a single evolutionary run.
type Config struct {
	// Generations caps how many selection/breeding rounds run before the
	// engine gives up on convergence.
	Generations int `yaml:"generations" validate:"required,gt=0"`

	// SelectionRate is the fraction of the population kept as-is each
	// generation. Members below the resulting fitness cutoff face the
	// mutate-or-evict coin flip.
	SelectionRate float64 `yaml:"selection_rate" validate:"gt=0,lte=1"`

	// MutationRate is the probability an unfit member is mutated rather
	// than evicted.
	MutationRate float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// Seed fixes the random source. Zero means seed from the runtime.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the standard run settings.
func DefaultConfig() Config {
	return Config{
		Generations:   5,
		SelectionRate: 0.2,
		MutationRate:  0.02,
	}
}

// Validate checks the run settings.
func (c Config) Validate() error {
	if c.Generations <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "generations must be positive"),
			errors.Fields{"generations": c.Generations})
	}
	if c.SelectionRate <= 0 || c.SelectionRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "selection rate must be in (0, 1]"),
			errors.Fields{"selection_rate": c.SelectionRate})
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "mutation rate must be in [0, 1]"),
			errors.Fields{"mutation_rate": c.MutationRate})
	}
	return nil
}

// GenerationStats captures one generation's aggregate state, recorded after
// selection and breeding complete.
type GenerationStats struct {
	Generation  int     `json:"generation"`
	MSE         float64 `json:"mse"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	Size        int     `json:"size"`
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	RunID       string
	Seed        int64
	Converged   bool
	Generations int
	Best        *genome.Individual
	History     []GenerationStats
}

// Engine owns one population and steps it through generations.
type Engine struct {
	cfg      Config
	popCfg   population.Config
	genCfg   genome.Config
	runID    string
	seed     int64
	rng      *rand.Rand
	pop      *population.Population
	progress io.Writer
	popOpts  []population.Option
}

// Option customizes an Engine.
type Option func(*Engine)

// WithProgressWriter redirects the per-generation progress lines and the
// final summary. Defaults to stdout.
func WithProgressWriter(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// WithPopulationOptions forwards options to the underlying population,
// typically a store or a larger dedup filter.
func WithPopulationOptions(opts ...population.Option) Option {
	return func(e *Engine) { e.popOpts = append(e.popOpts, opts...) }
}

// New builds an Engine. The population is created fresh; call Run to seed
// and evolve it.
func New(cfg Config, popCfg population.Config, genCfg genome.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		popCfg:   popCfg,
		genCfg:   genCfg,
		runID:    uuid.New().String(),
		seed:     cfg.Seed,
		progress: os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.seed == 0 {
		e.seed = rand.Int63()
	}
	e.rng = rand.New(rand.NewSource(e.seed))

	popOpts := append([]population.Option{
		population.WithRand(e.rng),
		population.WithProgressWriter(e.progress),
	}, e.popOpts...)

	pop, err := population.New(popCfg, genCfg, popOpts...)
	if err != nil {
		return nil, err
	}
	e.pop = pop

	return e, nil
}

// RunID identifies this run in logs and exports.
func (e *Engine) RunID() string { return e.runID }

// Population exposes the live population, mainly for reporting after Run.
func (e *Engine) Population() *population.Population { return e.pop }

// Run seeds the population and evolves it generation by generation until it
// converges or the generation budget is exhausted. The returned result holds
// the best individual seen and per-generation history either way.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	ctx = logging.WithRunID(ctx, e.runID)
	logger := logging.GetLogger()

	logger.Info(ctx, "starting run: target=%d n_pop=%d generations=%d seed=%d",
		e.genCfg.Target, e.popCfg.NPop, e.cfg.Generations, e.seed)

	if err := e.pop.Populate(ctx, 0); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to seed population")
	}

	result := &RunResult{
		RunID: e.runID,
		Seed:  e.seed,
	}

	for gen := 1; gen <= e.cfg.Generations; gen++ {
		if err := errors.CheckContext(ctx, "advance generation"); err != nil {
			return nil, err
		}
		genCtx := logging.WithGeneration(ctx, gen)

		cutoff, err := e.pop.FitnessCutoff(e.cfg.SelectionRate)
		if err != nil {
			return nil, err
		}
		logger.Debug(genCtx, "fitness cutoff %.4f", cutoff)

		if err := e.pop.AdvanceGeneration(ctx, gen, cutoff, e.cfg.MutationRate); err != nil {
			return nil, err
		}

		stats, err := e.collectStats(gen)
		if err != nil {
			return nil, err
		}
		result.History = append(result.History, stats)
		result.Generations = gen

		converged, err := e.pop.TestTermination(ctx, gen)
		if err != nil {
			return nil, err
		}
		if converged {
			result.Converged = true
			logger.Info(genCtx, "converged after %d generations", gen)
			break
		}
	}

	best, err := e.pop.Best()
	if err != nil {
		return nil, err
	}
	result.Best = best

	if !result.Converged {
		logger.Info(ctx, "generation budget exhausted; best fitness %.4f", best.Fitness)
	}

	return result, nil
}

func (e *Engine) collectStats(generation int) (GenerationStats, error) {
	mse, err := e.pop.MeanSquaredError()
	if err != nil {
		return GenerationStats{}, err
	}
	best, err := e.pop.Best()
	if err != nil {
		return GenerationStats{}, err
	}
	mean, err := e.pop.MeanFitness()
	if err != nil {
		return GenerationStats{}, err
	}
	return GenerationStats{
		Generation:  generation,
		MSE:         mse,
		BestFitness: best.Fitness,
		MeanFitness: mean,
		Size:        e.pop.Size(),
	}, nil
}
