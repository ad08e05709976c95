package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/genetic-go/pkg/genome"
	"github.com/XiaoConstantine/genetic-go/pkg/population"
)

func testConfigs() (Config, population.Config, genome.Config) {
	runCfg := Config{
		Generations:   10,
		SelectionRate: 0.5,
		MutationRate:  0.3,
		Seed:          42,
	}

	popCfg := population.DefaultConfig()
	popCfg.FilterBits = 1 << 16
	popCfg.FilterProbes = 7

	genCfg := genome.Config{Target: 100, Length: 3, Min: 0, Max: 100}

	return runCfg, popCfg, genCfg
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero generations", func(c *Config) { c.Generations = 0 }, true},
		{"negative generations", func(c *Config) { c.Generations = -1 }, true},
		{"zero selection rate", func(c *Config) { c.SelectionRate = 0 }, true},
		{"selection rate above one", func(c *Config) { c.SelectionRate = 1.5 }, true},
		{"full selection rate", func(c *Config) { c.SelectionRate = 1.0 }, false},
		{"negative mutation rate", func(c *Config) { c.MutationRate = -0.1 }, true},
		{"mutation rate above one", func(c *Config) { c.MutationRate = 1.1 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()
	runCfg.Generations = 0

	_, err := New(runCfg, popCfg, genCfg)
	assert.Error(t, err)
}

func TestEngineRunRecordsHistory(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()

	var progress bytes.Buffer
	eng, err := New(runCfg, popCfg, genCfg, WithProgressWriter(&progress))
	require.NoError(t, err)
	assert.NotEmpty(t, eng.RunID())

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, eng.RunID(), result.RunID)
	assert.Equal(t, int64(42), result.Seed)
	require.NotNil(t, result.Best)
	assert.GreaterOrEqual(t, result.Generations, 1)
	assert.Len(t, result.History, result.Generations)

	for i, stats := range result.History {
		assert.Equal(t, i+1, stats.Generation)
		assert.Greater(t, stats.Size, 0)
		assert.GreaterOrEqual(t, stats.BestFitness, stats.MeanFitness)
	}

	// One progress line per completed generation.
	lines := bytes.Count(progress.Bytes(), []byte("\n"))
	assert.Equal(t, result.Generations, lines)
}

func TestEngineRunDeterministicForSeed(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()

	runOnce := func() *RunResult {
		var progress bytes.Buffer
		eng, err := New(runCfg, popCfg, genCfg, WithProgressWriter(&progress))
		require.NoError(t, err)
		result, err := eng.Run(context.Background())
		require.NoError(t, err)
		return result
	}

	first := runOnce()
	second := runOnce()

	assert.Equal(t, first.Generations, second.Generations)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Best.Fingerprint, second.Best.Fingerprint)
}

func TestEngineRunCanceledContext(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()

	eng, err := New(runCfg, popCfg, genCfg, WithProgressWriter(&bytes.Buffer{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.Run(ctx)
	assert.Error(t, err)
}

func TestEngineConvergesOnTargetSum(t *testing.T) {
	popCfg := population.Config{
		Prefix:          "/tmp/genetic",
		NPop:            11,
		TermLimit:       5.0e-03,
		HistGranularity: 3,
		FilterBits:      1 << 16,
		FilterProbes:    7,
	}
	genCfg := genome.Config{Target: 231, Length: 5, Min: 0, Max: 100}

	bestFitness := -1.0
	for _, seed := range []int64{1, 2, 3} {
		runCfg := Config{
			Generations:   300,
			SelectionRate: 0.5,
			MutationRate:  0.3,
			Seed:          seed,
		}

		eng, err := New(runCfg, popCfg, genCfg, WithProgressWriter(&bytes.Buffer{}))
		require.NoError(t, err)

		result, err := eng.Run(context.Background())
		if err != nil {
			// A seed can in principle evict its way below two parents;
			// the other seeds still have to carry the assertion.
			t.Logf("seed %d failed: %v", seed, err)
			continue
		}
		if result.Best.Fitness > bestFitness {
			bestFitness = result.Best.Fitness
		}
	}

	assert.GreaterOrEqual(t, bestFitness, 0.99,
		"no seed came within 1%% of the target sum")
}

func TestRunExperimentPicksBestSeed(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()

	result, err := RunExperiment(context.Background(), ExperimentConfig{
		Run:         runCfg,
		Population:  popCfg,
		Genome:      genCfg,
		Seeds:       []int64{7, 11, 13},
		Concurrency: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Runs, 3)
	require.NotNil(t, result.Best)

	seeds := make(map[int64]bool)
	for _, run := range result.Runs {
		require.NotNil(t, run)
		require.NotNil(t, run.Best)
		seeds[run.Seed] = true
		assert.LessOrEqual(t, run.Best.Fitness, result.Best.Best.Fitness)
	}
	assert.Equal(t, map[int64]bool{7: true, 11: true, 13: true}, seeds)
}

func TestRunExperimentDefaultsToSingleRun(t *testing.T) {
	runCfg, popCfg, genCfg := testConfigs()

	result, err := RunExperiment(context.Background(), ExperimentConfig{
		Run:        runCfg,
		Population: popCfg,
		Genome:     genCfg,
	})
	require.NoError(t, err)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, int64(42), result.Runs[0].Seed)
}

func TestBetterRun(t *testing.T) {
	high := &RunResult{Best: &genome.Individual{Fitness: 0.9}, Converged: true, Generations: 5}
	low := &RunResult{Best: &genome.Individual{Fitness: 0.5}, Converged: true, Generations: 2}
	assert.True(t, betterRun(high, low))
	assert.False(t, betterRun(low, high))

	converged := &RunResult{Best: &genome.Individual{Fitness: 0.9}, Converged: true, Generations: 5}
	exhausted := &RunResult{Best: &genome.Individual{Fitness: 0.9}, Converged: false, Generations: 5}
	assert.True(t, betterRun(converged, exhausted))

	fast := &RunResult{Best: &genome.Individual{Fitness: 0.9}, Converged: true, Generations: 2}
	assert.True(t, betterRun(fast, converged))
}
