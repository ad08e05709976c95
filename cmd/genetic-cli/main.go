package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/XiaoConstantine/genetic-go/pkg/config"
	"github.com/XiaoConstantine/genetic-go/pkg/engine"
	"github.com/XiaoConstantine/genetic-go/pkg/export"
	"github.com/XiaoConstantine/genetic-go/pkg/logging"
	"github.com/XiaoConstantine/genetic-go/pkg/population"
	"github.com/XiaoConstantine/genetic-go/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	target := flag.Int("target", 0, "Override the target feature-set sum")
	generations := flag.Int("generations", 0, "Override the generation budget")
	seed := flag.Int64("seed", 0, "Override the random seed")
	dbPath := flag.String("db", "", "SQLite path for evicted-individual history")
	historyPath := flag.String("history", "", "Parquet path for per-generation history")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if *target > 0 {
		cfg.Genome.Target = *target
	}
	if *generations > 0 {
		cfg.Run.Generations = *generations
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	if *historyPath != "" {
		cfg.HistoryPath = *historyPath
	}

	logLevel := logging.ParseSeverity(cfg.LogLevel)
	if *debug {
		logLevel = logging.DEBUG
	}
	output := logging.NewConsoleOutput(true, logging.WithColor(true))
	logger := logging.NewLogger(logging.Config{
		Severity: logLevel,
		Outputs:  []logging.Output{output},
	})
	logging.SetLogger(logger)

	ctx := context.Background()

	var popOpts []population.Option
	if *dbPath != "" {
		store, err := storage.NewSQLiteStore(*dbPath)
		if err != nil {
			logger.Error(ctx, "Failed to open store: %v", err)
			os.Exit(1)
		}
		defer store.Close()
		popOpts = append(popOpts, population.WithStore(store))
	}

	if len(cfg.Seeds) > 1 {
		runExperiment(ctx, cfg)
		return
	}

	eng, err := engine.New(cfg.Run, cfg.Population, cfg.Genome,
		engine.WithPopulationOptions(popOpts...))
	if err != nil {
		logger.Error(ctx, "Failed to build engine: %v", err)
		os.Exit(1)
	}

	result, err := eng.Run(ctx)
	if err != nil {
		logger.Error(ctx, "Run failed: %v", err)
		os.Exit(1)
	}

	if err := eng.Population().ReportSummary(os.Stdout); err != nil {
		logger.Error(ctx, "Failed to report summary: %v", err)
		os.Exit(1)
	}

	exportHistory(ctx, cfg.HistoryPath, result)
}

func runExperiment(ctx context.Context, cfg config.Config) {
	logger := logging.GetLogger()

	result, err := engine.RunExperiment(ctx, cfg.Experiment())
	if err != nil {
		logger.Error(ctx, "Experiment failed: %v", err)
		os.Exit(1)
	}

	for _, run := range result.Runs {
		fmt.Printf("seed %d: fitness %.4f after %d generations (converged=%v)\n",
			run.Seed, run.Best.Fitness, run.Generations, run.Converged)
	}
	best := result.Best
	fmt.Printf("best: seed %d fitness %.4f features %s\n",
		best.Seed, best.Best.Fitness, best.Best.FeaturesJSON())

	exportHistory(ctx, cfg.HistoryPath, best)
}

func exportHistory(ctx context.Context, path string, result *engine.RunResult) {
	if path == "" {
		return
	}
	logger := logging.GetLogger()
	if err := export.WriteHistory(path, result); err != nil {
		logger.Error(ctx, "Failed to export history: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Wrote %d generations of history to %s", len(result.History), path)
}
