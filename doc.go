// Package genetic is a Go implementation of a generational genetic algorithm
// engine: bounded populations of integer feature sets evolved toward a target
// through fitness-based selection, mutation, and crossover.
//
// The engine keeps a population deduplicated with a two-tier scheme: a bloom
// filter screens candidate fingerprints cheaply and an exact member table
// settles the verdict, so duplicate genomes never re-enter the pool and never
// have their fitness recomputed.
//
// Key Components:
//
//   - genome: Individual feature sets with canonical fingerprints, fitness
//     scoring against the target sum, and the mutate/breed operators.
//
//   - population: The bounded, deduplicated pool. Selection cutoffs come from
//     a fitness histogram; unfit members face a mutate-or-evict coin flip and
//     survivors breed replacements each generation.
//
//   - engine: The generational loop and multi-seed experiment runner, with
//     per-generation history and convergence testing against a mean-squared
//     error limit.
//
//   - storage: Write-behind persistence for evicted individuals, in memory or
//     SQLite, with optional consistent-hash shard tagging.
//
//   - export: Parquet export of per-generation run history.
//
//   - config: YAML configuration layered over defaults and validated before a
//     run starts.
//
// The genetic-cli command under cmd/ ties these together for running
// experiments from the shell.
package genetic
