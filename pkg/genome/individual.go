// Package genome implements the candidate solutions of the evolutionary
// engine: fixed-length sorted integer feature sets identified by a
// content-derived fingerprint.
package genome

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"math/rand"
	"sort"
)

// Reifier is the population-side contract an individual needs for
// reproduction: admission of a new candidate and removal of a dead one.
// Reify reports whether the candidate was admitted; duplicates are
// silently rejected.
type Reifier interface {
	Reify(ind *Individual) bool
	Evict(ind *Individual)
}

// Individual is one candidate solution. Features are held in ascending
// sorted order and must never change once the fingerprint is derived;
// mutation and crossover construct new individuals instead of editing
// one in place.
type Individual struct {
	Generation  int     `json:"generation"`
	Features    []int   `json:"features"`
	Fingerprint string  `json:"fingerprint"`
	Fitness     float64 `json:"fitness"`
}

// New binds a generation and feature set into an individual and derives its
// fingerprint. The features are copied and canonicalized (sorted ascending),
// so two individuals built from the same multiset of values always share a
// fingerprint regardless of input order.
func New(generation int, features []int) *Individual {
	canonical := make([]int, len(features))
	copy(canonical, features)
	sort.Ints(canonical)

	return &Individual{
		Generation:  generation,
		Features:    canonical,
		Fingerprint: FingerprintOf(canonical),
	}
}

// RandomFeatures draws a fresh feature set: Length independent uniform
// integers in [Min, Max], sorted ascending.
func RandomFeatures(cfg Config, rng *rand.Rand) []int {
	features := make([]int, cfg.Length)
	for i := range features {
		features[i] = cfg.Min + rng.Intn(cfg.Max-cfg.Min+1)
	}
	sort.Ints(features)
	return features
}

// FingerprintOf hashes the canonical JSON serialization of a feature set
// with SHA-224. The serialization is byte-stable (fixed separators, no
// floating point), so the digest is reproducible across implementations
// and usable as a persisted-store key. The input is hashed exactly as
// given; callers are responsible for passing the canonical sorted form.
func FingerprintOf(features []int) string {
	data, err := json.Marshal(features)
	if err != nil {
		// A []int cannot fail to marshal.
		panic(err)
	}
	sum := sha256.Sum224(data)
	return hex.EncodeToString(sum[:])
}

// FeaturesJSON returns the canonical JSON array used both for hashing and
// for reporting.
func (ind *Individual) FeaturesJSON() string {
	data, err := json.Marshal(ind.Features)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// ParseFeatures decodes a canonical JSON feature array back into the
// ordered sequence it was serialized from.
func ParseFeatures(data string) ([]int, error) {
	var features []int
	if err := json.Unmarshal([]byte(data), &features); err != nil {
		return nil, err
	}
	return features, nil
}

// ComputeFitness derives fitness from the feature-set sum:
// 1 - |sum - target| / target. Exactly 1.0 on an exact match, unbounded
// below when the sum diverges far enough; no clamping. Pure in the
// feature set and target, so recomputation is idempotent.
func (ind *Individual) ComputeFitness(cfg Config) {
	sum := 0
	for _, f := range ind.Features {
		sum += f
	}
	ind.Fitness = 1.0 - math.Abs(float64(sum-cfg.Target))/float64(cfg.Target)
}

// Mutate re-rolls one uniformly chosen feature position, re-sorts, and asks
// the population to reify the resulting candidate at the given generation.
// The original is evicted only when the mutant was actually admitted, so a
// duplicate mutation never costs the population a member.
func (ind *Individual) Mutate(pop Reifier, generation int, cfg Config, rng *rand.Rand) {
	mutated := make([]int, len(ind.Features))
	copy(mutated, ind.Features)
	mutated[rng.Intn(len(mutated))] = cfg.Min + rng.Intn(cfg.Max-cfg.Min+1)

	mutant := New(generation, mutated)
	if pop.Reify(mutant) {
		pop.Evict(ind)
	}
}

// Breed performs single-point crossover with a mate: the caller's tail half
// (from the midpoint, remainder included) concatenated with the mate's head
// half, re-sorted, reified at the given generation. Purely additive; neither
// parent is evicted. Both feature sets must have the run's fixed length.
func (ind *Individual) Breed(pop Reifier, generation int, mate *Individual) {
	half := len(ind.Features) / 2

	combined := make([]int, 0, len(ind.Features))
	combined = append(combined, ind.Features[half:]...)
	combined = append(combined, mate.Features[:half]...)

	pop.Reify(New(generation, combined))
}
