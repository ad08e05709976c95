package genome

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePopulation records reify/evict calls for reproduction tests.
type fakePopulation struct {
	admit   bool
	reified []*Individual
	evicted []*Individual
}

func (f *fakePopulation) Reify(ind *Individual) bool {
	f.reified = append(f.reified, ind)
	return f.admit
}

func (f *fakePopulation) Evict(ind *Individual) {
	f.evicted = append(f.evicted, ind)
}

func TestNewCanonicalizesFeatures(t *testing.T) {
	ind := New(0, []int{42, 7, 99, 7, 0})

	assert.True(t, sort.IntsAreSorted(ind.Features))
	assert.Equal(t, []int{0, 7, 7, 42, 99}, ind.Features)
	assert.Equal(t, FingerprintOf(ind.Features), ind.Fingerprint)

	// Same multiset in a different order collides on fingerprint.
	other := New(3, []int{7, 0, 42, 99, 7})
	assert.Equal(t, ind.Fingerprint, other.Fingerprint)
}

func TestNewCopiesInput(t *testing.T) {
	raw := []int{5, 3, 1}
	ind := New(0, raw)
	raw[0] = 100

	assert.Equal(t, []int{1, 3, 5}, ind.Features)
}

func TestFingerprintOfIsOrderSensitive(t *testing.T) {
	// The digest is defined over the exact serialization it is given, so the
	// canonical sorted form and an unsorted permutation hash differently.
	sorted := []int{1, 2, 3}
	unsorted := []int{3, 1, 2}

	assert.NotEqual(t, FingerprintOf(sorted), FingerprintOf(unsorted))
	assert.Equal(t, FingerprintOf(sorted), FingerprintOf([]int{1, 2, 3}))

	// SHA-224 hex digest: 28 bytes, 56 characters.
	assert.Len(t, FingerprintOf(sorted), 56)
}

func TestRandomFeatures(t *testing.T) {
	cfg := Config{Target: 231, Length: 5, Min: 0, Max: 100}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		features := RandomFeatures(cfg, rng)
		require.Len(t, features, cfg.Length)
		assert.True(t, sort.IntsAreSorted(features))
		for _, f := range features {
			assert.GreaterOrEqual(t, f, cfg.Min)
			assert.LessOrEqual(t, f, cfg.Max)
		}
	}
}

func TestRandomFeaturesDegenerateBounds(t *testing.T) {
	cfg := Config{Target: 10, Length: 3, Min: 7, Max: 7}
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, []int{7, 7, 7}, RandomFeatures(cfg, rng))
}

func TestComputeFitness(t *testing.T) {
	cfg := Config{Target: 231, Length: 5, Min: 0, Max: 100}

	// Exact match is exactly 1.0.
	ind := New(0, []int{0, 0, 0, 100, 131})
	ind.ComputeFitness(cfg)
	assert.Equal(t, 1.0, ind.Fitness)

	// Fitness is unbounded below: no clamping at zero.
	far := New(0, []int{100, 100, 100, 100, 100})
	far.ComputeFitness(cfg)
	assert.InDelta(t, 1.0-269.0/231.0, far.Fitness, 1e-12)
	assert.Less(t, far.Fitness, 0.0)

	// Idempotent: recomputation does not drift.
	before := far.Fitness
	far.ComputeFitness(cfg)
	assert.Equal(t, before, far.Fitness)
}

func TestFeaturesJSONRoundTrip(t *testing.T) {
	ind := New(2, []int{12, 3, 77, 0, 50})

	parsed, err := ParseFeatures(ind.FeaturesJSON())
	require.NoError(t, err)
	assert.Equal(t, ind.Features, parsed)

	_, err = ParseFeatures("not json")
	assert.Error(t, err)
}

func TestMutateEvictsOnlyOnAdmission(t *testing.T) {
	cfg := Config{Target: 231, Length: 5, Min: 0, Max: 100}
	rng := rand.New(rand.NewSource(7))
	ind := New(0, []int{1, 2, 3, 4, 5})

	pop := &fakePopulation{admit: true}
	ind.Mutate(pop, 3, cfg, rng)

	require.Len(t, pop.reified, 1)
	mutant := pop.reified[0]
	assert.Equal(t, 3, mutant.Generation)
	assert.Len(t, mutant.Features, cfg.Length)
	assert.True(t, sort.IntsAreSorted(mutant.Features))
	require.Len(t, pop.evicted, 1)
	assert.Same(t, ind, pop.evicted[0])

	// Rejected mutants never cost the population the original.
	rejected := &fakePopulation{admit: false}
	ind.Mutate(rejected, 4, cfg, rng)
	assert.Len(t, rejected.reified, 1)
	assert.Empty(t, rejected.evicted)
}

func TestMutateLeavesOriginalIntact(t *testing.T) {
	cfg := Config{Target: 231, Length: 5, Min: 0, Max: 100}
	rng := rand.New(rand.NewSource(11))
	ind := New(0, []int{10, 20, 30, 40, 50})
	fingerprint := ind.Fingerprint

	ind.Mutate(&fakePopulation{admit: true}, 1, cfg, rng)

	assert.Equal(t, []int{10, 20, 30, 40, 50}, ind.Features)
	assert.Equal(t, fingerprint, ind.Fingerprint)
}

func TestBreedCrossoverHalves(t *testing.T) {
	father := New(1, []int{1, 2, 3, 4, 5})
	mother := New(1, []int{10, 20, 30, 40, 50})

	pop := &fakePopulation{admit: true}
	father.Breed(pop, 2, mother)

	require.Len(t, pop.reified, 1)
	child := pop.reified[0]
	assert.Equal(t, 2, child.Generation)

	// Tail half of the caller (midpoint floor, remainder included) plus the
	// head half of the mate, re-sorted.
	assert.Equal(t, []int{3, 4, 5, 10, 20}, child.Features)

	// Crossover is purely additive.
	assert.Empty(t, pop.evicted)
}

func TestBreedEvenLength(t *testing.T) {
	father := New(0, []int{1, 2, 3, 4})
	mother := New(0, []int{5, 6, 7, 8})

	pop := &fakePopulation{admit: true}
	father.Breed(pop, 1, mother)

	require.Len(t, pop.reified, 1)
	assert.Equal(t, []int{3, 4, 5, 6}, pop.reified[0].Features)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Target: 231, Length: 5, Min: 0, Max: 100}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"non-positive target", Config{Target: 0, Length: 5, Min: 0, Max: 100}},
		{"non-positive length", Config{Target: 231, Length: 0, Min: 0, Max: 100}},
		{"inverted bounds", Config{Target: 231, Length: 5, Min: 10, Max: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
