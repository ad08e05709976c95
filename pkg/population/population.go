// Package population owns the bounded collection of individuals for one
// evolution run: admission with two-tier deduplication, eviction with
// optional write-behind, fitness statistics, and the per-generation
// selection/reproduction cycle.
package population

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/XiaoConstantine/genetic-go/pkg/errors"
	"github.com/XiaoConstantine/genetic-go/pkg/genome"
	"github.com/XiaoConstantine/genetic-go/pkg/logging"
)

// Config contains the population-level knobs for a run.
type Config struct {
	// Prefix is the path namespace under which individuals would be
	// persisted; the per-individual key is Prefix + "/" + fingerprint.
	Prefix string `yaml:"prefix"`

	// NPop is the desired population size.
	NPop int `yaml:"n_pop" validate:"required,gt=0"`

	// TermLimit is the mean-squared fitness error at or below which the
	// run is considered converged.
	TermLimit float64 `yaml:"term_limit" validate:"gte=0"`

	// HistGranularity is the number of decimal places fitness values are
	// rounded to when binned into the histogram.
	HistGranularity int `yaml:"hist_granularity" validate:"gte=0"`

	// FilterBits and FilterProbes size the approximate membership filter.
	FilterBits   uint `yaml:"filter_bits"`
	FilterProbes uint `yaml:"filter_probes"`
}

// DefaultConfig returns the stock run parameters.
func DefaultConfig() Config {
	return Config{
		Prefix:          "/tmp/genetic",
		NPop:            11,
		TermLimit:       0.0,
		HistGranularity: 3,
		FilterBits:      1000,
		FilterProbes:    14,
	}
}

// Validate checks the configuration at construction time.
func (c Config) Validate() error {
	if c.NPop <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "population size must be positive"),
			errors.Fields{"n_pop": c.NPop})
	}
	if c.TermLimit < 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "termination limit must be non-negative"),
			errors.Fields{"term_limit": c.TermLimit})
	}
	if c.HistGranularity < 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "histogram granularity must be non-negative"),
			errors.Fields{"hist_granularity": c.HistGranularity})
	}
	return nil
}

// Store receives evicted individuals for durable write-behind. The key is
// exactly the storage path: prefix + "/" + fingerprint.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
}

// Bin is one histogram bucket: a rounded fitness value and the number of
// live individuals that rounded into it.
type Bin struct {
	Value float64
	Count int
}

// Population owns the exact member store and the approximate filter in
// front of it. It is single-owner: all mutation happens through the
// Population instance, there are no concurrent writers.
type Population struct {
	cfg       Config
	genomeCfg genome.Config

	members  map[string]*genome.Individual
	seen     ApproxFilter
	rng      *rand.Rand
	progress io.Writer
	store    Store
}

// Option customizes a Population at construction.
type Option func(*Population)

// WithRand injects the random source, mainly for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(p *Population) { p.rng = rng }
}

// WithProgressWriter redirects the per-generation progress lines.
func WithProgressWriter(w io.Writer) Option {
	return func(p *Population) { p.progress = w }
}

// WithFilter replaces the default bloom filter with a custom
// approximate-membership implementation.
func WithFilter(f ApproxFilter) Option {
	return func(p *Population) { p.seen = f }
}

// WithStore attaches a write-behind store that receives evicted individuals.
func WithStore(s Store) Option {
	return func(p *Population) { p.store = s }
}

// New constructs a Population. The configuration is validated here so that
// no malformed parameter can fail mid-generation.
func New(cfg Config, genomeCfg genome.Config, opts ...Option) (*Population, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := genomeCfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	if cfg.FilterBits == 0 {
		cfg.FilterBits = DefaultConfig().FilterBits
	}
	if cfg.FilterProbes == 0 {
		cfg.FilterProbes = DefaultConfig().FilterProbes
	}

	p := &Population{
		cfg:       cfg,
		genomeCfg: genomeCfg,
		members:   make(map[string]*genome.Individual),
		progress:  os.Stdout,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.seen == nil {
		p.seen = NewBloomFilter(cfg.FilterBits, cfg.FilterProbes)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return p, nil
}

// Populate seeds the population with NPop randomly initialized individuals.
// Reification silently rejects duplicates (including the filter's false
// positives), so the resulting size may come up short of NPop; that is
// accepted rather than remediated.
func (p *Population) Populate(ctx context.Context, generation int) error {
	if err := errors.CheckContext(ctx, "populate"); err != nil {
		return err
	}

	admitted := 0
	for i := 0; i < p.cfg.NPop; i++ {
		ind := genome.New(generation, genome.RandomFeatures(p.genomeCfg, p.rng))
		if p.Reify(ind) {
			admitted++
		}
	}

	logging.GetLogger().Debug(ctx, "populated generation %d: admitted=%d, requested=%d",
		generation, admitted, p.cfg.NPop)

	return nil
}

// Reify is the at-most-once admission gate. If the approximate filter has
// not seen the fingerprint, the fingerprint is recorded, fitness is computed
// (deferred to this point so rejected duplicates never pay for it), and the
// individual is stored. A filter hit, true or false positive, rejects the
// candidate with no side effects.
func (p *Population) Reify(ind *genome.Individual) bool {
	if p.seen.MayContain(ind.Fingerprint) {
		return false
	}
	p.seen.Add(ind.Fingerprint)

	ind.ComputeFitness(p.genomeCfg)
	p.members[ind.Fingerprint] = ind

	return true
}

// Evict removes an individual from the live population; a no-op when the
// fingerprint is already absent. The departing individual is handed to the
// write-behind store, when one is configured, under its storage path.
func (p *Population) Evict(ind *genome.Individual) {
	if _, ok := p.members[ind.Fingerprint]; !ok {
		return
	}
	delete(p.members, ind.Fingerprint)

	path := p.StoragePath(ind)
	if p.store == nil {
		return
	}

	data, err := json.Marshal(ind)
	if err != nil {
		return
	}
	if err := p.store.Put(context.Background(), path, data); err != nil {
		logging.GetLogger().Warn(context.Background(),
			"write-behind failed for %s: %v", path, err)
	}
}

// StoragePath resolves the deterministic per-individual object key any
// persistence layer must use.
func (p *Population) StoragePath(ind *genome.Individual) string {
	return p.cfg.Prefix + "/" + ind.Fingerprint
}

// Size returns the number of live individuals.
func (p *Population) Size() int {
	return len(p.members)
}

// Members returns the live individuals ordered by fingerprint. The stable
// order keeps seeded runs reproducible despite map iteration.
func (p *Population) Members() []*genome.Individual {
	members := make([]*genome.Individual, 0, len(p.members))
	for _, ind := range p.members {
		members = append(members, ind)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Fingerprint < members[j].Fingerprint
	})
	return members
}

// PartialHistogram tallies live fitness values rounded to HistGranularity
// decimal places, bins sorted in descending numeric order.
func (p *Population) PartialHistogram() ([]Bin, error) {
	if len(p.members) == 0 {
		return nil, errors.New(errors.EmptyPopulation, "cannot build histogram of empty population")
	}

	scale := math.Pow(10, float64(p.cfg.HistGranularity))
	counts := make(map[float64]int)
	for _, ind := range p.members {
		bin := math.Round(ind.Fitness*scale) / scale
		counts[bin]++
	}

	bins := make([]Bin, 0, len(counts))
	for value, count := range counts {
		bins = append(bins, Bin{Value: value, Count: count})
	}
	sort.Slice(bins, func(i, j int) bool {
		return bins[i].Value > bins[j].Value
	})

	return bins, nil
}

// FitnessCutoff walks the descending histogram accumulating counts and
// returns the bin below the point where the cumulative fraction of the
// configured population size reaches the selection rate. The cutoff is a
// lower bound for good fitness: members strictly above it are the fit set,
// which keeps the bin that satisfied the rate inside that set.
func (p *Population) FitnessCutoff(selectionRate float64) (float64, error) {
	if selectionRate <= 0 || selectionRate > 1 {
		return 0, errors.WithFields(
			errors.New(errors.InvalidConfig, "selection rate must be in (0, 1]"),
			errors.Fields{"selection_rate": selectionRate})
	}

	hist, err := p.PartialHistogram()
	if err != nil {
		return 0, err
	}

	sum := 0
	breakNext := false
	var bin float64

	for _, b := range hist {
		bin = b.Value
		if breakNext {
			break
		}
		sum += b.Count
		breakNext = float64(sum)/float64(p.cfg.NPop) >= selectionRate
	}

	return bin, nil
}

// AdvanceGeneration runs one selection/reproduction pass:
//
//  1. Members at or below the cutoff are unfit; each one either mutates
//     (with probability mutationRate) or is evicted outright — the
//     diversity boost that prunes weak solutions while occasionally giving
//     one a fresh chance.
//  2. The surviving members — fit and surviving-unfit alike — form the
//     parent pool.
//  3. The population is replenished toward NPop by breeding two distinct
//     parents sampled uniformly from the pool, once per missing member.
func (p *Population) AdvanceGeneration(ctx context.Context, generation int, cutoff, mutationRate float64) error {
	if err := errors.CheckContext(ctx, "advance generation"); err != nil {
		return err
	}
	if len(p.members) == 0 {
		return errors.New(errors.EmptyPopulation, "cannot advance empty population")
	}

	var unfit []*genome.Individual
	for _, ind := range p.Members() {
		if ind.Fitness <= cutoff {
			unfit = append(unfit, ind)
		}
	}
	for _, ind := range unfit {
		p.boostDiversity(generation, ind, mutationRate)
	}

	// The current store, shrunk and mutated, is the parent pool.
	parents := p.Members()
	need := p.cfg.NPop - len(parents)
	if need <= 0 {
		return nil
	}
	if len(parents) < 2 {
		return errors.WithFields(
			errors.New(errors.InsufficientParents, "parent pool too small to replenish population"),
			errors.Fields{"pool_size": len(parents), "needed": need})
	}

	for i := 0; i < need; i++ {
		a := p.rng.Intn(len(parents))
		b := p.rng.Intn(len(parents) - 1)
		if b >= a {
			b++
		}
		parents[a].Breed(p, generation, parents[b])
	}

	logging.GetLogger().Debug(ctx, "advanced generation %d: pruned=%d, pool=%d, bred=%d, size=%d",
		generation, len(unfit), len(parents), need, len(p.members))

	return nil
}

// boostDiversity gives an unfit individual one more random chance with
// probability mutationRate; otherwise it is evicted.
func (p *Population) boostDiversity(generation int, ind *genome.Individual, mutationRate float64) {
	if mutationRate > p.rng.Float64() {
		ind.Mutate(p, generation, p.genomeCfg, p.rng)
	} else {
		p.Evict(ind)
	}
}

// MeanSquaredError computes the population's mean-squared fitness error
// over the histogram: sum of count*(1-bin)^2, divided by the configured
// population size.
func (p *Population) MeanSquaredError() (float64, error) {
	hist, err := p.PartialHistogram()
	if err != nil {
		return 0, err
	}

	mse := 0.0
	for _, b := range hist {
		mse += float64(b.Count) * math.Pow(1.0-b.Value, 2.0)
	}
	return mse / float64(p.cfg.NPop), nil
}

// TestTermination evaluates the convergence condition for this generation,
// emits one progress line (generation index, MSE in scientific notation,
// non-zero histogram bins descending), and reports whether the MSE has
// reached the configured termination limit.
func (p *Population) TestTermination(ctx context.Context, generation int) (bool, error) {
	hist, err := p.PartialHistogram()
	if err != nil {
		return false, err
	}

	mse := 0.0
	for _, b := range hist {
		mse += float64(b.Count) * math.Pow(1.0-b.Value, 2.0)
	}
	mse /= float64(p.cfg.NPop)

	fmt.Fprintf(p.progress, "%d %.2e %s\n", generation, mse, formatBins(hist))

	return mse <= p.cfg.TermLimit, nil
}

func formatBins(bins []Bin) string {
	parts := make([]string, 0, len(bins))
	for _, b := range bins {
		if b.Count > 0 {
			parts = append(parts, fmt.Sprintf("(%g, %d)", b.Value, b.Count))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Best returns the highest-fitness live individual.
func (p *Population) Best() (*genome.Individual, error) {
	if len(p.members) == 0 {
		return nil, errors.New(errors.EmptyPopulation, "no best individual in empty population")
	}

	var best *genome.Individual
	for _, ind := range p.Members() {
		if best == nil || ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best, nil
}

// MeanFitness returns the average fitness over live individuals.
func (p *Population) MeanFitness() (float64, error) {
	if len(p.members) == 0 {
		return 0, errors.New(errors.EmptyPopulation, "no mean fitness of empty population")
	}

	sum := 0.0
	for _, ind := range p.members {
		sum += ind.Fitness
	}
	return sum / float64(len(p.members)), nil
}

// ReportSummary writes, for every member in descending fitness order, its
// storage path followed by a tab-separated line of fitness (4 decimals),
// generation, and the feature set as JSON.
func (p *Population) ReportSummary(w io.Writer) error {
	if len(p.members) == 0 {
		return errors.New(errors.EmptyPopulation, "cannot summarize empty population")
	}

	members := p.Members()
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Fitness > members[j].Fitness
	})

	for _, ind := range members {
		if _, err := fmt.Fprintln(w, p.StoragePath(ind)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%.4f\t%d\t%s\n",
			ind.Fitness, ind.Generation, ind.FeaturesJSON()); err != nil {
			return err
		}
	}

	return nil
}
