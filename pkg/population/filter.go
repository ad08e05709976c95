package population

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// ApproxFilter is the approximate-membership capability used as a cheap
// pre-check in front of the exact member store. It may report a genuinely
// new key as already seen (false positive, an accepted space/accuracy
// trade-off) but never the reverse: once a key is added, MayContain always
// reports true for it.
type ApproxFilter interface {
	Add(key string)
	MayContain(key string) bool
}

// bloomFilter backs ApproxFilter with a classic bloom filter parameterized
// by bit count and probe count.
type bloomFilter struct {
	bf *bloom.BloomFilter
}

// NewBloomFilter creates a bloom-backed approximate filter with the given
// size in bits and number of hash probes.
func NewBloomFilter(bits, probes uint) ApproxFilter {
	return &bloomFilter{bf: bloom.New(bits, probes)}
}

func (f *bloomFilter) Add(key string) {
	f.bf.AddString(key)
}

func (f *bloomFilter) MayContain(key string) bool {
	return f.bf.TestString(key)
}
