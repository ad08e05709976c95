// Package shard provides the consistent-hash routing capability a
// distributed driver would use to map individual fingerprints onto worker
// shards. The core evolutionary loop stays shard-agnostic; the router is
// injected where a component (such as a sharded store) wants placement.
package shard

import (
	"github.com/buraksezer/consistent"
	"github.com/cespare/xxhash/v2"

	"github.com/XiaoConstantine/genetic-go/pkg/errors"
)

// Router maps a fingerprint to the shard that owns it. Implementations must
// be deterministic: the same fingerprint always routes to the same shard as
// long as the member set is unchanged.
type Router interface {
	Route(fingerprint string) string
}

// member adapts a shard name to the hash ring's member interface.
type member string

func (m member) String() string { return string(m) }

// hasher plugs xxhash into the ring.
type hasher struct{}

func (hasher) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// RingConfig sizes the consistent-hash ring.
type RingConfig struct {
	PartitionCount    int     `yaml:"partition_count"`
	ReplicationFactor int     `yaml:"replication_factor"`
	Load              float64 `yaml:"load"`
}

// DefaultRingConfig returns the standard ring sizing.
func DefaultRingConfig() RingConfig {
	return RingConfig{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
	}
}

// Ring is a consistent-hash Router over a dynamic set of named shards.
type Ring struct {
	ring *consistent.Consistent
}

// NewRing builds a ring over the given shard names.
func NewRing(shards []string, cfg RingConfig) (*Ring, error) {
	if len(shards) == 0 {
		return nil, errors.New(errors.InvalidConfig, "ring requires at least one shard")
	}

	if cfg.PartitionCount <= 0 {
		cfg.PartitionCount = DefaultRingConfig().PartitionCount
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = DefaultRingConfig().ReplicationFactor
	}
	if cfg.Load <= 1.0 {
		cfg.Load = DefaultRingConfig().Load
	}

	members := make([]consistent.Member, len(shards))
	for i, s := range shards {
		members[i] = member(s)
	}

	ring := consistent.New(members, consistent.Config{
		Hasher:            hasher{},
		PartitionCount:    cfg.PartitionCount,
		ReplicationFactor: cfg.ReplicationFactor,
		Load:              cfg.Load,
	})

	return &Ring{ring: ring}, nil
}

// Route returns the shard owning the fingerprint.
func (r *Ring) Route(fingerprint string) string {
	return r.ring.LocateKey([]byte(fingerprint)).String()
}

// Add joins a new shard to the ring, relocating partitions as needed.
func (r *Ring) Add(shardName string) {
	r.ring.Add(member(shardName))
}

// Remove drops a shard from the ring.
func (r *Ring) Remove(shardName string) {
	r.ring.Remove(shardName)
}

// Shards returns the current member names.
func (r *Ring) Shards() []string {
	members := r.ring.GetMembers()
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.String()
	}
	return names
}

// Static is a Router that sends every fingerprint to one shard, the
// single-node arrangement this engine runs in today.
type Static string

func (s Static) Route(string) string { return string(s) }
