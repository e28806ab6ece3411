// Package cache implements C4: the two per-session memoization caches that
// sit in front of query-key extraction and adjusted-minimum-score
// computation (spec §4.4). Both are bounded LRUs keyed by a fast hash (the
// query-key cache also byte-compares the stored query on a hit; the score
// cache trusts the hash alone), fenced by the (k, r, rate_max, nrow_max) tuple
// a session is configured with: changing that tuple flushes both caches
// rather than risk returning an answer computed for different parameters.
package cache

import (
	"sync"

	"blainsmith.com/go/seahash"
	lru "github.com/hashicorp/golang-lru"
	"github.com/minio/highwayhash"

	"github.com/biostream/pgkmer/index"
	"github.com/biostream/pgkmer/kerr"
)

// Params is the parameter fence of spec §4.4: whenever a cache's Params
// disagree with the caller's current configuration, the cache must be
// flushed before use.
type Params struct {
	K       int
	R       int
	RateMax float64
	NRowMax int
}

// highwayKey is the fixed 32-byte all-zero key used for the HighwayHash
// identity hash; the cache only needs a fast, well-distributed digest, not
// a keyed MAC, so a static key is sufficient (spec §4.4 does not call for
// adversarial resistance here).
var highwayKey = make([]byte, 32)

// Stats reports the read-only counters spec §4.4 requires each cache to
// expose.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Current int
	Max     int
}

// QueryKeyCache memoizes extract_query's (query_text, k) -> keys[] mapping.
// Identity is the 64-bit HighwayHash of the query text concatenated with k
// and r, with an exact byte-compare on collision (spec §4.4).
type QueryKeyCache struct {
	mu      sync.Mutex
	params  Params
	valid   bool
	entries *lru.Cache
	hits    uint64
	misses  uint64
	max     int
	extract func(queryText string, k, r int) ([]index.Key, error)
}

type queryKeyEntry struct {
	queryText string
	k, r      int
	keys      []index.Key
}

// NewQueryKeyCache creates a cache holding at most capacity entries
// (spec §6 default: 50,000). extract computes the key-stream for a query
// on a cache miss; it is typically kmer.Extract wrapped to encode the raw
// query text first.
func NewQueryKeyCache(capacity int, extract func(queryText string, k, r int) ([]index.Key, error)) (*QueryKeyCache, error) {
	l, err := lru.New(capacity)
	if err != nil {
		return nil, kerr.Wrap(kerr.Internal, err, "allocating query-key cache of capacity %d", capacity)
	}
	return &QueryKeyCache{entries: l, max: capacity, extract: extract}, nil
}

// Fence flushes the cache if params differs from the last call's params.
func (c *QueryKeyCache) Fence(params Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.params == params {
		return
	}
	c.entries.Purge()
	c.params = params
	c.valid = true
}

func queryKeyHash(queryText string, k, r int) uint64 {
	buf := make([]byte, 0, len(queryText)+8)
	buf = append(buf, queryText...)
	buf = append(buf, byte(k), byte(k>>8), byte(k>>16), byte(k>>24))
	buf = append(buf, byte(r), byte(r>>8), byte(r>>16), byte(r>>24))
	return highwayhash.Sum64(buf, highwayKey)
}

// Keys returns the cached key-stream for (queryText, k, r) if present,
// otherwise computes it via c.extract and stores the result. Implements
// index.QueryKeySource so a *QueryKeyCache can be handed directly to
// index.ExtractQuery.
func (c *QueryKeyCache) Keys(queryText string, k, r int) ([]index.Key, error) {
	h := queryKeyHash(queryText, k, r)
	c.mu.Lock()
	if v, ok := c.entries.Get(h); ok {
		ent := v.(queryKeyEntry)
		if ent.queryText == queryText && ent.k == k && ent.r == r {
			c.hits++
			c.mu.Unlock()
			return ent.keys, nil
		}
	}
	c.misses++
	c.mu.Unlock()

	keys, err := c.extract(queryText, k, r)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries.Add(h, queryKeyEntry{queryText: queryText, k: k, r: r, keys: keys})
	c.mu.Unlock()
	return keys, nil
}

// Stats returns a snapshot of the cache's counters.
func (c *QueryKeyCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Current: c.entries.Len(), Max: c.max}
}

// AdjustedMinScoreCache memoizes score.AdjustedMinScore's result, keyed by
// QueryKeysHash's seahash digest over the sorted query-key multiset (spec
// §4.4).
type AdjustedMinScoreCache struct {
	mu      sync.Mutex
	params  Params
	valid   bool
	entries *lru.Cache
	hits    uint64
	misses  uint64
	max     int
}

// NewAdjustedMinScoreCache creates a cache holding at most capacity entries
// (spec §6 default: 50,000).
func NewAdjustedMinScoreCache(capacity int) (*AdjustedMinScoreCache, error) {
	l, err := lru.New(capacity)
	if err != nil {
		return nil, kerr.Wrap(kerr.Internal, err, "allocating adjusted-min-score cache of capacity %d", capacity)
	}
	return &AdjustedMinScoreCache{entries: l, max: capacity}, nil
}

// Fence flushes the cache if params differs from the last call's params.
func (c *AdjustedMinScoreCache) Fence(params Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.params == params {
		return
	}
	c.entries.Purge()
	c.params = params
	c.valid = true
}

// QueryKeysHash computes spec §4.4's running hash over a sorted
// query-key multiset by feeding the keys' little-endian byte
// representation through seahash.
func QueryKeysHash(sortedKeys []index.Key) uint64 {
	buf := make([]byte, 8*len(sortedKeys))
	for i, k := range sortedKeys {
		v := uint64(k)
		off := i * 8
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
		buf[off+4] = byte(v >> 32)
		buf[off+5] = byte(v >> 40)
		buf[off+6] = byte(v >> 48)
		buf[off+7] = byte(v >> 56)
	}
	return seahash.Sum64(buf)
}

// Lookup returns the adjusted minimum score cached for hash, if present.
func (c *AdjustedMinScoreCache) Lookup(hash uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(hash)
	if !ok {
		c.misses++
		return 0, false
	}
	c.hits++
	return v.(int), true
}

// Store records the adjusted minimum score for hash.
func (c *AdjustedMinScoreCache) Store(hash uint64, adjustedMinScore int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(hash, adjustedMinScore)
}

// Stats returns a snapshot of the cache's counters.
func (c *AdjustedMinScoreCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Current: c.entries.Len(), Max: c.max}
}
