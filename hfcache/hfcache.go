// Package hfcache implements C7: the three-tier high-frequency membership
// lookup (process-local hash, cross-process shared hash, persisted
// table), with parameter-key validation on load (spec §4.7).
package hfcache

import (
	"context"

	"github.com/biostream/pgkmer/hfstore"
	"github.com/biostream/pgkmer/kerr"
)

// Config is the parameter tuple a Cache is loaded against; it is compared
// byte-for-byte (field-for-field) against the persisted hf_meta row on
// every load (spec §4.7 step 1).
type Config struct {
	K, R    int
	RateMax float64
	NRowMax int
	// ForceParallel mirrors the force_parallel_hf_cache test knob (spec
	// §6): when true, Load also attempts Tier B; when false, Load builds
	// Tier A only.
	ForceParallel bool
	// LoadBatch bounds persisted-table reads per page (spec §6
	// hf_cache_load_batch).
	LoadBatch int
}

func (c Config) loadBatch() int {
	if c.LoadBatch > 0 {
		return c.LoadBatch
	}
	return 10000
}

// Cache is one loaded (parent, field) high-frequency set, holding
// whichever tiers were successfully populated.
type Cache struct {
	key    CacheKey
	loaded bool
	a      *tierA
	b      *tierB
	reader hfstore.KeyReader
	parent string
	field  string
}

// New creates an unloaded Cache bound to reader for its Tier C fallback.
func New(reader hfstore.KeyReader) *Cache {
	return &Cache{reader: reader}
}

func fieldIDHash(fieldID string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(fieldID); i++ {
		h ^= uint64(fieldID[i])
		h *= 1099511628211
	}
	return h
}

// Load implements spec §4.7's load contract. It validates cfg against the
// persisted metadata, returns ConfigMismatch with a remediation hint on
// disagreement, and otherwise pages the persisted set into Tier A (and,
// when cfg.ForceParallel is set, Tier B) in batches of cfg.loadBatch().
// Tier B is never built unless cfg.ForceParallel is set, whatever the
// size of the set.
func (c *Cache) Load(ctx context.Context, parentID, fieldID string, cfg Config) error {
	meta, ok, err := c.reader.LoadMeta(ctx, parentID, fieldID)
	if err != nil {
		return kerr.Wrap(kerr.Internal, err, "hfcache: LoadMeta(%s,%s)", parentID, fieldID)
	}
	if !ok {
		return kerr.New(kerr.ConfigMismatch, "hfcache: no high-frequency analysis persisted for parent=%s field=%s", parentID, fieldID)
	}
	if err := validateMeta(meta, cfg); err != nil {
		return err
	}

	newKey := CacheKey{ParentID: parentID, FieldIDHash: fieldIDHash(fieldID), K: cfg.K, R: cfg.R, RateMax: cfg.RateMax, NRowMax: cfg.NRowMax}
	if c.loaded && c.key == newKey {
		return nil // already loaded with a matching cache key (step 2).
	}
	if c.loaded {
		// Free against the cache's own previously-loaded parameter tuple,
		// not the new cfg being loaded now -- Free's fence must match what
		// is actually stored, not what is about to replace it.
		c.Free(c.parent, c.field, Config{K: c.key.K, R: c.key.R, RateMax: c.key.RateMax, NRowMax: c.key.NRowMax})
	}

	estimated := int(meta.HFCount)
	c.a = newTierA(estimated)

	useTierB := cfg.ForceParallel
	var b *tierB
	if useTierB {
		b, err = openTierB(newKey, estimated)
		if err != nil {
			// Tier B failing to attach is not fatal: Tier A still
			// satisfies correctness, just slower across processes
			// (spec §4.7's fallback clause).
			b = nil
		}
	}

	var after uint64
	for {
		values, done, err := c.reader.LoadBatch(ctx, parentID, fieldID, after, cfg.loadBatch())
		if err != nil {
			return kerr.Wrap(kerr.Internal, err, "hfcache: LoadBatch(%s,%s)", parentID, fieldID)
		}
		for _, v := range values {
			c.a.insert(v)
			if b != nil {
				b.insert(v)
			}
			after = v
		}
		if done {
			break
		}
		if ctx.Err() != nil {
			return kerr.New(kerr.Cancelled, "hfcache: load cancelled")
		}
	}

	c.b = b
	c.key = newKey
	c.loaded = true
	c.parent = parentID
	c.field = fieldID
	return nil
}

func validateMeta(meta hfstore.Meta, cfg Config) error {
	mismatch := func(name string, got, want interface{}) *kerr.Error {
		return kerr.New(kerr.ConfigMismatch, "hfcache: %s mismatch: session=%v persisted=%v", name, got, want).
			WithHint("re-run the analysis with the session's configuration, or update the session to match the persisted value")
	}
	if meta.K != cfg.K {
		return mismatch("k", cfg.K, meta.K)
	}
	if meta.R != cfg.R {
		return mismatch("r", cfg.R, meta.R)
	}
	if meta.RateMax != cfg.RateMax {
		return mismatch("rate_max", cfg.RateMax, meta.RateMax)
	}
	if meta.NRowMax != cfg.NRowMax {
		return mismatch("nrow_max", cfg.NRowMax, meta.NRowMax)
	}
	return nil
}

// Contains implements the C5-facing membership check. It answers from the
// first tier that is loaded, in order A, B, C: a miss in a loaded tier is
// final and does not fall through, and Tier C (spec §4.7's "slowest;
// correctness fallback") is only consulted when neither in-process tier
// is loaded at all.
func (c *Cache) Contains(ctx context.Context, value uint64) (bool, error) {
	if c.a != nil {
		return c.a.contains(value), nil
	}
	if c.b != nil {
		return c.b.contains(value), nil
	}
	if c.reader != nil {
		return c.reader.Contains(ctx, c.parent, c.field, value)
	}
	return false, nil
}

// Free implements spec §4.7's free contract: rejects with a non-fatal
// warning (returned as an error the caller is expected to log, not
// propagate) if the caller's current (parentID, fieldID, cfg) does not
// match the cache key this Cache was loaded with -- e.g. a session that
// has since changed rate_max must not be allowed to tear down a cache
// another session is still using. Idempotent double-free: freeing an
// already-unloaded Cache is a no-op.
func (c *Cache) Free(parentID, fieldID string, cfg Config) error {
	if !c.loaded {
		return nil
	}
	want := CacheKey{ParentID: parentID, FieldIDHash: fieldIDHash(fieldID), K: cfg.K, R: cfg.R, RateMax: cfg.RateMax, NRowMax: cfg.NRowMax}
	if c.key != want {
		return kerr.New(kerr.Internal, "hfcache: free(%s,%s,%s) does not match loaded cache key %s", parentID, fieldID, want, c.key)
	}
	if c.b != nil {
		if err := c.b.release(); err != nil {
			return err
		}
	}
	c.a = nil
	c.b = nil
	c.loaded = false
	return nil
}

// Len reports the number of entries the in-process tier holds (0 if only
// Tier C is in play), used by tests of spec §8 scenario 8.
func (c *Cache) Len() int {
	if c.a != nil {
		return c.a.len()
	}
	return 0
}
