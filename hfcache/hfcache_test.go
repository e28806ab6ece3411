package hfcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"

	"github.com/biostream/pgkmer/hfstore"
)

// fakeReader is an in-memory hfstore.KeyReader fake over a fixed meta row
// and sorted value set.
type fakeReader struct {
	meta   hfstore.Meta
	ok     bool
	values []uint64
}

func (r *fakeReader) LoadMeta(ctx context.Context, parentID, fieldID string) (hfstore.Meta, bool, error) {
	return r.meta, r.ok, nil
}

func (r *fakeReader) LoadBatch(ctx context.Context, parentID, fieldID string, afterValue uint64, batchSize int) ([]uint64, bool, error) {
	start := 0
	for start < len(r.values) && r.values[start] <= afterValue {
		start++
	}
	end := start + batchSize
	if end > len(r.values) {
		end = len(r.values)
	}
	return r.values[start:end], end == len(r.values), nil
}

func (r *fakeReader) Contains(ctx context.Context, parentID, fieldID string, value uint64) (bool, error) {
	for _, v := range r.values {
		if v == value {
			return true, nil
		}
	}
	return false, nil
}

func testConfig() Config {
	return Config{K: 16, R: 8, RateMax: 0.5, NRowMax: 1000}
}

func testMeta() hfstore.Meta {
	return hfstore.Meta{K: 16, R: 8, RateMax: 0.5, NRowMax: 1000, HFCount: 3}
}

func TestCacheLoadAndContains(t *testing.T) {
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2, 5, 9}}
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	expect.EQ(t, c.Len(), 3)

	for _, v := range []uint64{2, 5, 9} {
		got, err := c.Contains(context.Background(), v)
		expect.NoError(t, err)
		expect.True(t, got)
	}
	got, err := c.Contains(context.Background(), 7)
	expect.NoError(t, err)
	expect.False(t, got)
}

func TestCacheLoadConfigMismatch(t *testing.T) {
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2}}
	c := New(reader)
	cfg := testConfig()
	cfg.K = 32 // disagrees with testMeta's K=16.
	err := c.Load(context.Background(), "p", "f", cfg)
	expect.NotNil(t, err)
}

func TestCacheLoadNoAnalysisPersisted(t *testing.T) {
	reader := &fakeReader{ok: false}
	c := New(reader)
	err := c.Load(context.Background(), "p", "f", testConfig())
	expect.NotNil(t, err)
}

func TestCacheLoadIdempotentSameKey(t *testing.T) {
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2, 5}}
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	a := c.a
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	expect.EQ(t, c.a, a) // second Load with the same key is a no-op.
}

func TestCacheFreeMismatchedParentID(t *testing.T) {
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2}}
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	err := c.Free("other-parent", "f", testConfig())
	expect.NotNil(t, err)
}

func TestCacheFreeMismatchedRateMax(t *testing.T) {
	// spec §8 scenario 8: load with rate_max=0.5, then a session that has
	// since moved to rate_max=0.3 must not be able to free the cache.
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2}}
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	cfg := testConfig()
	cfg.RateMax = 0.3
	err := c.Free("p", "f", cfg)
	expect.NotNil(t, err)
	expect.EQ(t, c.Len(), 1) // the mismatched free must not have torn anything down.
}

func TestCacheFreeIsIdempotent(t *testing.T) {
	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2}}
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", testConfig()))
	expect.NoError(t, c.Free("p", "f", testConfig()))
	expect.NoError(t, c.Free("p", "f", testConfig())) // second free is a no-op, not an error.
}

func TestCacheForceParallelUsesTierB(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	shmDir := filepath.Join(tmpdir, "shm")
	expect.NoError(t, os.MkdirAll(shmDir, 0755))
	os.Setenv("PGKMER_HF_SHM_DIR", shmDir)
	defer os.Unsetenv("PGKMER_HF_SHM_DIR")

	reader := &fakeReader{meta: testMeta(), ok: true, values: []uint64{2, 5, 9}}
	cfg := testConfig()
	cfg.ForceParallel = true
	c := New(reader)
	expect.NoError(t, c.Load(context.Background(), "p", "f", cfg))
	expect.NotNil(t, c.b)

	got, err := c.Contains(context.Background(), 5)
	expect.NoError(t, err)
	expect.True(t, got)

	expect.NoError(t, c.Free("p", "f", cfg))
}

func TestTierAHandlesAllOnesKey(t *testing.T) {
	a := newTierA(4)
	allOnes := ^uint64(0)
	a.insert(allOnes)
	expect.True(t, a.contains(allOnes))
	expect.False(t, a.contains(0))
}
