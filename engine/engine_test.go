package engine

import (
	"context"
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/biostream/pgkmer/config"
	"github.com/biostream/pgkmer/hfcache"
	"github.com/biostream/pgkmer/hfstore"
)

// fakeReader is a minimal hfstore.KeyReader fake for building an hfcache.Cache.
type fakeReader struct {
	meta   hfstore.Meta
	ok     bool
	values []uint64
}

func (r *fakeReader) LoadMeta(ctx context.Context, parentID, fieldID string) (hfstore.Meta, bool, error) {
	return r.meta, r.ok, nil
}

func (r *fakeReader) LoadBatch(ctx context.Context, parentID, fieldID string, afterValue uint64, batchSize int) ([]uint64, bool, error) {
	return r.values, true, nil
}

func (r *fakeReader) Contains(ctx context.Context, parentID, fieldID string, value uint64) (bool, error) {
	for _, v := range r.values {
		if v == value {
			return true, nil
		}
	}
	return false, nil
}

func testOpts() config.Opts {
	o := config.Default
	o.K = 4
	o.R = 0
	o.MinScore = 1
	o.MinSharedRate = 0.5
	return o
}

func TestNewSessionRejectsInvalidOpts(t *testing.T) {
	o := testOpts()
	o.K = 100
	_, err := NewSession(o, nil)
	expect.NotNil(t, err)
}

func TestSessionExtractQueryAndMatch(t *testing.T) {
	s, err := NewSession(testOpts(), nil)
	expect.NoError(t, err)

	queryKeys, n, _, err := s.ExtractQuery("ACGTACGTACGT")
	expect.NoError(t, err)
	expect.EQ(t, n, len(queryKeys))
	expect.True(t, len(queryKeys) > 0)

	// A row identical to the query must match under the default
	// min_score/min_shared_rate.
	rowKeys, _, _, err := s.ExtractQuery("ACGTACGTACGT")
	expect.NoError(t, err)
	match, recheck := s.Match(context.Background(), queryKeys, rowKeys)
	expect.True(t, match)
	expect.False(t, recheck)
}

func TestSessionExtractQueryTooShort(t *testing.T) {
	s, err := NewSession(testOpts(), nil)
	expect.NoError(t, err)
	_, _, _, err = s.ExtractQuery("ACG") // below the 8-char floor.
	expect.NotNil(t, err)
}

func TestSessionAdjustedMinScoreMemoizes(t *testing.T) {
	s, err := NewSession(testOpts(), nil)
	expect.NoError(t, err)
	queryKeys, _, _, err := s.ExtractQuery("ACGTACGTACGT")
	expect.NoError(t, err)

	got1 := s.AdjustedMinScore(context.Background(), queryKeys)
	got2 := s.AdjustedMinScore(context.Background(), queryKeys)
	expect.EQ(t, got1, got2)
	stats := s.Stats()
	expect.EQ(t, stats.AdjustedScore.Hits, uint64(1))
	expect.EQ(t, stats.AdjustedScore.Misses, uint64(1))
}

func TestSessionAdjustedMinScoreWithEmptyHFCache(t *testing.T) {
	reader := &fakeReader{meta: hfstore.Meta{K: 4, R: 0, RateMax: 0.5, NRowMax: 100}, ok: true}
	hf := hfcache.New(reader)
	cfg := testOpts()
	cfg.RateMax = 0.5
	cfg.NRowMax = 100
	expect.NoError(t, hf.Load(context.Background(), "p", "f", hfcache.Config{K: 4, R: 0, RateMax: 0.5, NRowMax: 100}))

	s, err := NewSession(cfg, hf)
	expect.NoError(t, err)
	queryKeys, _, _, err := s.ExtractQuery("ACGTACGTACGT")
	expect.NoError(t, err)
	// No high-frequency keys persisted: isHighFrequency always reports
	// false, so the adjusted minimum equals the no-exclusion case.
	adjusted := s.AdjustedMinScore(context.Background(), queryKeys)
	expect.True(t, adjusted >= cfg.MinScore)
}

func TestSessionReconfigureFlushesCaches(t *testing.T) {
	s, err := NewSession(testOpts(), nil)
	expect.NoError(t, err)
	queryKeys, _, _, err := s.ExtractQuery("ACGTACGTACGT")
	expect.NoError(t, err)
	s.AdjustedMinScore(context.Background(), queryKeys) // miss #1, populates the entry.

	next := testOpts()
	next.K = 8 // changes the fenced parameter tuple, purging cached entries.
	expect.NoError(t, s.Reconfigure(next))

	s.AdjustedMinScore(context.Background(), queryKeys) // must miss again: the old entry was purged.
	stats := s.Stats()
	expect.EQ(t, stats.AdjustedScore.Misses, uint64(2))
}
