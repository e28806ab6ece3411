// Package engine wires C1–C5 and C7 into the query-time pipeline spec
// §2's data-flow diagram describes: query text -> C4 lookup | C1+C2 -> key
// stream -> C3 predicate -> C7 filter -> C5 scorer -> matching rows. It is
// the single entry point a host adapter calls per query.
package engine

import (
	"context"

	"github.com/biostream/pgkmer/alphabet"
	"github.com/biostream/pgkmer/cache"
	"github.com/biostream/pgkmer/config"
	"github.com/biostream/pgkmer/hfcache"
	"github.com/biostream/pgkmer/index"
	"github.com/biostream/pgkmer/kmer"
	"github.com/biostream/pgkmer/score"
)

// Session is one process's bound-together query pipeline: the two C4
// caches, the C7 high-frequency cache, and the configuration they are
// fenced against. A Session is not safe for concurrent use by multiple
// query contexts (spec §4.4's "single-threaded per query context").
type Session struct {
	cfg       config.Opts
	queryKeys *cache.QueryKeyCache
	minScore  *cache.AdjustedMinScoreCache
	hf        *hfcache.Cache
}

// NewSession builds a Session, sizing both C4 caches from cfg and binding
// hf as the C7 lookup used by the adjusted-minimum-score computation. hf
// may be nil if high-frequency exclusion is disabled.
func NewSession(cfg config.Opts, hf *hfcache.Cache) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, hf: hf}
	var err error
	s.queryKeys, err = cache.NewQueryKeyCache(cfg.QueryKeyCacheMax, s.extractQueryKeys)
	if err != nil {
		return nil, err
	}
	s.minScore, err = cache.NewAdjustedMinScoreCache(cfg.AdjustedMinScoreCacheMax)
	if err != nil {
		return nil, err
	}
	s.fenceCaches()
	return s, nil
}

func (s *Session) fenceCaches() {
	p := cache.Params{K: s.cfg.K, R: s.cfg.R, RateMax: s.cfg.RateMax, NRowMax: int(s.cfg.NRowMax)}
	s.queryKeys.Fence(p)
	s.minScore.Fence(p)
}

// Reconfigure replaces the session's configuration, flushing both C4
// caches per spec §4.4's parameter-fencing rule whenever (k, r, rate_max,
// nrow_max) changes.
func (s *Session) Reconfigure(cfg config.Opts) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.fenceCaches()
	return nil
}

func (s *Session) extractQueryKeys(queryText string, k, r int) ([]index.Key, error) {
	packed, err := alphabet.Encode4(queryText)
	if err != nil {
		return nil, err
	}
	keys, _, err := index.ExtractValues(packed, k, r)
	return keys, err
}

// ExtractQuery implements C3's extract_query callback (spec §4.3/§6),
// routed through the session's query-key cache.
func (s *Session) ExtractQuery(queryText string) ([]index.Key, int, index.SearchMode, error) {
	return index.ExtractQuery(s.queryKeys, queryText, s.cfg.K, s.cfg.R)
}

func (s *Session) isHighFrequency(ctx context.Context) func(index.Key) bool {
	if s.hf == nil {
		return nil
	}
	return func(k index.Key) bool {
		kmerBits := uint64(k) >> uint(s.cfg.R)
		ok, err := s.hf.Contains(ctx, uint64(index.MakeKey(kmerBits, 0, s.cfg.R)))
		if err != nil {
			// C7 lookup errors fall through to "not high-frequency" --
			// spec §7: "lookup errors fall through to the next tier",
			// and the session has no further tier to fall to here.
			return false
		}
		return ok
	}
}

// AdjustedMinScore computes and memoizes the adjusted minimum score for a
// query's key-stream (spec §4.4.2/§4.5).
func (s *Session) AdjustedMinScore(ctx context.Context, queryKeys []index.Key) int {
	sorted := score.SortKeys(queryKeys)
	h := cache.QueryKeysHash(sorted)
	if v, ok := s.minScore.Lookup(h); ok {
		return v
	}
	adjusted := score.AdjustedMinScore(queryKeys, s.cfg.MinScore, s.cfg.MinSharedRate, s.isHighFrequency(ctx))
	s.minScore.Store(h, adjusted)
	return adjusted
}

// Match evaluates one candidate row's key-stream against a query's
// key-stream, implementing C3's consistent() predicate end to end (spec
// §4.3): shared-count via C5, threshold via C4-memoized C5, judged by the
// exact predicate (recheck is always false).
func (s *Session) Match(ctx context.Context, queryKeys, rowKeys []index.Key) (match bool, recheck bool) {
	adjusted := s.AdjustedMinScore(ctx, queryKeys)
	presence := score.Presence(queryKeys, rowKeys)
	return index.Consistent(presence, adjusted)
}

// CacheStats summarizes both C4 caches for diagnostics.
type CacheStats struct {
	QueryKeys     cache.Stats
	AdjustedScore cache.Stats
}

// Stats returns a snapshot of both C4 caches' counters.
func (s *Session) Stats() CacheStats {
	return CacheStats{QueryKeys: s.queryKeys.Stats(), AdjustedScore: s.minScore.Stats()}
}

// Extract implements C2's extract_keys for a packed row, exposed here so
// host adapters wiring the ingest path don't need a separate import of
// package kmer just to call it through engine.
func Extract(p *alphabet.Packed, k, r int) (kmer.Result, error) {
	return kmer.Extract(p, k, r)
}
