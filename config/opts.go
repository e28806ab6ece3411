// Package config holds the process-wide, session-overridable configuration
// surface of spec §6: one flat struct, one Default value, doc comments that
// record historical aliases next to the field they bind to.
package config

import "flag"

// Opts is the full configuration surface read via the host's typed
// configuration registry (spec §6). All fields are process-wide with
// session override.
type Opts struct {
	// K is the k-mer length. Range [4,32].
	K int
	// R is the occurrence-rank bit width. Range [0,16]; 0 disables rank
	// packing.
	R int
	// RateMax is the row-occurrence-rate threshold for classifying a
	// k-mer as high-frequency. Range [0.0,1.0].
	RateMax float64
	// NRowMax is the alternative absolute row-count threshold; 0 means
	// unlimited (off).
	NRowMax int64
	// MinScore is the absolute lower bound on shared-count (§4.5).
	MinScore int
	// MinSharedRate is the fraction of query keys required to match
	// (§4.5). Historically documented under two different names,
	// min_shared_ngram_key_rate and min_shared_kmer_rate; both are
	// accepted as registry/flag aliases for this one field (see
	// Bind).
	MinSharedRate float64
	// PrecludeHF enables high-frequency exclusion at ingest time.
	PrecludeHF bool
	// ForceParallelHFCache is a test knob that forces Tier B (shared
	// memory) even when Tier A alone would suffice.
	ForceParallelHFCache bool
	// QueryKeyCacheMax is C4's query-key cache capacity. Range
	// [1000,10000000].
	QueryKeyCacheMax int
	// AdjustedMinScoreCacheMax is C4's score cache capacity. Range
	// [1000,10000000].
	AdjustedMinScoreCacheMax int
	// HFCacheLoadBatch is the Tier B/C load batch size. Minimum 1.
	HFCacheLoadBatch int
	// HFAnalysisBatch is C6's per-shard scan batch size. Minimum 1.
	HFAnalysisBatch int
	// HFAnalysisHashtableSize is C6's counter initial size. Range
	// [1e4,1e8].
	HFAnalysisHashtableSize int
	// ForceSIMDCapability is a test knob overriding runtime SIMD
	// capability detection; -1 means auto-detect.
	ForceSIMDCapability int
}

// Default mirrors the defaults table of spec §6.
var Default = Opts{
	K:                        16,
	R:                        8,
	RateMax:                  0.5,
	NRowMax:                  0,
	MinScore:                 1,
	MinSharedRate:            0.5,
	PrecludeHF:               false,
	ForceParallelHFCache:     false,
	QueryKeyCacheMax:         50000,
	AdjustedMinScoreCacheMax: 50000,
	HFCacheLoadBatch:         10000,
	HFAnalysisBatch:          10000,
	HFAnalysisHashtableSize:  1000000,
	ForceSIMDCapability:      -1,
}

// Validate checks the structural bounds of spec §3/§6, independent of any
// stored parameter tuple (ConfigMismatch checks against stored state are
// performed by hfcache, not here).
func (o Opts) Validate() error {
	switch {
	case o.K < 4 || o.K > 32:
		return outOfRange("k", o.K, 4, 32)
	case o.R < 0 || o.R > 16:
		return outOfRange("r", o.R, 0, 16)
	case o.RateMax < 0.0 || o.RateMax > 1.0:
		return outOfRangeF("rate_max", o.RateMax, 0.0, 1.0)
	case o.NRowMax < 0:
		return outOfRange("nrow_max", int(o.NRowMax), 0, -1)
	case o.MinSharedRate < 0.0 || o.MinSharedRate > 1.0:
		return outOfRangeF("min_shared_rate", o.MinSharedRate, 0.0, 1.0)
	case o.QueryKeyCacheMax < 1000 || o.QueryKeyCacheMax > 10000000:
		return outOfRange("query_key_cache_max", o.QueryKeyCacheMax, 1000, 10000000)
	case o.AdjustedMinScoreCacheMax < 1000 || o.AdjustedMinScoreCacheMax > 10000000:
		return outOfRange("adjusted_min_score_cache_max", o.AdjustedMinScoreCacheMax, 1000, 10000000)
	case o.HFCacheLoadBatch < 1:
		return outOfRange("hf_cache_load_batch", o.HFCacheLoadBatch, 1, -1)
	case o.HFAnalysisBatch < 1:
		return outOfRange("hf_analysis_batch", o.HFAnalysisBatch, 1, -1)
	case o.HFAnalysisHashtableSize < 10000 || o.HFAnalysisHashtableSize > 100000000:
		return outOfRange("hf_analysis_hashtable_size", o.HFAnalysisHashtableSize, 10000, 100000000)
	}
	return nil
}

// TotalBits returns 2k+r, the bit width consumed by a single index key
// before width selection (spec §3).
func (o Opts) TotalBits() int { return 2*o.K + o.R }

// KeyWidth returns the integer width w chosen for this configuration,
// per spec §3's width-monotonicity rule.
func (o Opts) KeyWidth() int {
	switch total := o.TotalBits(); {
	case total <= 16:
		return 16
	case total <= 32:
		return 32
	default:
		return 64
	}
}

// Bind registers fs flags for every Opts field, in the style of the
// teacher's cmd/ binaries (bio-fusion's main.go), with MinSharedRate bound
// under both of its historical aliases (see the Opts.MinSharedRate
// doc comment and spec §9's Open Question).
func (o *Opts) Bind(fs *flag.FlagSet) {
	fs.IntVar(&o.K, "k", Default.K, "k-mer length")
	fs.IntVar(&o.R, "r", Default.R, "occurrence-rank bits")
	fs.Float64Var(&o.RateMax, "rate-max", Default.RateMax, "high-frequency row-occurrence-rate threshold")
	fs.Int64Var(&o.NRowMax, "nrow-max", Default.NRowMax, "high-frequency absolute row-count threshold (0=off)")
	fs.IntVar(&o.MinScore, "min-score", Default.MinScore, "absolute match floor")
	fs.Float64Var(&o.MinSharedRate, "min-shared-rate", Default.MinSharedRate, "relative match floor (alias: min-shared-kmer-rate, min-shared-ngram-key-rate)")
	fs.Float64Var(&o.MinSharedRate, "min-shared-kmer-rate", Default.MinSharedRate, "alias of min-shared-rate")
	fs.Float64Var(&o.MinSharedRate, "min-shared-ngram-key-rate", Default.MinSharedRate, "alias of min-shared-rate")
	fs.BoolVar(&o.PrecludeHF, "preclude-hf", Default.PrecludeHF, "enable HF exclusion at ingest")
	fs.BoolVar(&o.ForceParallelHFCache, "force-parallel-hf-cache", Default.ForceParallelHFCache, "test knob: force Tier B")
	fs.IntVar(&o.QueryKeyCacheMax, "query-key-cache-max", Default.QueryKeyCacheMax, "C4 query-key cache capacity")
	fs.IntVar(&o.AdjustedMinScoreCacheMax, "adjusted-min-score-cache-max", Default.AdjustedMinScoreCacheMax, "C4 score cache capacity")
	fs.IntVar(&o.HFCacheLoadBatch, "hf-cache-load-batch", Default.HFCacheLoadBatch, "Tier B/C load batch size")
	fs.IntVar(&o.HFAnalysisBatch, "hf-analysis-batch", Default.HFAnalysisBatch, "C6 shard scan batch size")
	fs.IntVar(&o.HFAnalysisHashtableSize, "hf-analysis-hashtable-size", Default.HFAnalysisHashtableSize, "C6 counter initial size")
	fs.IntVar(&o.ForceSIMDCapability, "force-simd-capability", Default.ForceSIMDCapability, "test knob; -1 = auto")
}
