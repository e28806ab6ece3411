// Package hfanalyze implements C6: the parallel full-table scan that
// counts, for each k-mer, the number of distinct rows it appears in at
// least once, and persists the set of k-mers passing a rate or absolute
// threshold. Workers own disjoint source shards and all increment one
// shared, mutex-sharded counter; a reduce phase then applies the
// thresholds to that counter's final values.
package hfanalyze

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"

	"github.com/biostream/pgkmer/index"
	"github.com/biostream/pgkmer/kerr"
	"github.com/biostream/pgkmer/kmer"
	"github.com/biostream/pgkmer/hfstore"
)

const nCounterShard = 256

// Opts configures one analysis run.
type Opts struct {
	ParentID string
	FieldID  string
	K, R     int
	RateMax  float64
	NRowMax  int
	// Workers bounds the number of goroutines scanning shards
	// concurrently; 0 selects runtime.NumCPU().
	Workers int
	// BatchSize bounds rows read per RowSource.NextBatch call (spec
	// §4.6's "configurable batch size to bound peak memory").
	BatchSize int
	// HashtableSizeInit is the initial bucket count summed over all counter
	// shards; each shard is pre-sized to HashtableSizeInit/256.
	HashtableSizeInit int
}

func (o Opts) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Opts) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 10000
}

// counterShard is one shard of the global k-mer -> row-count map, guarded
// by its own mutex so workers scanning different source shards rarely
// contend. Backed by a plain Go map since C6 only needs correctness, not
// the allocation discipline of the query-time kmer index.
type counterShard struct {
	mu     sync.Mutex
	counts map[uint64]int64
}

func newCounterShard(sizeHint int) *counterShard {
	return &counterShard{counts: make(map[uint64]int64, sizeHint)}
}

func shardOf(key uint64) int {
	return int(farm.Hash64WithSeed(nil, key) % nCounterShard)
}

// rowState tracks which k-mers have already been counted for the row
// currently being scanned, so a repeated k-mer within one row increments
// its row-count exactly once (spec §4.6 step 3: "deduplicated k-mers").
type rowState struct {
	seen map[uint64]struct{}
}

func newRowState() *rowState { return &rowState{seen: make(map[uint64]struct{})} }

func (s *rowState) reset() {
	for k := range s.seen {
		delete(s.seen, k)
	}
}

// Result is the output of Run: the surviving high-frequency keys plus the
// metadata row spec §4.6/§6 requires.
type Result struct {
	Keys []hfstore.HFKey
	Meta hfstore.Meta
}

// Run executes one analysis: partitions src's shards across opts.workers()
// goroutines, scans each with deduplicated-per-row k-mer counting into a
// single shared counter, applies the thresholds, and hands
// the surviving keys to writer.Commit. Any worker error rolls back via
// writer.Rollback and is returned to the caller (spec §4.6's "any worker
// failure aborts the analysis").
func Run(ctx context.Context, src hfstore.RowSource, writer hfstore.KeyWriter, opts Opts) (Result, error) {
	start := time.Now()

	nShards, err := src.NumShards(ctx)
	if err != nil {
		return Result{}, kerr.Wrap(kerr.Internal, err, "hfanalyze: NumShards")
	}
	totalRows, err := src.TotalRows(ctx)
	if err != nil {
		return Result{}, kerr.Wrap(kerr.Internal, err, "hfanalyze: TotalRows")
	}

	shards := make([]*counterShard, nCounterShard)
	for i := range shards {
		shards[i] = newCounterShard(opts.HashtableSizeInit / nCounterShard)
	}

	var nextShard int64 = -1
	var firstErr error
	var errMu sync.Mutex
	setErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < opts.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs := newRowState()
			for {
				if ctx.Err() != nil {
					setErr(kerr.New(kerr.Cancelled, "hfanalyze: cancelled"))
					return
				}
				errMu.Lock()
				aborted := firstErr != nil
				errMu.Unlock()
				if aborted {
					return
				}
				shard := int(atomic.AddInt64(&nextShard, 1))
				if shard >= nShards {
					return
				}
				if err := scanShard(ctx, src, shard, opts, shards, rs); err != nil {
					setErr(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		if rerr := writer.Rollback(ctx); rerr != nil {
			log.Printf("hfanalyze: rollback after %v failed: %v", firstErr, rerr)
		}
		return Result{}, firstErr
	}

	keys := reduce(shards, opts, totalRows)
	meta := hfstore.Meta{
		ParentID:       opts.ParentID,
		FieldID:        opts.FieldID,
		K:              opts.K,
		R:              opts.R,
		RateMax:        opts.RateMax,
		NRowMax:        opts.NRowMax,
		TotalRows:      totalRows,
		HFCount:        int64(len(keys)),
		DurationSecond: time.Since(start).Seconds(),
	}
	if err := writer.Commit(ctx, keys, meta); err != nil {
		return Result{}, kerr.Wrap(kerr.Internal, err, "hfanalyze: commit")
	}
	return Result{Keys: keys, Meta: meta}, nil
}

func scanShard(ctx context.Context, src hfstore.RowSource, shard int, opts Opts, shards []*counterShard, rs *rowState) error {
	var afterOffset int64
	for {
		if ctx.Err() != nil {
			return kerr.New(kerr.Cancelled, "hfanalyze: cancelled mid-shard")
		}
		rows, done, err := src.NextBatch(ctx, shard, afterOffset, opts.batchSize())
		if err != nil {
			return kerr.Wrap(kerr.Internal, err, "hfanalyze: NextBatch(shard=%d)", shard)
		}
		for _, row := range rows {
			if err := countRow(row, opts, shards, rs); err != nil {
				return err
			}
			afterOffset = row.BlockOffset
		}
		if done {
			return nil
		}
	}
}

func countRow(row hfstore.Row, opts Opts, shards []*counterShard, rs *rowState) error {
	res, err := kmer.Extract(row.Sequence, opts.K, opts.R)
	if err != nil {
		return kerr.Wrap(kerr.Internal, err, "hfanalyze: extract row")
	}
	rs.reset()
	for _, packedKey := range res.Keys {
		// The row-occurrence count must not be sensitive to the rank
		// field, only to which k-mer appeared in this row; strip rank
		// bits before deduplicating.
		kmerBits := packedKey >> uint(opts.R)
		if _, ok := rs.seen[kmerBits]; ok {
			continue
		}
		rs.seen[kmerBits] = struct{}{}
		sh := shards[shardOf(kmerBits)]
		sh.mu.Lock()
		sh.counts[kmerBits]++
		sh.mu.Unlock()
	}
	return nil
}

func reduce(shards []*counterShard, opts Opts, totalRows int64) []hfstore.HFKey {
	var out []hfstore.HFKey
	for _, sh := range shards {
		sh.mu.Lock()
		for kmerBits, count := range sh.counts {
			if passesThreshold(count, totalRows, opts) {
				out = append(out, hfstore.HFKey{
					ParentID: opts.ParentID,
					FieldID:  opts.FieldID,
					K:        opts.K,
					R:        opts.R,
					Value:    uint64(index.MakeKey(kmerBits, 0, opts.R)),
				})
			}
		}
		sh.mu.Unlock()
	}
	// Deterministic output order regardless of shard-merge scheduling
	// (spec §8's row-reordering and partition-identity invariants require
	// the *set* to be stable; sorting the persisted slice makes equality
	// checks in tests trivial too).
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func passesThreshold(count, totalRows int64, opts Opts) bool {
	if totalRows > 0 && opts.RateMax > 0 && float64(count)/float64(totalRows) >= opts.RateMax {
		return true
	}
	if opts.NRowMax > 0 && count >= int64(opts.NRowMax) {
		return true
	}
	return false
}
