// Package hfstore defines the storage-adapter boundary of spec §9: C6 and
// C7 never touch a table scan or a catalog directly; the host supplies a
// RowSource to read rows and a KeyWriter to persist the exclusion set.
// This keeps both components testable with in-memory fakes.
package hfstore

import (
	"context"

	"github.com/biostream/pgkmer/alphabet"
)

// Row is one packed sequence read from the parent collection during
// analysis (spec §4.6 step 3).
type Row struct {
	// ShardID and BlockOffset identify the row's position in the unified
	// block-range space spec §4.6 requires when the parent is logically
	// partitioned: two rows with the same content but different physical
	// layout still get a stable, distinct position, since only the counts
	// they contribute are required to be partition-invariant, not their
	// enumeration order.
	ShardID     int
	BlockOffset int64
	Sequence    *alphabet.Packed
}

// RowSource iterates a parent field's rows in batches, potentially across
// multiple physically-partitioned children (spec §4.6's "parent table with
// children"). Implementations own cancellation: NextBatch must return ctx.Err()
// promptly once ctx is done.
type RowSource interface {
	// NumShards returns the number of independent shards the host wants
	// the analyzer's W workers to partition across.
	NumShards(ctx context.Context) (int, error)
	// TotalRows returns the total row count across all shards, used for
	// the rate_max threshold and the hf_meta record.
	TotalRows(ctx context.Context) (int64, error)
	// NextBatch reads up to batchSize rows from shard, starting after
	// afterOffset (exclusive), advancing monotonically. Returns a nil/empty
	// batch with done=true once the shard is exhausted.
	NextBatch(ctx context.Context, shard int, afterOffset int64, batchSize int) (rows []Row, done bool, err error)
}

// HFKey is one surviving high-frequency key, ready for persistence.
type HFKey struct {
	ParentID string
	FieldID  string
	K, R     int
	Value    uint64
}

// Meta is the hf_meta row spec §4.6/§6 describes.
type Meta struct {
	ParentID       string
	FieldID        string
	K, R           int
	RateMax        float64
	NRowMax        int
	TotalRows      int64
	HFCount        int64
	DurationSecond float64
}

// KeyWriter persists an analysis result transactionally: either Commit is
// called exactly once with the full key set and meta row, or Rollback is
// called and no persisted state changes (spec §4.6's "fully replaced or
// unchanged").
type KeyWriter interface {
	// Commit replaces the parent/field's entire hf_keys set and hf_meta
	// row atomically.
	Commit(ctx context.Context, keys []HFKey, meta Meta) error
	// Rollback is called when analysis is aborted (worker failure or
	// cancellation) after some keys may already have been staged.
	Rollback(ctx context.Context) error
}

// KeyReader is the Tier C persisted-table fallback of spec §4.7: row-by-row
// probes into the underlying key/value store.
type KeyReader interface {
	// LoadMeta returns the stored parameter tuple for (parent, field), or
	// ok=false if no analysis has ever been persisted.
	LoadMeta(ctx context.Context, parentID, fieldID string) (Meta, bool, error)
	// LoadBatch pages through the persisted hf_keys rows in batches of at
	// most batchSize, starting after afterValue (exclusive, 0 on first
	// call). Returns done=true once exhausted.
	LoadBatch(ctx context.Context, parentID, fieldID string, afterValue uint64, batchSize int) (values []uint64, done bool, err error)
	// Contains probes a single key directly, used by Tier C lookups that
	// never warmed Tier A/B.
	Contains(ctx context.Context, parentID, fieldID string, value uint64) (bool, error)
}
