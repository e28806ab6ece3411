// Package tsvstore is a reference hfstore.RowSource/KeyWriter/KeyReader
// implementation backed by TSV files accessed through
// github.com/grailbio/base/file and github.com/grailbio/base/tsv (the
// hf_keys file is additionally snappy-compressed; the rows and hf_meta
// files are plain TSV). It is
// intentionally simple: a production host adapter is expected to back
// these interfaces with its own catalog tables instead, but this package
// gives the core something real to run the full C6/C7 pipeline against
// (and something unit tests can write to disk and read back).
package tsvstore

import (
	"context"
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"github.com/golang/snappy"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"

	"github.com/biostream/pgkmer/alphabet"
	"github.com/biostream/pgkmer/hfstore"
	"github.com/biostream/pgkmer/kerr"
)

type seqRow struct {
	Shard     int
	Offset    int64
	Alphabet  int
	BitLength uint32
	Hex       string
}

// RowSource reads rows from a TSV file of (shard, offset, alphabet,
// bit_length, hex) columns, grouped by shard and loaded once at Open time.
// Rows within a shard are required to be written in ascending Offset
// order; NextBatch relies on this to resume after afterOffset.
type RowSource struct {
	shards [][]seqRow
}

// Open reads path fully and partitions its rows by the Shard column.
func Open(ctx context.Context, path string) (*RowSource, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, kerr.Wrap(kerr.Internal, err, "tsvstore: open %s", path)
	}
	defer in.Close(ctx)

	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.ValidateHeader = true

	shardMap := map[int][]seqRow{}
	maxShard := -1
	for {
		var row seqRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, kerr.Wrap(kerr.Internal, err, "tsvstore: read %s", path)
		}
		shardMap[row.Shard] = append(shardMap[row.Shard], row)
		if row.Shard > maxShard {
			maxShard = row.Shard
		}
	}
	shards := make([][]seqRow, maxShard+1)
	for shard, rows := range shardMap {
		shards[shard] = rows
	}
	return &RowSource{shards: shards}, nil
}

func (s *RowSource) NumShards(ctx context.Context) (int, error) { return len(s.shards), nil }

func (s *RowSource) TotalRows(ctx context.Context) (int64, error) {
	var n int64
	for _, rows := range s.shards {
		n += int64(len(rows))
	}
	return n, nil
}

func (s *RowSource) NextBatch(ctx context.Context, shard int, afterOffset int64, batchSize int) ([]hfstore.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if shard < 0 || shard >= len(s.shards) {
		return nil, true, nil
	}
	rows := s.shards[shard]
	start := sort.Search(len(rows), func(i int) bool { return rows[i].Offset > afterOffset })
	end := start + batchSize
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]hfstore.Row, 0, end-start)
	for _, r := range rows[start:end] {
		raw, err := hex.DecodeString(r.Hex)
		if err != nil {
			return nil, false, kerr.Wrap(kerr.Internal, err, "tsvstore: decode row at shard=%d offset=%d", shard, r.Offset)
		}
		ab := alphabet.Alphabet2
		if r.Alphabet != 0 {
			ab = alphabet.Alphabet4
		}
		out = append(out, hfstore.Row{
			ShardID:     shard,
			BlockOffset: r.Offset,
			Sequence:    &alphabet.Packed{BitLength: r.BitLength, Bytes: raw, Alphabet: ab},
		})
	}
	return out, end == len(rows), nil
}

// KeyWriter persists the committed high-frequency keys and meta record to
// two sibling TSV files (hf_keys snappy-compressed, hf_meta plain), each
// written atomically via a temp-file-then-rename
// performed by file.Create's backing implementation. Rollback simply
// discards the staged data without ever opening the destination files.
type KeyWriter struct {
	keysPath  string
	metaPath  string
	committed bool
}

// NewKeyWriter prepares a writer targeting keysPath/metaPath; nothing is
// written to disk until Commit.
func NewKeyWriter(keysPath, metaPath string) *KeyWriter {
	return &KeyWriter{keysPath: keysPath, metaPath: metaPath}
}

func (w *KeyWriter) Commit(ctx context.Context, keys []hfstore.HFKey, meta hfstore.Meta) error {
	keysOut, err := file.Create(ctx, w.keysPath)
	if err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: create %s", w.keysPath)
	}
	// hf_keys pages can run into the tens of millions of rows for a
	// permissive rate_max, so the page is snappy-compressed on the wire,
	// the same way bampair's diskMateShard buffers distant-mate records.
	snappyOut := snappy.NewBufferedWriter(keysOut.Writer(ctx))
	kw := tsv.NewWriter(snappyOut)
	kw.WriteString("ParentID\tFieldID\tK\tR\tValue")
	if err := kw.EndLine(); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: write header %s", w.keysPath)
	}
	for _, k := range keys {
		kw.WriteString(k.ParentID)
		kw.WriteString(k.FieldID)
		kw.WriteString(strconv.Itoa(k.K))
		kw.WriteString(strconv.Itoa(k.R))
		kw.WriteString(strconv.FormatUint(k.Value, 10))
		if err := kw.EndLine(); err != nil {
			return kerr.Wrap(kerr.Internal, err, "tsvstore: write row %s", w.keysPath)
		}
	}
	if err := snappyOut.Close(); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: close snappy writer %s", w.keysPath)
	}
	if err := keysOut.Close(ctx); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: close %s", w.keysPath)
	}

	metaOut, err := file.Create(ctx, w.metaPath)
	if err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: create %s", w.metaPath)
	}
	mw := tsv.NewWriter(metaOut.Writer(ctx))
	mw.WriteString("ParentID\tFieldID\tK\tR\tRateMax\tNRowMax\tTotalRows\tHFCount\tDurationSecond")
	if err := mw.EndLine(); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: write header %s", w.metaPath)
	}
	mw.WriteString(meta.ParentID)
	mw.WriteString(meta.FieldID)
	mw.WriteString(strconv.Itoa(meta.K))
	mw.WriteString(strconv.Itoa(meta.R))
	mw.WriteString(strconv.FormatFloat(meta.RateMax, 'g', -1, 64))
	mw.WriteString(strconv.Itoa(meta.NRowMax))
	mw.WriteString(strconv.FormatInt(meta.TotalRows, 10))
	mw.WriteString(strconv.FormatInt(meta.HFCount, 10))
	mw.WriteString(strconv.FormatFloat(meta.DurationSecond, 'g', -1, 64))
	if err := mw.EndLine(); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: write row %s", w.metaPath)
	}
	if err := metaOut.Close(ctx); err != nil {
		return kerr.Wrap(kerr.Internal, err, "tsvstore: close %s", w.metaPath)
	}
	w.committed = true
	return nil
}

func (w *KeyWriter) Rollback(ctx context.Context) error {
	// Nothing was ever written to w.keysPath/w.metaPath before Commit, so
	// there is nothing to undo.
	return nil
}

// KeyReader implements hfstore.KeyReader against the files KeyWriter
// produces.
type KeyReader struct {
	keysPath, metaPath string
}

func NewKeyReader(keysPath, metaPath string) *KeyReader {
	return &KeyReader{keysPath: keysPath, metaPath: metaPath}
}

type metaRow struct {
	ParentID       string
	FieldID        string
	K, R           int
	RateMax        float64
	NRowMax        int
	TotalRows      int64
	HFCount        int64
	DurationSecond float64
}

func (r *KeyReader) LoadMeta(ctx context.Context, parentID, fieldID string) (hfstore.Meta, bool, error) {
	in, err := file.Open(ctx, r.metaPath)
	if err != nil {
		return hfstore.Meta{}, false, nil
	}
	defer in.Close(ctx)

	tr := tsv.NewReader(in.Reader(ctx))
	tr.HasHeaderRow = true
	tr.ValidateHeader = true
	for {
		var row metaRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return hfstore.Meta{}, false, kerr.Wrap(kerr.Internal, err, "tsvstore: read %s", r.metaPath)
		}
		if row.ParentID == parentID && row.FieldID == fieldID {
			return hfstore.Meta{
				ParentID: row.ParentID, FieldID: row.FieldID, K: row.K, R: row.R,
				RateMax: row.RateMax, NRowMax: row.NRowMax, TotalRows: row.TotalRows,
				HFCount: row.HFCount, DurationSecond: row.DurationSecond,
			}, true, nil
		}
	}
	return hfstore.Meta{}, false, nil
}

type keyRow struct {
	ParentID string
	FieldID  string
	K, R     int
	Value    uint64
}

func (r *KeyReader) loadAll(ctx context.Context, parentID, fieldID string) ([]uint64, error) {
	in, err := file.Open(ctx, r.keysPath)
	if err != nil {
		return nil, kerr.Wrap(kerr.Internal, err, "tsvstore: open %s", r.keysPath)
	}
	defer in.Close(ctx)

	tr := tsv.NewReader(snappy.NewReader(in.Reader(ctx)))
	tr.HasHeaderRow = true
	tr.ValidateHeader = true
	var values []uint64
	for {
		var row keyRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, kerr.Wrap(kerr.Internal, err, "tsvstore: read %s", r.keysPath)
		}
		if row.ParentID == parentID && row.FieldID == fieldID {
			values = append(values, row.Value)
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values, nil
}

func (r *KeyReader) LoadBatch(ctx context.Context, parentID, fieldID string, afterValue uint64, batchSize int) ([]uint64, bool, error) {
	all, err := r.loadAll(ctx, parentID, fieldID)
	if err != nil {
		return nil, false, err
	}
	start := sort.Search(len(all), func(i int) bool { return all[i] > afterValue })
	end := start + batchSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], end == len(all), nil
}

func (r *KeyReader) Contains(ctx context.Context, parentID, fieldID string, value uint64) (bool, error) {
	all, err := r.loadAll(ctx, parentID, fieldID)
	if err != nil {
		return false, err
	}
	i := sort.Search(len(all), func(i int) bool { return all[i] >= value })
	return i < len(all) && all[i] == value, nil
}
