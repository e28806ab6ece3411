package tsvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"

	"github.com/biostream/pgkmer/hfstore"
)

func writeRowsFile(t *testing.T, path, body string) {
	ctx := context.Background()
	out, err := file.Create(ctx, path)
	expect.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte(body))
	expect.NoError(t, err)
	expect.NoError(t, out.Close(ctx))
}

func TestRowSourceNextBatch(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	path := filepath.Join(tmpdir, "rows.tsv")
	// "ACGT" under Alphabet2 packs to one byte: 0x1b (A=00 C=01 G=10 T=11).
	writeRowsFile(t, path, "Shard\tOffset\tAlphabet\tBitLength\tHex\n0\t1\t0\t8\t1b\n0\t2\t0\t8\t1b\n1\t1\t0\t8\t1b\n")

	ctx := context.Background()
	src, err := Open(ctx, path)
	expect.NoError(t, err)

	n, err := src.NumShards(ctx)
	expect.NoError(t, err)
	expect.EQ(t, n, 2)

	total, err := src.TotalRows(ctx)
	expect.NoError(t, err)
	expect.EQ(t, total, int64(3))

	rows, done, err := src.NextBatch(ctx, 0, 0, 10)
	expect.NoError(t, err)
	expect.True(t, done)
	expect.EQ(t, len(rows), 2)
	expect.EQ(t, rows[0].BlockOffset, int64(1))
	expect.EQ(t, rows[1].BlockOffset, int64(2))
}

func TestRowSourceNextBatchResumesAfterOffset(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	path := filepath.Join(tmpdir, "rows.tsv")
	writeRowsFile(t, path, "Shard\tOffset\tAlphabet\tBitLength\tHex\n0\t1\t0\t8\t1b\n0\t2\t0\t8\t1b\n0\t3\t0\t8\t1b\n")

	ctx := context.Background()
	src, err := Open(ctx, path)
	expect.NoError(t, err)

	first, done, err := src.NextBatch(ctx, 0, 0, 2)
	expect.NoError(t, err)
	expect.False(t, done)
	expect.EQ(t, len(first), 2)

	rest, done, err := src.NextBatch(ctx, 0, first[len(first)-1].BlockOffset, 2)
	expect.NoError(t, err)
	expect.True(t, done)
	expect.EQ(t, len(rest), 1)
	expect.EQ(t, rest[0].BlockOffset, int64(3))
}

func TestKeyWriterCommitThenKeyReaderRoundTrip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	keysPath := filepath.Join(tmpdir, "hf_keys.tsv.sz")
	metaPath := filepath.Join(tmpdir, "hf_meta.tsv")

	ctx := context.Background()
	w := NewKeyWriter(keysPath, metaPath)
	keys := []hfstore.HFKey{
		{ParentID: "p", FieldID: "f", K: 16, R: 8, Value: 5},
		{ParentID: "p", FieldID: "f", K: 16, R: 8, Value: 2},
		{ParentID: "p", FieldID: "f", K: 16, R: 8, Value: 9},
	}
	meta := hfstore.Meta{
		ParentID: "p", FieldID: "f", K: 16, R: 8,
		RateMax: 0.5, NRowMax: 1000, TotalRows: 4000, HFCount: 3, DurationSecond: 1.5,
	}
	expect.NoError(t, w.Commit(ctx, keys, meta))

	r := NewKeyReader(keysPath, metaPath)
	gotMeta, ok, err := r.LoadMeta(ctx, "p", "f")
	expect.NoError(t, err)
	expect.True(t, ok)
	expect.EQ(t, gotMeta.TotalRows, int64(4000))
	expect.EQ(t, gotMeta.HFCount, int64(3))

	_, ok, err = r.LoadMeta(ctx, "other", "f")
	expect.NoError(t, err)
	expect.False(t, ok)

	batch, done, err := r.LoadBatch(ctx, "p", "f", 0, 10)
	expect.NoError(t, err)
	expect.True(t, done)
	expect.EQ(t, batch, []uint64{2, 5, 9}) // sorted ascending regardless of commit order.

	contains, err := r.Contains(ctx, "p", "f", 5)
	expect.NoError(t, err)
	expect.True(t, contains)

	contains, err = r.Contains(ctx, "p", "f", 7)
	expect.NoError(t, err)
	expect.False(t, contains)
}

func TestKeyWriterRollbackIsNoop(t *testing.T) {
	w := NewKeyWriter("/nonexistent/keys.tsv.sz", "/nonexistent/meta.tsv")
	expect.NoError(t, w.Rollback(context.Background()))
}
