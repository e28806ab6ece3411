// pgkmer-hfanalyze runs C6's high-frequency analysis against a TSV-backed
// row source and writes the resulting exclusion set (hf_keys/hf_meta) to a
// pair of TSV files, for a host that has no catalog of its own yet and
// wants to try the engine end to end. A production host is expected to
// supply its own hfstore.RowSource/KeyWriter backed by its table storage
// instead of this command.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/biostream/pgkmer/hfanalyze"
	"github.com/biostream/pgkmer/hfstore/tsvstore"
)

func usage() {
	fmt.Fprintln(os.Stderr, `
pgkmer-hfanalyze scans a TSV-encoded row catalog and persists the set of
k-mers classified as high-frequency for a (parent, field) pair.

Usage:
  pgkmer-hfanalyze -rows=rows.tsv -keys-out=hf_keys.tsv -meta-out=hf_meta.tsv [flags]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage

	var (
		rowsPath    = flag.String("rows", "", "TSV file of (shard, offset, alphabet, bit_length, hex) rows")
		keysOutPath = flag.String("keys-out", "", "output path for the persisted hf_keys TSV")
		metaOutPath = flag.String("meta-out", "", "output path for the persisted hf_meta TSV")
		parentID    = flag.String("parent-id", "", "parent collection identifier")
		fieldID     = flag.String("field-id", "", "field identifier within the parent")
		k           = flag.Int("k", 16, "k-mer length")
		r           = flag.Int("r", 8, "occurrence-rank bit width")
		rateMax     = flag.Float64("rate-max", 0.5, "row-occurrence-rate threshold for high-frequency classification")
		nRowMax     = flag.Int("nrow-max", 0, "absolute row-count threshold; 0 disables")
		workers     = flag.Int("workers", 0, "scan goroutines; 0 selects runtime.NumCPU()")
		batchSize   = flag.Int("batch-size", 10000, "rows read per shard batch")
		hashSize    = flag.Int("hashtable-size-init", 1000000, "initial total bucket count across counter shards")
	)
	flag.Parse()

	if *rowsPath == "" || *keysOutPath == "" || *metaOutPath == "" || *parentID == "" || *fieldID == "" {
		usage()
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	src, err := tsvstore.Open(ctx, *rowsPath)
	if err != nil {
		log.Panicf("open %s: %v", *rowsPath, err)
	}
	writer := tsvstore.NewKeyWriter(*keysOutPath, *metaOutPath)

	opts := hfanalyze.Opts{
		ParentID:          *parentID,
		FieldID:           *fieldID,
		K:                 *k,
		R:                 *r,
		RateMax:           *rateMax,
		NRowMax:           *nRowMax,
		Workers:           *workers,
		BatchSize:         *batchSize,
		HashtableSizeInit: *hashSize,
	}

	start := time.Now()
	result, err := hfanalyze.Run(ctx, src, writer, opts)
	if err != nil {
		log.Panicf("hfanalyze: %v", err)
	}
	log.Printf("analyzed %s/%s: %d rows scanned, %d high-frequency keys, wrote %s and %s in %s",
		*parentID, *fieldID, result.Meta.TotalRows, len(result.Keys), *keysOutPath, *metaOutPath, time.Since(start))
}
