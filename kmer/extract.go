// Package kmer implements C2: sliding a k-window over a packed sequence
// and producing the occurrence-annotated integer key-stream consumed by
// the index bridge (package index). See spec §4.2.
package kmer

import (
	"sort"

	"github.com/biostream/pgkmer/alphabet"
	"github.com/biostream/pgkmer/kerr"
	"github.com/biostream/pgkmer/simdseq"
)

// Result is the output of Extract: an ordered key-stream plus the count
// of emitted keys (Count == len(Keys)).
type Result struct {
	Keys  []uint64
	Count int
}

// Extract implements spec §4.2's public contract:
//
//	extract_keys(packed_sequence, k, r) -> (key_array, count)
//
// count = max(0, L-k+1) minus windows dropped for exceeding the
// degenerate-expansion limit (Alphabet4 only) or for occurrence-rank
// overflow. L < k returns an empty, non-error result. A byte-offset
// overflow while reading a window is treated as that window being
// skipped, not as a fatal error for the whole call.
func Extract(p *alphabet.Packed, k, r int) (Result, error) {
	if k < 4 || k > 32 {
		return Result{}, kerr.New(kerr.OutOfRange, "k=%d out of range [4,32]", k)
	}
	if r < 0 || r > 16 {
		return Result{}, kerr.New(kerr.OutOfRange, "r=%d out of range [0,16]", r)
	}
	n := p.NumSymbols()
	if n < k {
		return Result{}, nil
	}
	nWindows := n - k + 1
	ranker := newRankAssigner(r)
	keys := make([]uint64, 0, nWindows)

	for offset := 0; offset < nWindows; offset++ {
		switch p.Alphabet {
		case alphabet.Alphabet2:
			kmerBits, ok := kmerBits2(p, offset, k)
			if !ok {
				continue // byte-offset overflow: skip this window.
			}
			if rank, ok := ranker.next(kmerBits); ok {
				keys = append(keys, (kmerBits<<uint(r))|uint64(rank))
			}
		case alphabet.Alphabet4:
			exceeds, err := alphabet.ExceedsDegenerateLimit(p, offset, k)
			if err != nil {
				continue // out-of-range window: skip.
			}
			if exceeds {
				continue
			}
			combos, err := degenerateCombos(p, offset, k)
			if err != nil {
				continue
			}
			for _, kmerBits := range combos {
				if rank, ok := ranker.next(kmerBits); ok {
					keys = append(keys, (kmerBits<<uint(r))|uint64(rank))
				}
			}
		}
	}
	return Result{Keys: keys, Count: len(keys)}, nil
}

// kmerBits2 reads the k symbols starting at offset from an Alphabet2
// packed sequence and returns their 2k-bit concatenation, MSB-first
// (matching the packed layout itself), bounds-checked.
func kmerBits2(p *alphabet.Packed, offset, k int) (uint64, bool) {
	codes, err := alphabet.GetCodes2(p, offset, k)
	if err != nil {
		return 0, false
	}
	var bits uint64
	for _, c := range codes {
		bits = bits<<2 | uint64(c)
	}
	return bits, true
}

// degenerateCombos expands the window at offset into its strict 2k-bit
// k-mer encodings, in the deterministic order of alphabet.ExpandDegenerate
// (itself delegating to simdseq.ExpandDegenerate's ascending-bit order).
func degenerateCombos(p *alphabet.Packed, offset, k int) ([]uint64, error) {
	codes, err := alphabet.GetCodes4(p, offset, k)
	if err != nil {
		return nil, err
	}
	text := make([]byte, k)
	for i, c := range codes {
		// Single-symbol ASCII round-trip is unnecessary; we only need
		// ExpandDegenerate's combinatorics, which alphabet.ExpandDegenerate
		// computes from text. Decoding each nibble to its canonical ASCII
		// keeps the two call sites (ingest text and this one) sharing one
		// code path instead of duplicating the expansion logic.
		text[i] = simdseq.ASCIIOfCode4(c)
	}
	kmers, ok := alphabet.ExpandDegenerate(string(text))
	if !ok {
		return nil, kerr.New(kerr.OutOfRange, "window at offset %d exceeds the degenerate expansion limit", offset)
	}
	out := make([]uint64, len(kmers))
	for i, s := range kmers {
		var bits uint64
		for _, ch := range []byte(s) {
			bits = bits<<2 | uint64(simdseq.Code2Of(ch))
		}
		out[i] = bits
	}
	return out, nil
}

// rankAssigner maintains, per spec §4.2, a sorted-by-key running structure
// that assigns each window's k-mer the next occurrence rank, saturating
// (dropping the window) once a k-mer has already recorded 2^r occurrences.
// r=0 means rank packing is disabled: every window is kept at rank 0 and
// duplicates are never dropped for rank overflow.
type rankAssigner struct {
	r      int
	max    uint32 // 2^r, or 0 if r==0 (no cap).
	kmers  []uint64
	counts []uint32
}

func newRankAssigner(r int) *rankAssigner {
	a := &rankAssigner{r: r}
	if r > 0 {
		a.max = 1 << uint(r)
	}
	return a
}

// next looks up kmerBits (binary search, as required by spec §4.2) and
// returns the next occurrence rank, or ok=false if the window must be
// dropped for rank overflow. Dropped windows do not increment the
// rank counter, matching spec §4.2.
func (a *rankAssigner) next(kmerBits uint64) (uint32, bool) {
	if a.r == 0 {
		return 0, true
	}
	i := sort.Search(len(a.kmers), func(i int) bool { return a.kmers[i] >= kmerBits })
	if i < len(a.kmers) && a.kmers[i] == kmerBits {
		if a.counts[i] >= a.max {
			return 0, false
		}
		rank := a.counts[i]
		a.counts[i]++
		return rank, true
	}
	a.kmers = append(a.kmers, 0)
	a.counts = append(a.counts, 0)
	copy(a.kmers[i+1:], a.kmers[i:])
	copy(a.counts[i+1:], a.counts[i:])
	a.kmers[i] = kmerBits
	a.counts[i] = 1
	return 0, true
}
