package alphabet

import (
	"github.com/biostream/pgkmer/simdseq"
)

// ExpandDegenerate generates all strict 4-letter k-mers matching a
// degenerate Alphabet-4 window of text, per spec §4.1. It always returns
// at most simdseq.MaxDegenerateExpansion entries; when the window would
// expand past that limit, it returns (nil, false) — callers MUST treat
// that as a skip signal, not an error.
func ExpandDegenerate(text string) (kmers []string, ok bool) {
	codes := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		codes[i] = code4Of(text[i])
		if codes[i] == simdseq.Code4Invalid {
			return nil, false
		}
	}
	combos, ok := simdseq.ExpandDegenerate(codes)
	if !ok {
		return nil, false
	}
	out := make([]string, len(combos))
	for i, combo := range combos {
		b := make([]byte, len(combo))
		for j, c := range combo {
			b[j] = code2ToASCII(strictCodeOf(c))
		}
		out[i] = string(b)
	}
	return out, true
}

// strictCodeOf maps a single-bit Alphabet-4 code (1,2,4,8) to its
// Alphabet-2 equivalent (0,1,2,3).
func strictCodeOf(singleBit byte) byte {
	switch singleBit {
	case 1:
		return 0 // A
	case 2:
		return 1 // C
	case 4:
		return 2 // G
	case 8:
		return 3 // T
	default:
		return simdseq.Code2Invalid
	}
}

// ExceedsDegenerateLimit is the fast predicate of spec §4.1, computed
// without materializing the expansion: true iff the window holds any
// fully-ambiguous symbol or two or more partially-ambiguous ones. This is
// stricter than len(ExpandDegenerate(window)) > 10: a window such as "MM"
// (4 expansions) is reported as exceeding. p must be Alphabet4.
func ExceedsDegenerateLimit(p *Packed, offset, k int) (bool, error) {
	codes, err := GetCodes4(p, offset, k)
	if err != nil {
		return false, err
	}
	return simdseq.ExceedsDegenerateLimit(codes), nil
}
