package index

import (
	"github.com/biostream/pgkmer/alphabet"
	"github.com/biostream/pgkmer/kmer"
)

// SearchMode is the search_mode the host's extract_query callback reports
// back; the core always operates in the default mode (spec §4.3, §6).
type SearchMode int

const defaultSearchMode SearchMode = 0

// ExtractValues is the ingest-time callback of spec §6:
//
//	extract_values(row_value) -> (keys[], n_keys)
//
// It is a thin adapter over kmer.Extract: the index container calls this
// once per ingested row.
func ExtractValues(p *alphabet.Packed, k, r int) ([]Key, int, error) {
	res, err := kmer.Extract(p, k, r)
	if err != nil {
		return nil, 0, err
	}
	keys := make([]Key, len(res.Keys))
	for i, v := range res.Keys {
		keys[i] = Key(v)
	}
	return keys, res.Count, nil
}

// QueryKeySource supplies a (possibly cached) key-stream for query text;
// package cache's QueryKeyCache implements this, decoupling index from
// cache to avoid an import cycle (cache depends on index.Key).
type QueryKeySource interface {
	Keys(queryText string, k, r int) ([]Key, error)
}

// ExtractQuery is the query-time callback of spec §6:
//
//	extract_query(query_value, strategy) -> (keys[], n_keys, ..., search_mode)
//
// All optional outputs (partial_match, extra, null_flags) are always nil;
// search_mode is always "default". Query text must have length >= 8
// (spec §6); shorter text is OutOfRange.
func ExtractQuery(src QueryKeySource, queryText string, k, r int) ([]Key, int, SearchMode, error) {
	if len(queryText) < 8 {
		return nil, 0, defaultSearchMode, outOfRangeQuery(queryText)
	}
	keys, err := src.Keys(queryText, k, r)
	if err != nil {
		return nil, 0, defaultSearchMode, err
	}
	return keys, len(keys), defaultSearchMode, nil
}

// Consistent is the inverted-index consistency predicate of spec §4.3 and
// §6:
//
//	consistent(candidate_bitmap, query_keys) -> (match, recheck)
//
// match = true iff the number of query keys present in the candidate's
// bitmap (presence, one bool per query key, in the same order as the
// query_keys the bitmap was computed against) is >= adjustedMinScore.
// recheck is always false: the predicate is exact for the shared-count
// scoring model. Per spec §7, this function never itself returns an
// error — a candidate the caller could not judge must be treated as
// non-matching before calling Consistent, not inside it.
func Consistent(presence []bool, adjustedMinScore int) (match bool, recheck bool) {
	shared := 0
	for _, p := range presence {
		if p {
			shared++
		}
	}
	return shared >= adjustedMinScore, false
}

// ComparePartial is compare_partial of spec §6: a signum unsigned-integer
// comparison on the w-bit key, used by the index container for
// merge-join-style candidate intersection.
func ComparePartial(a, b Key) int { return Compare(a, b) }
