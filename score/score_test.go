package score

import (
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/biostream/pgkmer/alphabet"
	"github.com/biostream/pgkmer/index"
	"github.com/biostream/pgkmer/kmer"
)

// extractKeys is a small test helper around kmer.Extract, converting its
// raw uint64 key-stream into the index.Key slices score's API consumes.
func extractKeys(t *testing.T, text string, k, r int) []index.Key {
	t.Helper()
	p, err := alphabet.Encode2(text)
	expect.NoError(t, err)
	res, err := kmer.Extract(p, k, r)
	expect.NoError(t, err)
	out := make([]index.Key, len(res.Keys))
	for i, v := range res.Keys {
		out[i] = index.Key(v)
	}
	return out
}

func keys(vs ...uint64) []index.Key {
	out := make([]index.Key, len(vs))
	for i, v := range vs {
		out[i] = index.Key(v)
	}
	return out
}

func TestPresence(t *testing.T) {
	q := keys(1, 2, 3)
	r := keys(2, 3, 4)
	got := Presence(q, r)
	expect.EQ(t, got, []bool{false, true, true})
}

func TestPresenceCountsEveryQueryOccurrence(t *testing.T) {
	// A repeated query key (r=0's unranked duplicates, spec §4.2) must
	// contribute one true per occurrence, not be deduplicated away: this is
	// the membership semantics spec §4.5's shared-count formula requires.
	q := keys(1, 1, 1)
	r := keys(1)
	got := Presence(q, r)
	expect.EQ(t, got, []bool{true, true, true})
}

func TestAdjustedMinScoreNoExclusion(t *testing.T) {
	q := keys(1, 2, 3, 4) // n_q=4
	// min_score=1, min_shared_rate=0.5 -> rate_min=ceil(2.0)=2, base_min=2
	got := AdjustedMinScore(q, 1, 0.5, nil)
	expect.EQ(t, got, 2)
}

func TestAdjustedMinScoreWithExclusion(t *testing.T) {
	q := keys(1, 2, 3, 4)
	hf := map[index.Key]bool{index.Key(1): true}
	got := AdjustedMinScore(q, 1, 0.75, func(k index.Key) bool { return hf[k] })
	// base_min = ceil(0.75*4) = 3; excluded = 1; adjusted = 2
	expect.EQ(t, got, 2)
}

func TestAdjustedMinScoreFloorAtOne(t *testing.T) {
	q := keys(1, 2)
	hf := map[index.Key]bool{index.Key(1): true, index.Key(2): true}
	got := AdjustedMinScore(q, 1, 0.5, func(k index.Key) bool { return hf[k] })
	// base_min = max(1, ceil(1.0)) = 1; excluded = 2; adjusted = max(1, -1) = 1
	expect.EQ(t, got, 1)
}

// TestScenario5NoMatchBelowAdjustedThreshold is end-to-end scenario #5:
// k=4, r=0, min_score=2, min_shared_rate=0.5, no high-frequency keys, row
// "ACGTACGT", query "ACGT" -- the query's single key is shared, but
// adjusted_min_score is 2, so the candidate does not match.
func TestScenario5NoMatchBelowAdjustedThreshold(t *testing.T) {
	row := extractKeys(t, "ACGTACGT", 4, 0)
	query := extractKeys(t, "ACGT", 4, 0)
	expect.EQ(t, len(query), 1)

	adjusted := AdjustedMinScore(query, 2, 0.5, nil)
	expect.EQ(t, adjusted, 2)

	presence := Presence(query, row)
	shared := 0
	for _, p := range presence {
		if p {
			shared++
		}
	}
	expect.EQ(t, shared, 1)

	match, recheck := index.Consistent(presence, adjusted)
	expect.False(t, match)
	expect.False(t, recheck)
}

// TestScenario6MatchAtAdjustedThreshold is end-to-end scenario #6: same
// setup as #5 but query is "ACGTACGT" itself (5 keys, the k-mer "ACGT"
// occurring twice); adjusted_min_score rises to
// max(2, ceil(0.5*5))=3, and the candidate matches.
func TestScenario6MatchAtAdjustedThreshold(t *testing.T) {
	row := extractKeys(t, "ACGTACGT", 4, 0)
	query := extractKeys(t, "ACGTACGT", 4, 0)
	expect.EQ(t, len(query), 5)

	adjusted := AdjustedMinScore(query, 2, 0.5, nil)
	expect.EQ(t, adjusted, 3)

	presence := Presence(query, row)
	shared := 0
	for _, p := range presence {
		if p {
			shared++
		}
	}
	expect.True(t, shared >= 2)

	match, recheck := index.Consistent(presence, adjusted)
	expect.True(t, match)
	expect.False(t, recheck)
}

func TestSortKeys(t *testing.T) {
	q := keys(3, 1, 2)
	got := SortKeys(q)
	expect.EQ(t, got, keys(1, 2, 3))
	// original input must be untouched.
	expect.EQ(t, q, keys(3, 1, 2))
}
