// Package score implements C5: shared-key counting between a query's and a
// candidate row's key-multisets, and the adjusted-minimum-score formula
// that accounts for keys excluded as high-frequency (spec §4.5).
package score

import (
	"sort"

	"github.com/biostream/pgkmer/index"
)

// Presence computes, for each key in queryKeys (in order), whether it
// occurs in rowKeys. This is the bitmap consistent() consumes (spec
// §4.3/§4.5).
func Presence(queryKeys, rowKeys []index.Key) []bool {
	set := make(map[index.Key]struct{}, len(rowKeys))
	for _, k := range rowKeys {
		set[k] = struct{}{}
	}
	out := make([]bool, len(queryKeys))
	for i, k := range queryKeys {
		_, out[i] = set[k]
	}
	return out
}

// AdjustedMinScore implements spec §4.5's formula:
//
//	base_min = max(min_score, ceil(min_shared_rate * n_q))
//	excluded = |query_keys ∩ high_frequency_keys|
//	adjusted = max(1, base_min - excluded)
//
// isHighFrequency reports whether a key belongs to the high-frequency
// exclusion set (package hfcache supplies this in production use).
func AdjustedMinScore(queryKeys []index.Key, minScore int, minSharedRate float64, isHighFrequency func(index.Key) bool) int {
	nQ := len(queryKeys)
	baseMin := minScore
	if rateMin := ceilRate(minSharedRate, nQ); rateMin > baseMin {
		baseMin = rateMin
	}
	excluded := 0
	if isHighFrequency != nil {
		for _, k := range queryKeys {
			if isHighFrequency(k) {
				excluded++
			}
		}
	}
	adjusted := baseMin - excluded
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

func ceilRate(rate float64, n int) int {
	v := rate * float64(n)
	iv := int(v)
	if float64(iv) < v {
		iv++
	}
	return iv
}

// SortKeys returns a freshly-sorted copy of keys, the canonical order the
// adjusted-minimum-score cache hashes against (spec §4.4).
func SortKeys(keys []index.Key) []index.Key {
	out := make([]index.Key, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return index.Compare(out[i], out[j]) < 0 })
	return out
}
