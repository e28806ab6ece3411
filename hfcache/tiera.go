package hfcache

import farm "github.com/dgryski/go-farm"

// tierA is the process-local membership hash of spec §4.7 tier 1: an
// open-addressed table over the high-frequency key values, built once per
// process per parameter tuple. Kept as a plain Go slice rather than an
// unsafe-pointer arena — C7's values are bare presence markers (no
// outlined payload to economize), so a slice-backed linear-probe table
// gives the same O(1) membership check without the pointer arithmetic
// spec §9 singles out for re-architecture. occupied is tracked separately
// rather than via a reserved sentinel value, since a full-width key
// (k=32, r=0) can legitimately take on any 64-bit pattern, including
// all-ones.
type tierA struct {
	table    []uint64
	occupied []bool
	mask     uint64
	n        int
}

func newTierA(expectedEntries int) *tierA {
	size := uint64(1)
	for size < uint64(expectedEntries)*2 {
		size *= 2
	}
	if size < 16 {
		size = 16
	}
	return &tierA{table: make([]uint64, size), occupied: make([]bool, size), mask: size - 1}
}

func hashValue(v uint64) uint64 {
	return farm.Hash64WithSeed(nil, v)
}

// insert adds value to the table; duplicate inserts are no-ops.
func (t *tierA) insert(value uint64) {
	h := hashValue(value) & t.mask
	for {
		if !t.occupied[h] {
			t.table[h] = value
			t.occupied[h] = true
			t.n++
			return
		}
		if t.table[h] == value {
			return
		}
		h = (h + 1) & t.mask
	}
}

// contains reports whether value was inserted.
func (t *tierA) contains(value uint64) bool {
	h := hashValue(value) & t.mask
	for {
		if !t.occupied[h] {
			return false
		}
		if t.table[h] == value {
			return true
		}
		h = (h + 1) & t.mask
	}
}

func (t *tierA) len() int { return t.n }
