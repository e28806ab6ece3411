// Package index implements C3: the key model and the bridge between the
// key-stream produced by kmer.Extract and the host's generalized inverted
// index operations (spec §4.3, §6).
package index

import "github.com/biostream/pgkmer/kerr"

// Width is one of the three integer widths an index key may be stored at
// (spec §3). The design notes call for "a width-parametric generic with
// three concrete monomorphizations kept identical by a shared trait";
// Uint (below) and the generic Widen helper at the end of this file are that generic,
// Width16/32/64 are its three instantiations.
type Width int

const (
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Uint is the type constraint satisfied by each of the three concrete key
// container types.
type Uint interface {
	~uint16 | ~uint32 | ~uint64
}

// TotalBits returns 2k+r, the number of significant bits a single key
// carries before width selection.
func TotalBits(k, r int) int { return 2*k + r }

// SelectWidth implements spec §3's width-monotonicity rule: the width is a
// pure function of (k, r), never of data, so it is stable across a
// session. Returns OutOfRange if 2k+r exceeds the largest supported
// container (64 bits).
func SelectWidth(k, r int) (Width, error) {
	total := TotalBits(k, r)
	switch {
	case total > 64:
		return 0, kerr.New(kerr.OutOfRange, "2k+r=%d exceeds the maximum key width of 64 bits", total)
	case total <= 16:
		return Width16, nil
	case total <= 32:
		return Width32, nil
	default:
		return Width64, nil
	}
}

// Key is the unsigned integer carrying k-mer bits (high) and occurrence
// rank bits (low), always held at 64-bit precision internally; only the
// low TotalBits(k,r) bits are ever significant, per the layout in spec §3.
type Key uint64

// MakeKey packs kmerBits (the 2k-bit k-mer encoding) and rank (saturated
// to fit in r bits by the caller, see kmer.Extract) into a single Key:
// [kmerBits (2k bits)] ∥ [rank (r bits)], MSB to LSB.
func MakeKey(kmerBits uint64, rank uint32, r int) Key {
	return Key(kmerBits<<uint(r) | uint64(rank))
}

// Compare is the total order over keys required by spec §4.3: unsigned
// integer comparison on the w-bit value. It returns -1, 0, or 1.
func Compare(a, b Key) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// As16/As32/As64 project a Key down to its concrete storage width. Callers
// must have already validated, via SelectWidth, that the configured width
// covers the key's significant bits; these truncate silently otherwise
// (the same way a plain Go numeric conversion would).
func As16(k Key) uint16 { return uint16(k) }
func As32(k Key) uint32 { return uint32(k) }
func As64(k Key) uint64 { return uint64(k) }

// Widen reconstructs a Key from one of the three concrete storage widths.
func Widen[T Uint](v T) Key { return Key(v) }
