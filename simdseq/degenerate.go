package simdseq

// MaxDegenerateExpansion is the hard cap on the number of strict k-mers a
// single degenerate window may expand to (spec §4.1).
const MaxDegenerateExpansion = 10

// ExceedsDegenerateLimit reports whether a window of unpacked 4-bit IUPAC
// codes (one code per byte, values 0-15) is to be skipped as exceeding the
// degenerate-expansion limit, without materializing the expansion. It can
// report true for windows that ExpandDegenerate would still expand within
// MaxDegenerateExpansion. Per spec §9's Open Question, this implements the stricter of
// the two documented rules: the window exceeds the limit iff it contains
// any fully-ambiguous symbol (bit count 4, i.e. 'N', or bit count 0, the
// empty/invalid encoding) OR two or more partially-ambiguous symbols (bit
// count 2 or 3). A single partially-ambiguous symbol never exceeds.
func ExceedsDegenerateLimit(codes []byte) bool {
	partial := 0
	for _, c := range codes {
		switch code4BitCount[c&15] {
		case 0, 4:
			return true
		case 2, 3:
			partial++
			if partial >= 2 {
				return true
			}
		}
	}
	return false
}

// bitOptions lists, for each 4-bit code, the strict single-bit codes it is
// composed of, in ascending bit order (A, C, G, T). Built once at init
// time by testing each of the four bits of every code.
var bitOptions [16][]byte

func init() {
	for code := 0; code < 16; code++ {
		var opts []byte
		for bit := byte(1); bit <= 8; bit <<= 1 {
			if byte(code)&bit != 0 {
				opts = append(opts, bit)
			}
		}
		bitOptions[code] = opts
	}
}

// ExpandDegenerate generates all strict k-mers (as unpacked 4-bit code
// slices) matching a degenerate window, in deterministic left-to-right,
// ascending-bit-order expansion. It returns ok=false — without allocating
// the expansion — the instant the product of per-position option counts
// would exceed MaxDegenerateExpansion; per spec §4.1, callers must treat
// ok=false as a skip signal, not an error.
func ExpandDegenerate(codes []byte) (combos [][]byte, ok bool) {
	product := 1
	for _, c := range codes {
		n := len(bitOptions[c&15])
		if n == 0 {
			return nil, false // empty/invalid encoding: treat as exceeding.
		}
		product *= n
		if product > MaxDegenerateExpansion {
			return nil, false
		}
	}
	combos = make([][]byte, 0, product)
	cur := make([]byte, len(codes))
	var rec func(pos int)
	rec = func(pos int) {
		if pos == len(codes) {
			out := make([]byte, len(codes))
			copy(out, cur)
			combos = append(combos, out)
			return
		}
		for _, opt := range bitOptions[codes[pos]&15] {
			cur[pos] = opt
			rec(pos + 1)
		}
	}
	rec(0)
	return combos, true
}
