//go:build !amd64

package simdseq

// Pack2 packs src (one 2-bit code per byte, values 0-3) MSB-first into dst,
// 4 symbols per byte: dst[i/4] bit (6-2*(i%4)) holds src[i]. It panics if
// len(dst) != (len(src)+3)/4. Trailing unused bits of the last byte are
// zero, matching the packed-sequence invariant of spec §3.
func Pack2(dst, src []byte) { pack2Generic(dst, src) }

// Unpack2 is Pack2's inverse: it panics if len(src) != (len(dst)+3)/4.
func Unpack2(dst, src []byte) { unpack2Generic(dst, src) }

// Pack4 packs src (one 4-bit code per byte, values 0-15) MSB-first into
// dst, 2 symbols per byte: high nibble first. It panics if
// len(dst) != (len(src)+1)/2.
func Pack4(dst, src []byte) { pack4Generic(dst, src) }

// Unpack4 is Pack4's inverse: it panics if len(src) != (len(dst)+1)/2.
func Unpack4(dst, src []byte) { unpack4Generic(dst, src) }
