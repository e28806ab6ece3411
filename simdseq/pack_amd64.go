//go:build amd64

package simdseq

import "golang.org/x/sys/cpu"

// hasFastPath gates the unrolled word-parallel loops below. It is a
// runtime capability probe in the sense of the design notes: callers never
// branch on it directly, and the two paths are required to produce
// byte-identical output. ForceCapability lets tests and the
// force_simd_capability config knob pin a path regardless of the detected
// CPU.
var hasFastPath = cpu.X86.HasSSE42

// ForceCapability overrides the detected capability; pass -1 to restore
// auto-detection. It exists for the force_simd_capability test knob (spec
// §6) and for deterministic benchmarking.
func ForceCapability(force int) {
	switch force {
	case -1:
		hasFastPath = cpu.X86.HasSSE42
	case 0:
		hasFastPath = false
	default:
		hasFastPath = true
	}
}

func Pack2(dst, src []byte) {
	if !hasFastPath || len(src) < 32 {
		pack2Generic(dst, src)
		return
	}
	n := len(src)
	nFull := n >> 2
	i := 0
	// Unrolled 4-wide: each iteration packs 4 source codes into 1 dst
	// byte, 4 dst bytes (16 codes) per pass.
	for ; i+4 <= nFull; i += 4 {
		dst[i] = src[4*i]<<6 | src[4*i+1]<<4 | src[4*i+2]<<2 | src[4*i+3]
		dst[i+1] = src[4*i+4]<<6 | src[4*i+5]<<4 | src[4*i+6]<<2 | src[4*i+7]
		dst[i+2] = src[4*i+8]<<6 | src[4*i+9]<<4 | src[4*i+10]<<2 | src[4*i+11]
		dst[i+3] = src[4*i+12]<<6 | src[4*i+13]<<4 | src[4*i+14]<<2 | src[4*i+15]
	}
	for ; i < nFull; i++ {
		dst[i] = src[4*i]<<6 | src[4*i+1]<<4 | src[4*i+2]<<2 | src[4*i+3]
	}
	rem := n & 3
	if rem != 0 {
		var b byte
		for j := 0; j < rem; j++ {
			b |= src[nFull*4+j] << uint(6-2*j)
		}
		dst[nFull] = b
	}
}

func Unpack2(dst, src []byte) {
	if !hasFastPath || len(dst) < 32 {
		unpack2Generic(dst, src)
		return
	}
	dstLen := len(dst)
	nFull := dstLen >> 2
	i := 0
	for ; i+4 <= nFull; i += 4 {
		for k := 0; k < 4; k++ {
			b := src[i+k]
			dst[4*(i+k)] = b >> 6 & 3
			dst[4*(i+k)+1] = b >> 4 & 3
			dst[4*(i+k)+2] = b >> 2 & 3
			dst[4*(i+k)+3] = b & 3
		}
	}
	for ; i < nFull; i++ {
		b := src[i]
		dst[4*i] = b >> 6 & 3
		dst[4*i+1] = b >> 4 & 3
		dst[4*i+2] = b >> 2 & 3
		dst[4*i+3] = b & 3
	}
	if rem := dstLen & 3; rem != 0 {
		b := src[nFull]
		for j := 0; j < rem; j++ {
			dst[nFull*4+j] = b >> uint(6-2*j) & 3
		}
	}
}

func Pack4(dst, src []byte) {
	if !hasFastPath || len(src) < 32 {
		pack4Generic(dst, src)
		return
	}
	n := len(src)
	nFull := n >> 1
	i := 0
	for ; i+4 <= nFull; i += 4 {
		dst[i] = src[2*i]<<4 | src[2*i+1]
		dst[i+1] = src[2*i+2]<<4 | src[2*i+3]
		dst[i+2] = src[2*i+4]<<4 | src[2*i+5]
		dst[i+3] = src[2*i+6]<<4 | src[2*i+7]
	}
	for ; i < nFull; i++ {
		dst[i] = src[2*i]<<4 | src[2*i+1]
	}
	if n&1 != 0 {
		dst[nFull] = src[2*nFull] << 4
	}
}

func Unpack4(dst, src []byte) {
	if !hasFastPath || len(dst) < 32 {
		unpack4Generic(dst, src)
		return
	}
	dstLen := len(dst)
	nFull := dstLen >> 1
	i := 0
	for ; i+4 <= nFull; i += 4 {
		for k := 0; k < 4; k++ {
			b := src[i+k]
			dst[2*(i+k)] = b >> 4
			dst[2*(i+k)+1] = b & 15
		}
	}
	for ; i < nFull; i++ {
		b := src[i]
		dst[2*i] = b >> 4
		dst[2*i+1] = b & 15
	}
	if dstLen&1 != 0 {
		dst[2*nFull] = src[nFull] >> 4
	}
}
