// Package simdseq provides SIMD-dispatched pack/unpack primitives for the
// two DNA alphabets used by the k-mer search core: the strict 2-bit
// {A,C,G,T} alphabet and the 4-bit IUPAC bit-set alphabet. Each exported
// operation has a portable scalar implementation (common.go, built on all
// platforms and exported directly by pack_generic.go on non-amd64 builds)
// and a runtime-capability-gated accelerated path
// (the *_amd64.go files) that processes a full machine word of symbols per
// iteration; the two paths are required to be byte-identical. See
// base/simd's doc.go, which this package's structure is modeled on, for the
// original rationale.
package simdseq
