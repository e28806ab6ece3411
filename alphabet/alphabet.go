// Package alphabet implements C1: bit-exact translation between DNA text
// and packed bits for the strict 4-letter alphabet (Alphabet2) and the
// 15-symbol IUPAC alphabet (Alphabet4), plus degenerate-expansion
// utilities. See spec §3 and §4.1.
package alphabet

import (
	"github.com/biostream/pgkmer/kerr"
	"github.com/biostream/pgkmer/simdseq"
	gunsafe "github.com/grailbio/base/unsafe"
)

// Alphabet selects which of the two encodings a Packed value uses.
type Alphabet int

const (
	// Alphabet2 is the strict {A,C,G,T} (+U synonym) 2-bit encoding.
	Alphabet2 Alphabet = iota
	// Alphabet4 is the 15-symbol IUPAC 4-bit bit-set encoding.
	Alphabet4
)

// Step returns the number of packed bits per symbol for a.
func (a Alphabet) Step() int {
	if a == Alphabet2 {
		return 2
	}
	return 4
}

// Packed is a variable-length bit-packed DNA value with an explicit bit
// length, per spec §3: trailing unused bits of the last byte are always
// zero.
type Packed struct {
	BitLength uint32
	Bytes     []byte
	Alphabet  Alphabet
}

// NumSymbols returns the number of encoded symbols.
func (p *Packed) NumSymbols() int {
	return int(p.BitLength) / p.Alphabet.Step()
}

func byteLen(nSymbols, step int) int {
	bits := nSymbols * step
	return (bits + 7) / 8
}

// Encode2 encodes text under Alphabet2. Case-insensitive; 'U'/'u' are
// normalized to T at encode time (spec §6). Returns InvalidSymbol if text
// contains anything outside {A,C,G,T,U}.
func Encode2(text string) (*Packed, error) {
	src := gunsafe.StringToBytes(text)
	codes := make([]byte, len(src))
	for i, ch := range src {
		codes[i] = code2Of(ch)
		if codes[i] == simdseq.Code2Invalid {
			return nil, kerr.New(kerr.InvalidSymbol, "byte %q at offset %d is not a valid Alphabet-2 symbol", ch, i)
		}
	}
	packed := make([]byte, byteLen(len(codes), 2))
	simdseq.Pack2(packed, codes)
	return &Packed{BitLength: uint32(len(codes) * 2), Bytes: packed, Alphabet: Alphabet2}, nil
}

// Decode2 decodes p (which must have Alphabet == Alphabet2) back to
// canonical (upper-case) text.
func Decode2(p *Packed) (string, error) {
	if p.Alphabet != Alphabet2 {
		return "", kerr.New(kerr.Internal, "Decode2 called on a Packed value with Alphabet=%v", p.Alphabet)
	}
	n := p.NumSymbols()
	codes := make([]byte, n)
	simdseq.Unpack2(codes, p.Bytes)
	out := make([]byte, n)
	for i, c := range codes {
		out[i] = code2ToASCII(c)
	}
	return gunsafe.BytesToString(out), nil
}

// Encode4 encodes text under Alphabet4 (IUPAC). Case-insensitive; 'U'/'u'
// are normalized to T's code at encode time. Returns InvalidSymbol for any
// non-IUPAC byte.
func Encode4(text string) (*Packed, error) {
	src := gunsafe.StringToBytes(text)
	codes := make([]byte, len(src))
	for i, ch := range src {
		codes[i] = code4Of(ch)
		if codes[i] == simdseq.Code4Invalid {
			return nil, kerr.New(kerr.InvalidSymbol, "byte %q at offset %d is not a valid IUPAC symbol", ch, i)
		}
	}
	packed := make([]byte, byteLen(len(codes), 4))
	simdseq.Pack4(packed, codes)
	return &Packed{BitLength: uint32(len(codes) * 4), Bytes: packed, Alphabet: Alphabet4}, nil
}

// Decode4 decodes p (which must have Alphabet == Alphabet4) back to
// canonical (upper-case) IUPAC text.
func Decode4(p *Packed) (string, error) {
	if p.Alphabet != Alphabet4 {
		return "", kerr.New(kerr.Internal, "Decode4 called on a Packed value with Alphabet=%v", p.Alphabet)
	}
	n := p.NumSymbols()
	codes := make([]byte, n)
	simdseq.Unpack4(codes, p.Bytes)
	out := make([]byte, n)
	for i, c := range codes {
		out[i] = code4ToASCIIOf(c)
	}
	return gunsafe.BytesToString(out), nil
}

// GetCodes4 reads the k codes starting at offset (a symbol index, not a
// bit or byte index) into a freshly-allocated slice, bounds-checking the
// read per spec §4.1's numeric semantics. Returns OutOfRange if the window
// runs past the symbol count BitLength claims, or past the bytes p.Bytes
// actually holds (a stored row shorter than its claimed BitLength must not
// panic on a short slice).
func GetCodes4(p *Packed, offset, k int) ([]byte, error) {
	if p.Alphabet != Alphabet4 {
		return nil, kerr.New(kerr.Internal, "GetCodes4 called on a Packed value with Alphabet=%v", p.Alphabet)
	}
	if offset < 0 || k < 0 || offset+k > p.NumSymbols() {
		return nil, kerr.New(kerr.OutOfRange, "window [%d,%d) out of range for sequence of %d symbols", offset, offset+k, p.NumSymbols())
	}
	out := make([]byte, k)
	// Unpack only the bytes that cover the requested window; nibble
	// boundaries don't align to byte boundaries so we unpack from the
	// covering byte range and slice.
	startByte := offset / 2
	endByte := (offset + k + 1) / 2
	if endByte > len(p.Bytes) {
		return nil, kerr.New(kerr.OutOfRange, "window [%d,%d) out of range for a %d-byte packed buffer", offset, offset+k, len(p.Bytes))
	}
	tmp := make([]byte, (endByte-startByte)*2)
	simdseq.Unpack4(tmp, p.Bytes[startByte:endByte])
	copy(out, tmp[offset-startByte*2:])
	return out, nil
}

// GetCodes2 reads the k codes starting at offset from an Alphabet2 packed
// sequence, bounds-checked the same way as GetCodes4.
func GetCodes2(p *Packed, offset, k int) ([]byte, error) {
	if p.Alphabet != Alphabet2 {
		return nil, kerr.New(kerr.Internal, "GetCodes2 called on a Packed value with Alphabet=%v", p.Alphabet)
	}
	if offset < 0 || k < 0 || offset+k > p.NumSymbols() {
		return nil, kerr.New(kerr.OutOfRange, "window [%d,%d) out of range for sequence of %d symbols", offset, offset+k, p.NumSymbols())
	}
	startByte := offset / 4
	endByte := (offset + k + 3) / 4
	if endByte > len(p.Bytes) {
		return nil, kerr.New(kerr.OutOfRange, "window [%d,%d) out of range for a %d-byte packed buffer", offset, offset+k, len(p.Bytes))
	}
	tmp := make([]byte, (endByte-startByte)*4)
	simdseq.Unpack2(tmp, p.Bytes[startByte:endByte])
	out := make([]byte, k)
	copy(out, tmp[offset-startByte*4:])
	return out, nil
}

func code2Of(ch byte) byte     { return simdseq.Code2Of(ch) }
func code4Of(ch byte) byte     { return simdseq.Code4Of(ch) }
func code2ToASCII(c byte) byte { return simdseq.ASCIIOfCode2(c) }
func code4ToASCIIOf(c byte) byte { return simdseq.ASCIIOfCode4(c) }
