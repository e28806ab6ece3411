package simdseq

// Code2Invalid marks an ASCII byte outside {A,C,G,T,U} (case-insensitive)
// in asciiToCode2. It never appears in a validly packed Alphabet-2 value.
const Code2Invalid = 0xff

// Code4Invalid marks an ASCII byte outside the fifteen IUPAC symbols in
// asciiToCode4. It is distinct from Code4Empty (the packed nibble value
// 0), which spec's degenerate-limit rule also treats as fully ambiguous.
const Code4Invalid = 0xff

// Code4Empty is the packed-nibble value with no {A,C,G,T} membership bits
// set. It cannot be produced by Encode4 from valid input, but a caller
// handed a raw packed buffer (e.g. from storage) may present it, and the
// degenerate-limit rule (spec §4.1) requires it be treated the same as 'N'.
const Code4Empty = 0

// asciiToCode2 maps an ASCII byte to its 2-bit Alphabet-2 code
// (A=0,C=1,G=2,T=3/U=3), or Code2Invalid. Case-insensitive.
var asciiToCode2 [256]byte

// code2ToASCII is the inverse of asciiToCode2's valid entries; canonical
// (upper-case) output.
var code2ToASCII = [4]byte{'A', 'C', 'G', 'T'}

// asciiToCode4 maps an ASCII byte to its 4-bit IUPAC bit-set code
// (bit0=A,bit1=C,bit2=G,bit3=T — e.g. N=15, M=A|C=3), or Code4Invalid.
// Case-insensitive.
var asciiToCode4 [256]byte

// code4ToASCII is the inverse of asciiToCode4's 16 possible nibble values
// (index 0 is the empty/invalid encoding, rendered as '-').
var code4ToASCII = [16]byte{'-', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

func init() {
	for i := range asciiToCode2 {
		asciiToCode2[i] = Code2Invalid
	}
	asciiToCode2['A'], asciiToCode2['a'] = 0, 0
	asciiToCode2['C'], asciiToCode2['c'] = 1, 1
	asciiToCode2['G'], asciiToCode2['g'] = 2, 2
	asciiToCode2['T'], asciiToCode2['t'] = 3, 3
	asciiToCode2['U'], asciiToCode2['u'] = 3, 3 // U is a synonym for T.

	for i := range asciiToCode4 {
		asciiToCode4[i] = Code4Invalid
	}
	for code, ch := range code4ToASCII {
		if code == 0 {
			continue
		}
		asciiToCode4[ch] = byte(code)
		asciiToCode4[ch+('a'-'A')] = byte(code)
	}
	asciiToCode4['U'], asciiToCode4['u'] = asciiToCode4['T'], asciiToCode4['T']
}

// code4BitCount holds the number of {A,C,G,T} membership bits set in each
// packed nibble value (0-15). It is a tiny popcount table, not a loop,
// since it sits in extraction's innermost path.
var code4BitCount = [16]byte{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// Code2Of returns ch's Alphabet-2 code, or Code2Invalid.
func Code2Of(ch byte) byte { return asciiToCode2[ch] }

// ASCIIOfCode2 returns the canonical (upper-case) ASCII byte for a valid
// Alphabet-2 code (0-3).
func ASCIIOfCode2(code byte) byte { return code2ToASCII[code&3] }

// Code4Of returns ch's Alphabet-4 (IUPAC) code, or Code4Invalid.
func Code4Of(ch byte) byte { return asciiToCode4[ch] }

// ASCIIOfCode4 returns the canonical (upper-case) ASCII byte for a 4-bit
// IUPAC code (0-15).
func ASCIIOfCode4(code byte) byte { return code4ToASCII[code&15] }

// BitCount4 returns the number of {A,C,G,T} membership bits set in a
// packed nibble value (0-15).
func BitCount4(code byte) int { return int(code4BitCount[code&15]) }
