package alphabet

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestEncode2DecodeRoundTrip(t *testing.T) {
	for _, text := range []string{"ACGT", "acgtACGT", "AAAAUUUU", "A"} {
		p, err := Encode2(text)
		expect.NoError(t, err)
		got, err := Decode2(p)
		expect.NoError(t, err)
		want := text
		if want == "AAAAUUUU" {
			want = "AAAATTTT" // U normalizes to T.
		}
		expect.EQ(t, got, upper(want))
	}
}

func TestEncode2InvalidSymbol(t *testing.T) {
	_, err := Encode2("ACGN")
	assert.HasSubstr(t, err.Error(), "not a valid Alphabet-2 symbol")
}

func TestEncode4DecodeRoundTrip(t *testing.T) {
	for _, text := range []string{"ACGT", "ACGTN", "RYSWKM"} {
		p, err := Encode4(text)
		expect.NoError(t, err)
		got, err := Decode4(p)
		expect.NoError(t, err)
		expect.EQ(t, got, upper(text))
	}
}

func TestGetCodes2BoundsCheck(t *testing.T) {
	p, err := Encode2("ACGTACGT")
	expect.NoError(t, err)
	_, err = GetCodes2(p, 5, 8)
	assert.HasSubstr(t, err.Error(), "out of range")
}

func TestGetCodes2BoundsCheckAgainstShortBytes(t *testing.T) {
	// BitLength claims far more symbols than Bytes actually backs, the
	// shape a malformed or truncated stored row can take: the read must be
	// rejected, not panic by slicing past p.Bytes.
	p := &Packed{BitLength: 1000000000, Alphabet: Alphabet2}
	_, err := GetCodes2(p, 0, 4)
	assert.HasSubstr(t, err.Error(), "out of range")
}

func TestGetCodes4BoundsCheckAgainstShortBytes(t *testing.T) {
	p := &Packed{BitLength: 1000000000, Alphabet: Alphabet4}
	_, err := GetCodes4(p, 0, 4)
	assert.HasSubstr(t, err.Error(), "out of range")
}

func TestGetCodes2Window(t *testing.T) {
	p, err := Encode2("ACGTACGT")
	expect.NoError(t, err)
	codes, err := GetCodes2(p, 2, 4)
	expect.NoError(t, err)
	expect.EQ(t, len(codes), 4)
}

// FuzzEncode2DecodeRoundTrip checks the universally quantified round-trip
// invariant: decode(encode(s)) = upper(s with U/u normalized to T) for any
// string over the Alphabet-2 symbol set.
func FuzzEncode2DecodeRoundTrip(f *testing.F) {
	f.Add("ACGT")
	f.Add("acgtACGT")
	f.Add("AAAAUUUU")
	f.Add("A")
	f.Add("")

	f.Fuzz(func(t *testing.T, text string) {
		p, err := Encode2(text)
		if err != nil {
			return // text contains a byte outside {A,C,G,T,U}; not our concern here.
		}
		got, err := Decode2(p)
		expect.NoError(t, err)
		want := []byte(upper(text))
		for i, c := range want {
			if c == 'U' {
				want[i] = 'T'
			}
		}
		expect.EQ(t, got, string(want))
	})
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
