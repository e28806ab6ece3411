package index

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestSelectWidth(t *testing.T) {
	for _, tc := range []struct {
		k, r int
		want Width
	}{
		{k: 4, r: 0, want: Width16},  // 2*4+0 = 8
		{k: 8, r: 0, want: Width16},  // 2*8+0 = 16
		{k: 8, r: 1, want: Width32},  // 17
		{k: 16, r: 0, want: Width32}, // 32
		{k: 16, r: 8, want: Width64}, // 40
		{k: 32, r: 0, want: Width64}, // 64
	} {
		got, err := SelectWidth(tc.k, tc.r)
		expect.NoError(t, err)
		expect.EQ(t, got, tc.want)
	}
}

func TestSelectWidthOutOfRange(t *testing.T) {
	_, err := SelectWidth(32, 1) // 2*32+1 = 65 > 64
	assert.HasSubstr(t, err.Error(), "exceeds the maximum key width")
}

func TestMakeKeyLayout(t *testing.T) {
	k := MakeKey(0x3, 2, 2) // kmerBits=0b11, rank=0b10, r=2 -> 0b1110
	expect.EQ(t, uint64(k), uint64(0xe))
}

func TestCompare(t *testing.T) {
	expect.EQ(t, Compare(Key(1), Key(2)), -1)
	expect.EQ(t, Compare(Key(2), Key(1)), 1)
	expect.EQ(t, Compare(Key(5), Key(5)), 0)
}

func TestWidenRoundTrip(t *testing.T) {
	expect.EQ(t, uint64(Widen(uint16(7))), uint64(7))
	expect.EQ(t, uint64(Widen(uint32(7))), uint64(7))
	expect.EQ(t, uint64(Widen(uint64(7))), uint64(7))
}
