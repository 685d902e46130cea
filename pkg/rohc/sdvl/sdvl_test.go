package sdvl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, maxValue}
	for _, v := range cases {
		b, err := Encode(v)
		require.NoErrorf(t, err, "value %#x", v)
		got, n, err := Decode(b)
		require.NoError(t, err)
		require.Equal(t, len(b), n)
		require.Equalf(t, v, got, "value %#x round-tripped to %#x via %x", v, got, b)
	}
}

func TestEncodeLengthBoundaries(t *testing.T) {
	lengths := map[uint32]int{
		0:        1,
		0x7F:     1,
		0x80:     2,
		0x3FFF:   2,
		0x4000:   3,
		0x1FFFFF: 3,
		0x200000: 4,
		maxValue: 4,
	}
	for v, wantLen := range lengths {
		b, err := Encode(v)
		require.NoError(t, err)
		require.Equalf(t, wantLen, len(b), "value %#x", v)
	}
}

func TestEncodeRejectsOversizedValue(t *testing.T) {
	_, err := Encode(maxValue + 1)
	require.ErrorIs(t, err, ErrValueTooLarge)
	require.False(t, Encodable(maxValue+1))
	require.True(t, Encodable(maxValue))
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := Decode(nil)
	require.ErrorIs(t, err, ErrTruncated)

	b, err := Encode(0x3FFF) // 2-byte encoding
	require.NoError(t, err)
	_, _, err = Decode(b[:1])
	require.ErrorIs(t, err, ErrTruncated)
}
