package wlsb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const bitWidth = 16
	vRef := uint64(1000)
	for _, v := range []uint64{1000, 1001, 1005, 1020, 999, 65535, 0} {
		k, bits := Encode(v, vRef, 0, bitWidth, bitWidth)
		got, err := Decode(bits, k, vRef, 0, bitWidth)
		require.NoError(t, err)
		require.Equalf(t, v%(1<<bitWidth), got, "v=%d k=%d bits=%x", v, k, bits)
	}
}

func TestEncodePicksMinimalK(t *testing.T) {
	// vRef=100, v=101 differs by 1: a single bit already distinguishes it
	// from every value in [100-0, 100-0+2^1-1].
	k, _ := Encode(101, 100, 0, 16, 16)
	require.Equal(t, uint8(1), k)
}

func TestDecodeFailsOnlyWhenKExceedsBitWidth(t *testing.T) {
	_, err := Decode(0, 17, 100, 0, 16)
	require.ErrorIs(t, err, ErrDecodeFailed)

	_, err = Decode(0, 16, 100, 0, 16)
	require.NoError(t, err)
}

func TestFitsAndMinBitsAgreeWithEncode(t *testing.T) {
	const bitWidth = 16
	vRef := uint64(5000)
	for _, v := range []uint64{5000, 5001, 5010, 5100, 4999} {
		k, _ := Encode(v, vRef, 0, bitWidth, bitWidth)
		require.Truef(t, Fits(v, vRef, 0, k, bitWidth), "Fits disagreed with Encode for v=%d k=%d", v, k)
		require.Equal(t, k, MinBits(v, vRef, 0, bitWidth, bitWidth))
	}
}

func TestWrapAroundAtFieldBoundary(t *testing.T) {
	// IP-ID style 16-bit field wrapping from 65535 back to 0.
	const bitWidth = 16
	vRef := uint64(65535)
	k, bits := Encode(0, vRef, 0, bitWidth, bitWidth)
	got, err := Decode(bits, k, vRef, 0, bitWidth)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}

func TestPOffsetTable(t *testing.T) {
	require.Equal(t, int64(-1), POffset(FieldSN, ModeR, 4))
	require.Equal(t, int64(0), POffset(FieldSN, ModeU, 4))
	require.Equal(t, int64(0), POffset(FieldIPID, ModeU, 4))
	require.Equal(t, int64(3), POffset(FieldTS, ModeU, 4)) // 2^(4-2)-1 = 3
	require.Equal(t, int64(0), POffset(FieldTS, ModeU, 1))
}
