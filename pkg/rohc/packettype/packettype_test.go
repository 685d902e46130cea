package packettype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectKnownDiscriminators(t *testing.T) {
	cases := []struct {
		b    byte
		want PacketType
	}{
		{0x00, UO0},
		{0x7F, UO0},
		{0x80, UO1},
		{0xBF, UO1},
		{0xC0, UOR2},
		{0xDF, UOR2},
		{0xE0, UOR2Ext},
		{0xEF, UOR2Ext},
		{0xFA, COCommon},
		{0xFB, CORepair},
		{0xFD, IR},
		{0xFC, IRDyn},
	}
	for _, c := range cases {
		got, err := Detect(c.b)
		require.NoErrorf(t, err, "byte %#02x", c.b)
		require.Equalf(t, c.want, got, "byte %#02x", c.b)
	}
}

func TestDetectUnknownDiscriminator(t *testing.T) {
	_, err := Detect(0xFE)
	require.ErrorIs(t, err, ErrUnknown)
}

func TestStringCoversEveryType(t *testing.T) {
	for _, pt := range []PacketType{UO0, UO1, UOR2, UOR2Ext, COCommon, CORepair, IR, IRDyn} {
		require.NotEqual(t, "unknown", pt.String())
	}
	require.Equal(t, "unknown", PacketType(200).String())
}
