package feedback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFeedback1(t *testing.T) {
	fb, err := Parse([]byte{0x42})
	require.NoError(t, err)
	require.Equal(t, Kind1, fb.Kind)
	require.Equal(t, byte(0x42), fb.Profile)
}

func TestParseFeedback2RFC6846WithOptions(t *testing.T) {
	built := Build(Nack, 0x1230, Option{Type: OptSN, Value: []byte{0x12, 0x30}})
	fb, err := Parse(built)
	require.NoError(t, err)
	require.Equal(t, Kind2, fb.Kind)
	require.Equal(t, Nack, fb.AckType)
	require.Equal(t, uint32(0x1230), fb.SN)
	require.Len(t, fb.Options, 1)
	require.Equal(t, OptSN, fb.Options[0].Type)
}

func TestIdempotentDelivery(t *testing.T) {
	// §8: Delivering the same feedback octet twice produces the same
	// parsed result both times (idempotence of parsing underlies the
	// idempotence-of-feedback property, since the compressor's state
	// transition is a pure function of the parsed ack type + SN).
	built := Build(StaticNack, 7)
	fb1, err1 := Parse(built)
	fb2, err2 := Parse(built)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, fb1, fb2)
}

func TestParseLegacyRFC3095Layout(t *testing.T) {
	fb, err := Parse([]byte{0x05, 0x34}) // ack_type=0, mode=0, sn1=5
	require.NoError(t, err)
	require.Equal(t, Kind2, fb.Kind)
	require.Equal(t, Ack, fb.AckType)
	require.Equal(t, uint32(0x534), fb.SN)
}
