package comp

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/decomp"
)

func buildRTPPacket(t *testing.T, seq uint16, ts uint32) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Id:       uint16(100 + seq),
		SrcIP:    net.ParseIP("10.0.0.1").To4(),
		DstIP:    net.ParseIP("10.0.0.2").To4(),
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: 5004, DstPort: 5004}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	rtp := make([]byte, 12+4)
	rtp[0] = 0x80
	rtp[2] = byte(seq >> 8)
	rtp[3] = byte(seq)
	rtp[4] = byte(ts >> 24)
	rtp[5] = byte(ts >> 16)
	rtp[6] = byte(ts >> 8)
	rtp[7] = byte(ts)
	copy(rtp[12:], []byte{0xDE, 0xAD, 0xBE, 0xEF})

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(rtp)))
	return buf.Bytes()
}

// TestRoundTripStaysInOneCID exercises §8 scenario 1: a steady RTP stream
// compresses to the same CID every time and the decompressor's MSN stays
// in lockstep. See TestRoundTripByteExact for the accompanying
// byte-for-byte reconstruction check.
func TestRoundTripStaysInOneCID(t *testing.T) {
	c := New(Options{CIDType: rohc.CIDTypeSmall, RTPDetect: func([]byte) bool { return true }})
	c.EnableProfiles(rohc.ProfileRTP)
	d := decomp.New(decomp.Options{CIDType: rohc.CIDTypeSmall})
	d.EnableProfiles(rohc.ProfileRTP)

	var cid uint16
	for i := uint16(1); i <= 10; i++ {
		wire, gotCID, status, err := c.Compress(buildRTPPacket(t, i, 8000+uint32(i)*160))
		require.NoError(t, err)
		require.Equal(t, rohc.StatusOK, status)
		if i == 1 {
			cid = gotCID
		} else {
			require.Equal(t, cid, gotCID, "flow should stick to its first context")
		}

		_, dstatus, derr := d.Decompress(gotCID, wire)
		require.NoError(t, derr)
		require.Equal(t, rohc.StatusOK, dstatus)
	}
}

func TestDecompressUnknownCIDWithoutIRFails(t *testing.T) {
	d := decomp.New(decomp.Options{CIDType: rohc.CIDTypeSmall})
	d.EnableProfiles(rohc.ProfileRTP)
	_, status, err := d.Decompress(3, []byte{0x00})
	require.Error(t, err)
	require.Equal(t, rohc.StatusNoContext, status)
}

// TestRoundTripByteExact enforces decompress(compress(P)) = P across the
// IR packet and the packets after it, whose TS and IP-ID both change on
// every packet, including one TS jump far outside the previous TS's W-LSB
// interval.
func TestRoundTripByteExact(t *testing.T) {
	c := New(Options{CIDType: rohc.CIDTypeSmall, RTPDetect: func([]byte) bool { return true }})
	c.EnableProfiles(rohc.ProfileRTP)
	d := decomp.New(decomp.Options{CIDType: rohc.CIDTypeSmall})
	d.EnableProfiles(rohc.ProfileRTP)

	timestamps := []uint32{8000, 8160, 8320, 8480, 40000, 40160, 40320}
	for i, ts := range timestamps {
		seq := uint16(i + 1)
		original := buildRTPPacket(t, seq, ts)
		wire, cid, status, err := c.Compress(original)
		require.NoError(t, err)
		require.Equal(t, rohc.StatusOK, status)

		got, dstatus, derr := d.Decompress(cid, wire)
		require.NoError(t, derr)
		require.Equal(t, rohc.StatusOK, dstatus)
		require.Equal(t, original, got, "packet %d must decompress back to its original bytes", i)
	}
}
