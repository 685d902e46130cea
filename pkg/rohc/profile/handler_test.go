package profile

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

func buildIPv4UDPRTP(t *testing.T, seq uint16, ts uint32, ipid uint16) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Id:       ipid,
		SrcIP:    net.ParseIP("192.168.1.50").To4(),
		DstIP:    net.ParseIP("192.168.1.100").To4(),
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: 5004, DstPort: 5004}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	rtp := make([]byte, 12)
	rtp[0] = 0x80
	rtp[1] = 0
	rtp[2] = byte(seq >> 8)
	rtp[3] = byte(seq)
	rtp[4] = byte(ts >> 24)
	rtp[5] = byte(ts >> 16)
	rtp[6] = byte(ts >> 8)
	rtp[7] = byte(ts)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(rtp)))
	return buf.Bytes()
}

func rtpDetectAlways(b []byte) bool { return true }

func TestClassifyIdentifiesRTP(t *testing.T) {
	pkt := buildIPv4UDPRTP(t, 100, 16000, 42)
	cp, err := Classify(pkt, rtpDetectAlways)
	require.NoError(t, err)
	require.True(t, cp.IsRTP)
	require.Equal(t, uint16(100), cp.RTPSeq)
	require.Equal(t, uint32(16000), cp.RTPTimestamp)
	require.Equal(t, uint16(42), cp.IPv4.Id)
}

func TestRTPHandlerRoundTripsIRThenReachesSO(t *testing.T) {
	h := genericHandler{spec: Spec{ID: 1, Name: "rtp", HasTransportPorts: true, TransportProto: layers.IPProtocolUDP, IsRTP: true}}
	cctx := h.NewCompContext(0)
	dctx := h.NewDecompContext(0)

	// First packet must be IR: no static chain known yet.
	cp1, err := Classify(buildIPv4UDPRTP(t, 1, 8000, 10), rtpDetectAlways)
	require.NoError(t, err)
	wire1, pt1, err := h.Compress(cctx, cp1)
	require.NoError(t, err)
	require.Equal(t, byte(0xFD), wire1[0])

	res1, err := h.Decompress(dctx, wire1)
	require.NoError(t, err)
	h.Commit(dctx, res1)
	require.Equal(t, uint16(1), dctx.MSN)
	_ = pt1

	// Feed enough packets with an unchanged static chain for the compressor
	// to reach SO, where UO-0 becomes eligible (the TS changes on every
	// packet here, so none of them goes out as UO-0); mirror every one of
	// them to the decompressor so both sides' SN windows stay in lockstep.
	var lastWire []byte
	for i := uint16(2); i <= 8; i++ {
		cp, err := Classify(buildIPv4UDPRTP(t, i, 8000+uint32(i)*160, 10), rtpDetectAlways)
		require.NoError(t, err)
		wire, _, err := h.Compress(cctx, cp)
		require.NoError(t, err)
		res, err := h.Decompress(dctx, wire)
		require.NoError(t, err)
		h.Commit(dctx, res)
		lastWire = wire
	}
	require.NotNil(t, lastWire)
	require.Equal(t, uint16(8), dctx.MSN)
	require.Equal(t, rohc.StateSO, cctx.State)
}
