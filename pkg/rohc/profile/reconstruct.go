package profile

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

// internetChecksum computes the one's-complement-sum checksum RFC 1071
// defines for IPv4 and UDP headers.
func internetChecksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}

func buildIPv4Header(f staticFields, totalLen uint16, id uint16, ttl uint8) []byte {
	h := make([]byte, 20)
	h[0] = 0x45
	h[1] = f.tos
	binary.BigEndian.PutUint16(h[2:4], totalLen)
	binary.BigEndian.PutUint16(h[4:6], id)
	h[8] = ttl
	h[9] = byte(f.proto)
	copy(h[12:16], f.srcIP.To4())
	copy(h[16:20], f.dstIP.To4())
	sum := internetChecksum(h)
	binary.BigEndian.PutUint16(h[10:12], sum)
	return h
}

// udpStyleHeader builds the 8-byte UDP/UDP-Lite header plus a checksum
// computed over the IPv4 pseudo-header, header, and payload (RFC 768). Both
// protocols share this byte layout; UDP-Lite's partial-coverage checksum
// semantics are not modeled (see DESIGN.md).
func udpStyleHeader(f staticFields, payload []byte) []byte {
	udpLen := 8 + len(payload)
	h := make([]byte, 8)
	binary.BigEndian.PutUint16(h[0:2], f.srcPort)
	binary.BigEndian.PutUint16(h[2:4], f.dstPort)
	binary.BigEndian.PutUint16(h[4:6], uint16(udpLen))

	var pseudo []byte
	pseudo = append(pseudo, f.srcIP.To4()...)
	pseudo = append(pseudo, f.dstIP.To4()...)
	pseudo = append(pseudo, 0, byte(f.proto))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(udpLen))
	pseudo = append(pseudo, lenBuf[:]...)
	pseudo = append(pseudo, h...)
	pseudo = append(pseudo, payload...)
	sum := internetChecksum(pseudo)
	if sum == 0 {
		sum = 0xFFFF // all-zero checksum means "no checksum" on the wire
	}
	binary.BigEndian.PutUint16(h[6:8], sum)
	return h
}

func rtpHeaderBytes(dv dynamicValues, ssrc uint32, payloadType uint8) []byte {
	h := make([]byte, 12)
	h[0] = 0x80
	m := byte(0)
	if dv.Marker {
		m = 0x80
	}
	h[1] = m | payloadType&0x7F
	binary.BigEndian.PutUint16(h[2:4], dv.MSN)
	binary.BigEndian.PutUint32(h[4:8], dv.TS)
	binary.BigEndian.PutUint32(h[8:12], ssrc)
	return h
}

// assemblePacket rebuilds the full uncompressed packet (IP header, optional
// transport header, optional RTP header, and the carried opaque payload)
// from a static chain and a fully-resolved set of dynamic values — the
// inverse of Classify's field extraction plus staticChain/extractDynamic.
// Both Compress's CRC-7 computation (over cp.Raw directly, which needs no
// reconstruction) and every decompress-side parse function call this to
// produce both the CRC-7 input and the final decoded packet in one pass.
func assemblePacket(spec Spec, static []byte, dv dynamicValues, payload []byte) ([]byte, error) {
	f, err := decodeStaticFields(spec, static)
	if err != nil {
		return nil, err
	}
	if f.ipVersion != 4 {
		// IPv6 static-chain fields are captured (see staticChain) but this
		// engine does not yet rebuild an IPv6 header from them.
		return nil, rohc.ErrMalformed
	}

	l4Payload := payload
	if spec.IsRTP {
		l4Payload = append(rtpHeaderBytes(dv, f.ssrc, f.payloadType), payload...)
	}

	var out []byte
	switch {
	case spec.HasTransportPorts && (f.proto == layers.IPProtocolUDP || f.proto == layers.IPProtocolUDPLite):
		udp := udpStyleHeader(f, l4Payload)
		ip := buildIPv4Header(f, uint16(20+len(udp)+len(l4Payload)), dv.IPID, dv.TTL)
		out = append(out, ip...)
		out = append(out, udp...)
		out = append(out, l4Payload...)
	case spec.HasTransportPorts:
		// TCP's base header (ports, seq/ack, flags, window) is not modeled
		// by this engine's dynamic chain (see the TCP stub in DESIGN.md);
		// reconstruction for that profile is not supported.
		return nil, rohc.ErrMalformed
	default:
		ip := buildIPv4Header(f, uint16(20+len(l4Payload)), dv.IPID, dv.TTL)
		out = append(out, ip...)
		out = append(out, l4Payload...)
	}
	return out, nil
}
