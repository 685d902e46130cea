// Package profile implements the per-protocol profile registry and chain
// coders. Classify uses gopacket's layered decoder to parse the
// uncompressed packet handed to the compressor rather than hand-rolling a
// second IPv4/UDP parser next to the chain coders that build the
// compressed wire bytes.
package profile

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

var ErrUnsupportedPacket = errors.New("profile: packet has no recognizable IP header")

// ClassifiedPacket is the result of decoding an uncompressed packet handed
// to Compress: enough structure for Match/profile selection and for the
// field-change analyzer, without yet committing to any wire encoding.
type ClassifiedPacket struct {
	Raw []byte

	IPVersion int
	IPv4      *layers.IPv4
	IPv6      *layers.IPv6

	TransportProto layers.IPProtocol
	UDP            *layers.UDP
	TCP            *layers.TCP

	IsRTP bool
	RTPSeq uint16
	RTPTimestamp uint32
	RTPMarker bool
	RTPSSRC uint32
	RTPPayloadType uint8

	// L3Payload is everything after the IP header: transport header plus
	// application data, for profiles that don't chain-code the transport
	// header at all (plain IP, ESP).
	L3Payload []byte

	// Payload is the opaque byte span this engine's chain coders cannot
	// reconstruct from compressed fields and so must carry on the wire
	// unchanged: the UDP/TCP application payload, or (for RTP) everything
	// after the fixed 12-byte RTP header, since the RTP header's own
	// fields are chain-coded separately.
	Payload []byte
}

// Classify decodes pkt's IP/transport headers with gopacket and, for UDP
// packets, asks rtpDetect (the caller-supplied classifier, §6) whether the
// payload is RTP. It never decodes a link layer — the engine consumes
// already-framed packets (§1 out of scope: link-layer framing).
func Classify(pkt []byte, rtpDetect rohc.RTPDetectFunc) (ClassifiedPacket, error) {
	var cp ClassifiedPacket
	cp.Raw = pkt
	if len(pkt) == 0 {
		return cp, ErrUnsupportedPacket
	}

	version := pkt[0] >> 4
	var firstLayer gopacket.LayerType
	switch version {
	case 4:
		firstLayer = layers.LayerTypeIPv4
	case 6:
		firstLayer = layers.LayerTypeIPv6
	default:
		return cp, ErrUnsupportedPacket
	}

	packet := gopacket.NewPacket(pkt, firstLayer, gopacket.Default)

	if ipv4, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		cp.IPVersion = 4
		cp.IPv4 = ipv4
		cp.TransportProto = ipv4.Protocol
		cp.L3Payload = ipv4.Payload
	} else if ipv6, ok := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ok {
		cp.IPVersion = 6
		cp.IPv6 = ipv6
		cp.TransportProto = ipv6.NextHeader
		cp.L3Payload = ipv6.Payload
	} else {
		return cp, ErrUnsupportedPacket
	}

	if udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		cp.UDP = udp
		cp.Payload = udp.Payload
		if rtpDetect != nil && rtpDetect(udp.Payload) {
			if rtpHeader, ok := parseRTP(udp.Payload); ok {
				cp.IsRTP = true
				cp.RTPSeq = rtpHeader.seq
				cp.RTPTimestamp = rtpHeader.timestamp
				cp.RTPMarker = rtpHeader.marker
				cp.RTPSSRC = rtpHeader.ssrc
				cp.RTPPayloadType = rtpHeader.payloadType
				// The RTP header's own fields are chain-coded; only what
				// follows it is opaque payload this engine must carry as-is.
				cp.Payload = udp.Payload[12:]
			}
		}
	} else if tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		cp.TCP = tcp
		cp.Payload = tcp.Payload
	} else if app := packet.ApplicationLayer(); app != nil {
		cp.Payload = app.Payload()
	}

	return cp, nil
}

type rtpHeader struct {
	seq         uint16
	timestamp   uint32
	marker      bool
	ssrc        uint32
	payloadType uint8
}

// parseRTP decodes the fixed 12-byte RTP header (RFC 3550 §5.1) from a UDP
// payload already classified as RTP by the caller's rtp_detection_cb.
func parseRTP(b []byte) (rtpHeader, bool) {
	if len(b) < 12 {
		return rtpHeader{}, false
	}
	version := b[0] >> 6
	if version != 2 {
		return rtpHeader{}, false
	}
	return rtpHeader{
		marker:      b[1]&0x80 != 0,
		payloadType: b[1] & 0x7F,
		seq:         uint16(b[2])<<8 | uint16(b[3]),
		timestamp:   uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7]),
		ssrc:        uint32(b[8])<<24 | uint32(b[9])<<16 | uint32(b[10])<<8 | uint32(b[11]),
	}, true
}
