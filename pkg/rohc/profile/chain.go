package profile

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/internal/bitio"
	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/crc"
)

// dynamicValues is the per-packet snapshot of every field this engine
// tracks as "changing" for a given profile (§3 Data Model). Not every
// profile populates every field; HasIPID/HasTS/HasMarker gate which ones
// a given Spec cares about.
type dynamicValues struct {
	MSN      uint16
	TS       uint32
	Marker   bool
	IPID     uint16
	HasIPID  bool
	TTL      uint8
	IPIDBehavior rohc.IPIDBehavior // only meaningful when carried by IR/IR-DYN
}

// staticChain builds the byte blob that must stay constant for the context
// to remain in FO/SO (§4.1: a static-field change forces a transition back
// to IR). The layout is this engine's own — RFC 3095/5225's byte-exact
// static chain tables are external wire-format data this implementation
// was not given (see DESIGN.md) — but it is self-consistent and covers
// every field the spec requires static-chain coverage for: IP version,
// addresses, and (when present) transport ports and RTP SSRC.
func staticChain(spec Spec, cp ClassifiedPacket) []byte {
	var out []byte
	switch cp.IPVersion {
	case 4:
		out = append(out, 4)
		out = append(out, cp.IPv4.SrcIP.To4()...)
		out = append(out, cp.IPv4.DstIP.To4()...)
		out = append(out, byte(cp.IPv4.Protocol))
		out = append(out, cp.IPv4.TOS)
	case 6:
		out = append(out, 6)
		out = append(out, cp.IPv6.SrcIP.To16()...)
		out = append(out, cp.IPv6.DstIP.To16()...)
		out = append(out, byte(cp.IPv6.NextHeader))
		out = append(out, cp.IPv6.TrafficClass)
	}
	if spec.HasTransportPorts {
		var ports [4]byte
		if cp.UDP != nil {
			binary.BigEndian.PutUint16(ports[0:2], uint16(cp.UDP.SrcPort))
			binary.BigEndian.PutUint16(ports[2:4], uint16(cp.UDP.DstPort))
		} else if cp.TCP != nil {
			binary.BigEndian.PutUint16(ports[0:2], uint16(cp.TCP.SrcPort))
			binary.BigEndian.PutUint16(ports[2:4], uint16(cp.TCP.DstPort))
		}
		out = append(out, ports[:]...)
	}
	if spec.IsRTP {
		var ssrc [4]byte
		binary.BigEndian.PutUint32(ssrc[:], cp.RTPSSRC)
		out = append(out, ssrc[:]...)
		out = append(out, cp.RTPPayloadType)
	}
	return out
}

// extractDynamic reads the changing fields out of a classified packet,
// assigning MSN from the RTP sequence number when the profile carries one
// (RTP/UDP-with-RTP) and from an internal incrementing counter otherwise
// (plain IP/UDP/ESP have no per-packet sequence field of their own, §3
// Glossary: "MSN ... drives LSB decoding of all other changing fields").
func extractDynamic(spec Spec, cp ClassifiedPacket, internalCounter uint16) dynamicValues {
	dv := dynamicValues{}
	if spec.IsRTP {
		dv.MSN = cp.RTPSeq
		dv.TS = cp.RTPTimestamp
		dv.Marker = cp.RTPMarker
	} else {
		dv.MSN = internalCounter
	}
	if cp.IPv4 != nil {
		dv.IPID = cp.IPv4.Id
		dv.HasIPID = true
		dv.TTL = cp.IPv4.TTL
	}
	return dv
}

// buildIR assembles a full IR packet: discriminator, profile id, static
// chain, dynamic chain, CRC-8 over everything preceding the CRC byte
// (§4.5: "CRC coverage extends over the full reconstructed header
// including all chains actually transmitted").
func buildIR(spec Spec, static, dynamic []byte) []byte {
	w := bitio.NewWriter(make([]byte, 3+len(static)+len(dynamic)))
	_ = w.PutByte(0xFD)
	_ = w.PutByte(byte(spec.ID >> 8))
	_ = w.PutByte(byte(spec.ID))
	for _, b := range static {
		_ = w.PutByte(b)
	}
	for _, b := range dynamic {
		_ = w.PutByte(b)
	}
	sum := crc.CRC8(w.Bytes())
	return append(w.Bytes(), sum)
}

// buildIRDyn assembles an IR-DYN packet: discriminator, profile id,
// dynamic chain only, CRC-8. Sent instead of a full IR once the static
// chain is already known to the decompressor context (§4.1).
func buildIRDyn(spec Spec, dynamic []byte) []byte {
	w := bitio.NewWriter(make([]byte, 3+len(dynamic)))
	_ = w.PutByte(0xFC)
	_ = w.PutByte(byte(spec.ID >> 8))
	_ = w.PutByte(byte(spec.ID))
	for _, b := range dynamic {
		_ = w.PutByte(b)
	}
	sum := crc.CRC8(w.Bytes())
	return append(w.Bytes(), sum)
}

// encodeDynamicChain serializes dv into the dynamic-chain byte layout used
// by both buildIR and buildIRDyn: MSN(2) [TS(4) marker(1)] [IPID(2) TTL(1)].
func encodeDynamicChain(spec Spec, dv dynamicValues) []byte {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], dv.MSN)
	buf := append([]byte(nil), out[:]...)
	if spec.IsRTP {
		var ts [4]byte
		binary.BigEndian.PutUint32(ts[:], dv.TS)
		buf = append(buf, ts[:]...)
		m := byte(0)
		if dv.Marker {
			m = 1
		}
		buf = append(buf, m)
	}
	if dv.HasIPID {
		var id [2]byte
		binary.BigEndian.PutUint16(id[:], dv.IPID)
		buf = append(buf, id[:]...)
		buf = append(buf, dv.TTL)
		buf = append(buf, byte(dv.IPIDBehavior))
	}
	return buf
}

// splitStaticChain separates the static chain from the remaining dynamic
// chain bytes in a parsed IR body. The static chain's length depends on
// the IP version byte it starts with (IPv4 addresses vs IPv6 addresses)
// and on the profile's Spec, mirroring staticChain's own layout exactly.
func splitStaticChain(spec Spec, body []byte) (static, rest []byte, err error) {
	if len(body) < 1 {
		return nil, nil, rohc.ErrMalformed
	}
	n := 1
	switch body[0] {
	case 4:
		n += 4 + 4 + 1 + 1
	case 6:
		n += 16 + 16 + 1 + 1
	default:
		return nil, nil, rohc.ErrMalformed
	}
	if spec.HasTransportPorts {
		n += 4
	}
	if spec.IsRTP {
		n += 4 + 1
	}
	if len(body) < n {
		return nil, nil, rohc.ErrMalformed
	}
	return body[:n], body[n:], nil
}

// staticFields is splitStaticChain's fully-decoded counterpart, recovering
// every field staticChain encoded — used by assemblePacket to rebuild an
// uncompressed header from a context's persisted static chain bytes.
type staticFields struct {
	ipVersion int
	srcIP     net.IP
	dstIP     net.IP
	proto     layers.IPProtocol
	tos       uint8
	srcPort   uint16
	dstPort   uint16
	ssrc      uint32
	payloadType uint8
}

func decodeStaticFields(spec Spec, static []byte) (staticFields, error) {
	var f staticFields
	if len(static) < 1 {
		return f, rohc.ErrMalformed
	}
	var addrLen int
	switch static[0] {
	case 4:
		f.ipVersion = 4
		addrLen = 4
	case 6:
		f.ipVersion = 6
		addrLen = 16
	default:
		return f, rohc.ErrMalformed
	}
	off := 1
	if len(static) < off+2*addrLen+2 {
		return f, rohc.ErrMalformed
	}
	f.srcIP = append(net.IP(nil), static[off:off+addrLen]...)
	off += addrLen
	f.dstIP = append(net.IP(nil), static[off:off+addrLen]...)
	off += addrLen
	f.proto = layers.IPProtocol(static[off])
	off++
	f.tos = static[off]
	off++
	if spec.HasTransportPorts {
		if len(static) < off+4 {
			return f, rohc.ErrMalformed
		}
		f.srcPort = binary.BigEndian.Uint16(static[off : off+2])
		f.dstPort = binary.BigEndian.Uint16(static[off+2 : off+4])
		off += 4
	}
	if spec.IsRTP {
		if len(static) < off+5 {
			return f, rohc.ErrMalformed
		}
		f.ssrc = binary.BigEndian.Uint32(static[off : off+4])
		f.payloadType = static[off+4]
		off += 5
	}
	return f, nil
}

// dynamicChainLen computes the fixed byte length encodeDynamicChain produces
// for spec/hasIPID, letting a parser locate the CRC byte (and, now that
// payload follows it, the payload boundary) without re-walking the chain.
func dynamicChainLen(spec Spec, hasIPID bool) int {
	n := 2 // MSN
	if spec.IsRTP {
		n += 4 + 1 // TS + marker
	}
	if hasIPID {
		n += 2 + 1 + 1 // IPID + TTL + behavior
	}
	return n
}

// decodeDynamicChain is encodeDynamicChain's inverse, used when parsing an
// IR or IR-DYN packet on the decompressor side.
func decodeDynamicChain(spec Spec, hasIPID bool, b []byte) (dynamicValues, error) {
	r := bitio.NewReader(b)
	dv := dynamicValues{}
	hi, err := r.Byte()
	if err != nil {
		return dv, rohc.ErrMalformed
	}
	lo, err := r.Byte()
	if err != nil {
		return dv, rohc.ErrMalformed
	}
	dv.MSN = uint16(hi)<<8 | uint16(lo)
	if spec.IsRTP {
		b0, e0 := r.Byte()
		b1, e1 := r.Byte()
		b2, e2 := r.Byte()
		b3, e3 := r.Byte()
		m, e4 := r.Byte()
		if e0 != nil || e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return dv, rohc.ErrMalformed
		}
		dv.TS = uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
		dv.Marker = m != 0
	}
	if hasIPID {
		b0, e0 := r.Byte()
		b1, e1 := r.Byte()
		ttl, e2 := r.Byte()
		behavior, e3 := r.Byte()
		if e0 != nil || e1 != nil || e2 != nil || e3 != nil {
			return dv, rohc.ErrMalformed
		}
		dv.IPID = uint16(b0)<<8 | uint16(b1)
		dv.HasIPID = true
		dv.TTL = ttl
		dv.IPIDBehavior = rohc.IPIDBehavior(behavior)
	}
	return dv, nil
}
