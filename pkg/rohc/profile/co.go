package profile

import (
	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/crc"
	"github.com/otus-rohc/rohc/pkg/rohc/packettype"
	"github.com/otus-rohc/rohc/pkg/rohc/sdvl"
)

// coSubtype distinguishes the three UO-1/UOR-2 extension payloads this
// engine uses once the base packet's discriminator bits alone aren't
// enough context for the decompressor to know which changing field the
// extension carries (§4.1 packet-type decision table: UOR-2-RTP / -TS /
// -ID all share the "110" prefix and differ only in which field's
// irregularity justified leaving UO-0/UO-1 behind).
type coSubtype uint8

const (
	subRTP coSubtype = 0
	subTS  coSubtype = 1
	subID  coSubtype = 2
)

// fieldChange summarizes, relative to the context's current reference
// values, how many LSBs each changing field needs — the input to
// decidePacketType's precedence table. changed flags are tracked
// separately from the bit counts since wlsb.MinBits never reports 0 (even
// an unchanged value still costs at least 1 LSB to confirm), so "did this
// field change at all" cannot be read back out of the bit count alone.
type fieldChange struct {
	snBits   uint8
	tsBits   uint8
	ipidBits uint8
	tsChanged     bool
	ipidChanged   bool
	markerChanged bool
	staticChanged bool
	// ipidRandom marks an IPv4 header whose IP-ID classifies as RAND
	// (ipid.go's ClassifyIPID): no W-LSB budget can carry it, so only
	// UOR-2's SDVL extension (or IR/IR-DYN) may transmit it.
	ipidRandom bool
}

// decidePacketType implements the §4.1 packet-type decision precedence
// table: try the cheapest packet that can losslessly carry every field
// that actually changed, escalating until one fits. UO-0/UO-1 are only
// legal once the compressor is in SO (§4.1 state table: FO permits only
// IR, IR-DYN, and UOR-2*); a random IP-ID can never ride UO-0/UO-1's
// narrow budget, so it always forces at least a UOR-2 extension.
//
//  1. static chain changed                               -> IR
//  2. SO, SN fits 4 bits, no field changed                -> UO-0
//  3. SO, SN fits 4 bits, exactly one of TS/IP-ID/marker
//     changed and fits UO-1's 6-bit secondary             -> UO-1 (-TS/-ID/-RTP)
//  4. SN fits 5 bits and UOR-2's one extension field
//     carries every TS/IP-ID change                       -> UOR-2 (+SDVL ext. as needed)
//  5. doesn't fit anything above                          -> IR-DYN
func decidePacketType(spec Spec, state rohc.CompressorState, fc fieldChange) packettype.PacketType {
	if fc.staticChanged {
		return packettype.IR
	}
	if state == rohc.StateSO && fc.snBits <= 4 && !fc.markerChanged &&
		!fc.tsChanged && !fc.ipidChanged && !fc.ipidRandom {
		return packettype.UO0
	}
	if state == rohc.StateSO && fc.snBits <= 4 && !fc.ipidRandom {
		switch {
		case spec.IsRTP && fc.tsChanged && !fc.markerChanged && !fc.ipidChanged && fc.tsBits <= 6:
			return packettype.UO1
		case fc.ipidChanged && !fc.markerChanged && !fc.tsChanged && fc.ipidBits <= 6:
			return packettype.UO1
		case spec.IsRTP && fc.markerChanged && !fc.tsChanged && !fc.ipidChanged:
			return packettype.UO1
		}
	}
	// UOR-2's extension (see uor2Payload) carries one field at full value:
	// the IP-ID when it is random or needs more than 6 bits, otherwise the
	// TS when it needs more than 6 bits. Any other TS/IP-ID change would
	// not reach the decompressor, so such packets go out as IR-DYN.
	ipidCarried := fc.ipidRandom || fc.ipidBits > 6
	tsCarried := spec.IsRTP && fc.tsBits > 6 && !ipidCarried
	if fc.snBits <= 5 && (!fc.ipidChanged || ipidCarried) && (!fc.tsChanged || tsCarried) {
		return packettype.UOR2
	}
	return packettype.IRDyn
}

// buildUO0 packs the classic single-byte UO-0: 0 + sn[3:0] + crc3.
func buildUO0(snBits uint64, crcCtl crc.ControlFields) []byte {
	c := crc.CRC3Control(crcCtl)
	b := (snBits & 0x0F) << 3 & 0x78
	return []byte{byte(b) | (c & 0x07)}
}

func parseUO0(b byte) (sn uint64, crc3 uint8) {
	return uint64((b >> 3) & 0x0F), b & 0x07
}

// buildUO1 packs a 3-byte UO-1: byte0 = 10 + sn[3:0] + marker,
// byte1 = subtype(2) + secondary(6), byte2 = crc7 in the low 7 bits. crc7
// is computed by the caller over the reconstructed uncompressed header
// (§4.5: CRC-7 covers uncompressed headers, not the control-field blob
// CRC-3 uses).
func buildUO1(sub coSubtype, snBits uint64, marker bool, secondary uint64, crc7 uint8) []byte {
	m := uint64(0)
	if marker {
		m = 1
	}
	byte0 := byte(0x80) | byte((snBits&0x0F)<<1) | byte(m)
	byte1 := byte(sub)<<6 | byte(secondary&0x3F)
	byte2 := crc7 & 0x7F
	return []byte{byte0, byte1, byte2}
}

func parseUO1(b []byte) (sub coSubtype, sn uint64, marker bool, secondary uint64, crc7 uint8, ok bool) {
	if len(b) < 3 {
		return 0, 0, false, 0, 0, false
	}
	sn = uint64((b[0] >> 1) & 0x0F)
	marker = b[0]&0x01 != 0
	sub = coSubtype(b[1] >> 6)
	secondary = uint64(b[1] & 0x3F)
	crc7 = b[2] & 0x7F
	return sub, sn, marker, secondary, crc7, true
}

// buildUOR2 packs a UOR-2 packet: byte0 = 110 + sn[4:0], byte1 = X(1) +
// crc7(7); if an extension is needed (X=1), byte2 = subtype(2)+marker(1)+
// reserved(5) followed by an SDVL-encoded extra-field value (TS or IP-ID,
// carried at full resolution rather than as a delta) — the one place in
// this wire format that exercises sdvl directly on a per-packet field
// rather than only inside the static/dynamic chains. crc7, like buildUO1's,
// is computed by the caller over the reconstructed uncompressed header.
func buildUOR2(sub coSubtype, snBits uint64, marker bool, extra uint32, hasExtra bool, crc7 uint8) ([]byte, error) {
	byte0 := byte(0xC0) | byte(snBits&0x1F)
	crc7 &= 0x7F
	if !hasExtra {
		return []byte{byte0, crc7}, nil
	}
	m := byte(0)
	if marker {
		m = 1
	}
	ext, err := sdvl.Encode(extra)
	if err != nil {
		return nil, err
	}
	byte1 := crc7 | 0x80
	byte2 := byte(sub)<<6 | m<<5
	out := append([]byte{byte0, byte1, byte2}, ext...)
	return out, nil
}

// parseUOR2 splits a UOR-2 wire packet into its fields and the trailing
// payload bytes. hasExt reports whether byte2+ was present at all — when it
// wasn't, marker must be read from the decompressor's last-known value
// rather than taken as false, since the bit simply wasn't transmitted.
func parseUOR2(b []byte) (sn uint64, crc7 uint8, sub coSubtype, hasExt, marker bool, extra uint32, payload []byte, ok bool) {
	if len(b) < 2 {
		return 0, 0, 0, false, false, 0, nil, false
	}
	sn = uint64(b[0] & 0x1F)
	hasExt = b[1]&0x80 != 0
	crc7 = b[1] & 0x7F
	if !hasExt {
		return sn, crc7, 0, false, false, 0, b[2:], true
	}
	if len(b) < 3 {
		return 0, 0, 0, false, false, 0, nil, false
	}
	sub = coSubtype(b[2] >> 6)
	marker = b[2]&0x20 != 0
	val, n, err := sdvl.Decode(b[3:])
	if err != nil {
		return 0, 0, 0, false, false, 0, nil, false
	}
	extra = val
	return sn, crc7, sub, true, marker, extra, b[3+n:], true
}
