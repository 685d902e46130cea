package profile

import (
	"bytes"

	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/crc"
	"github.com/otus-rohc/rohc/pkg/rohc/feedback"
	"github.com/otus-rohc/rohc/pkg/rohc/packettype"
	"github.com/otus-rohc/rohc/pkg/rohc/wlsb"
)

// MAX_IR_COUNT and MAX_FO_COUNT bound how many confirmations the
// compressor waits for before promoting a context IR->FO and FO->SO
// respectively (§4.1: "the compressor only promotes after enough
// consecutive packets have gone by without a static-field change to
// believe the decompressor has caught up").
const (
	maxIRCount = 3
	maxFOCount = 3
)

// Handler is the per-profile strategy the compressor and decompressor
// engines dispatch to. Every concrete profile (ip, udp, rtp, esp,
// udplite and the ROHCv2 variants) is a genericHandler over a different
// Spec rather than a separate type, so dispatch is a switch over
// ProfileID picking one of a small number of Spec values — a variant
// enum, not a dynamic vtable per profile (§9 Design Notes: "Profile
// polymorphism").
type Handler interface {
	Spec() Spec
	Match(cp ClassifiedPacket) bool
	NewCompContext(cid uint16) *CompContext
	NewDecompContext(cid uint16) *DecompContext

	// Compress builds the next wire packet for cp against ctx, mutating
	// ctx's state machine and windows on success. It never fails for lack
	// of context room — eviction is the Table's job — only for malformed
	// input.
	Compress(ctx *CompContext, cp ClassifiedPacket) ([]byte, packettype.PacketType, error)

	// Decompress parses wire against ctx without mutating it; callers
	// must call Commit once the CRC (and any repair attempt) has
	// succeeded, so a failed decode never corrupts context state (§4.2:
	// "context updates are transactional on CRC success").
	Decompress(ctx *DecompContext, wire []byte) (decodeResult, error)
	Commit(ctx *DecompContext, res decodeResult)

	HandleFeedback(ctx *CompContext, fb feedback.Feedback)
}

// decodeResult carries everything a successful Decompress extracted, for
// the caller to either Commit or discard.
type decodeResult struct {
	PacketType  packettype.PacketType
	Dynamic     dynamicValues
	StaticChain []byte // non-nil only for IR packets (and, by convention, the Uncompressed profile's raw passthrough)
	ReconstructedIPID uint16
	HasIPID           bool

	// Packet is the fully rebuilt uncompressed packet — header fields
	// reassembled from the static chain plus Dynamic, with the carried
	// payload appended — ready to hand back to the caller of Decompress
	// (§4.2: "emits the uncompressed packet").
	Packet []byte
}

type genericHandler struct {
	spec Spec
}

func (h genericHandler) Spec() Spec { return h.spec }

func (h genericHandler) Match(cp ClassifiedPacket) bool {
	if h.spec.IsUncompressed {
		return true
	}
	if h.spec.IsRTP {
		return cp.IsRTP
	}
	if h.spec.ID == rohc.ProfileIP || h.spec.ID == rohc.ProfileROHCv2IP {
		// Plain-IP profiles: catch-all fallback for any IP packet whose
		// transport a more specific profile above this one in precedence
		// order didn't already claim (§7 fallback order).
		return cp.IPv4 != nil || cp.IPv6 != nil
	}
	if h.spec.HasTransportPorts && h.spec.TransportProto == layers.IPProtocolUDP {
		return cp.UDP != nil && !cp.IsRTP
	}
	return cp.TransportProto == h.spec.TransportProto
}

func (h genericHandler) NewCompContext(cid uint16) *CompContext     { return newCompContext(cid, h.spec) }
func (h genericHandler) NewDecompContext(cid uint16) *DecompContext { return newDecompContext(cid, h.spec) }

func (h genericHandler) HandleFeedback(ctx *CompContext, fb feedback.Feedback) {
	switch fb.AckType {
	case feedback.Nack:
		// A single NACK demotes SO -> FO so the compressor starts
		// re-including the fields the decompressor claims to have lost
		// sync on; it does not force all the way back to IR.
		if ctx.State == rohc.StateSO {
			ctx.State = rohc.StateFO
			ctx.FOCount = 0
		}
	case feedback.StaticNack:
		ctx.State = rohc.StateIR
		ctx.IRCount = 0
		ctx.StaticChain = nil
	case feedback.Ack:
		// no-op: forward confirmation, already reflected by IRCount/FOCount.
	}
}

// uncompressedDiscriminator prefixes the 2-byte header an Uncompressed-profile packet
// carries ahead of the raw, untouched original packet bytes: a
// discriminator byte (reusing the IR code, since Uncompressed never has
// any other packet type) plus a 1-byte running counter used only so the
// decompressor can detect duplicate delivery — there is no context to
// lose sync with, so no CRC chain is needed (scenario: unknown-profile
// fallback still needs to get the packet through losslessly).
const uncompressedDiscriminator = 0xFD

func (h genericHandler) Compress(ctx *CompContext, cp ClassifiedPacket) ([]byte, packettype.PacketType, error) {
	if h.spec.IsUncompressed {
		ctx.MSN++
		out := make([]byte, 0, 2+len(cp.Raw))
		out = append(out, uncompressedDiscriminator, byte(ctx.MSN))
		out = append(out, cp.Raw...)
		return out, packettype.IR, nil
	}
	static := staticChain(h.spec, cp)
	staticChanged := ctx.StaticChain == nil || !bytes.Equal(static, ctx.StaticChain)

	nextMSN := ctx.MSN + 1
	dv := extractDynamic(h.spec, cp, nextMSN)

	if dv.HasIPID {
		ctx.appendIPIDHistory(dv.IPID, dv.MSN)
	}

	fc := fieldChange{staticChanged: staticChanged}
	if !staticChanged {
		fc.snBits = wlsb.MinBits(uint64(dv.MSN), uint64(ctx.MSN), wlsb.POffset(wlsb.FieldSN, wlsb.ModeU, 0), 16, 16)
		if h.spec.IsRTP {
			fc.markerChanged = dv.Marker != ctx.lastMarker
			// TS_STRIDE is still tracked for observability, but SEND_SCALED's
			// zero-bit omission is not wired into packet-type selection (see
			// DESIGN.md): the decompressor would have to mirror the exact
			// same stride/offset state to reconstruct an omitted TS, and
			// this engine does not synchronize that subsystem across sides.
			ctx.TS.Observe(dv.TS)
			fc.tsChanged = dv.TS != ctx.lastTS
			if fc.tsChanged {
				fc.tsBits = wlsb.MinBits(uint64(dv.TS), uint64(ctx.lastTS), 0, 16, 32)
			}
		}
		if dv.HasIPID && ctx.haveIPID {
			fc.ipidChanged = dv.IPID != ctx.LastIPID
			if fc.ipidChanged {
				fc.ipidBits = wlsb.MinBits(uint64(dv.IPID), uint64(ctx.LastIPID), 0, 16, 16)
			}
			fc.ipidRandom = ctx.ipidBehavior() == rohc.IPIDRandom
		}
	}

	pt := decidePacketType(h.spec, ctx.State, fc)

	// wirePayload is the opaque span the chain coders below do not
	// reconstruct field-by-field and so must carry through unchanged
	// (§1, §4.1: ROHC compresses headers, not payloads).
	wirePayload := cp.Payload
	if !h.spec.HasTransportPorts {
		wirePayload = cp.L3Payload
	}

	var out []byte
	var err error
	if dv.HasIPID && (pt == packettype.IR || pt == packettype.IRDyn) {
		// Freeze the classification now, since it's being transmitted:
		// every CO packet until the next refresh will check its CRC
		// against this same committed value (see appendIPIDHistory).
		dv.IPIDBehavior = ctx.classifyCommitted()
		ctx.IPIDBehaviors = []rohc.IPIDBehavior{dv.IPIDBehavior}
	}

	switch pt {
	case packettype.IR:
		dynBytes := encodeDynamicChain(h.spec, dv)
		out = buildIR(h.spec, static, dynBytes)
		out = append(out, wirePayload...)
		ctx.StaticChain = append([]byte(nil), static...)
	case packettype.IRDyn:
		dynBytes := encodeDynamicChain(h.spec, dv)
		out = buildIRDyn(h.spec, dynBytes)
		out = append(out, wirePayload...)
	case packettype.UO0:
		ctl := h.controlFields(ctx, dv)
		out = buildUO0(uint64(dv.MSN), ctl)
		out = append(out, wirePayload...)
	case packettype.UO1:
		sub, secondary := h.uo1Payload(ctx, dv, fc)
		headerCRC := crc.CRC7(cp.Raw[:len(cp.Raw)-len(wirePayload)])
		out = buildUO1(sub, uint64(dv.MSN), dv.Marker, secondary, headerCRC)
		out = append(out, wirePayload...)
	case packettype.UOR2:
		sub, extra, hasExtra := h.uor2Payload(ctx, dv, fc)
		headerCRC := crc.CRC7(cp.Raw[:len(cp.Raw)-len(wirePayload)])
		out, err = buildUOR2(sub, uint64(dv.MSN), dv.Marker, extra, hasExtra, headerCRC)
		if err == nil {
			out = append(out, wirePayload...)
		}
	}
	if err != nil {
		return nil, pt, err
	}

	h.advanceState(ctx, pt, staticChanged)
	ctx.MSN = dv.MSN
	ctx.lastTS = dv.TS
	ctx.lastMarker = dv.Marker
	if dv.HasIPID {
		ctx.LastIPID = dv.IPID
		ctx.haveIPID = true
	}
	ctx.SNWindow.Accept(uint64(dv.MSN))
	if dv.HasIPID {
		ctx.IPIDWindow.Accept(uint64(dv.IPID))
	}
	return out, pt, nil
}

// advanceState drives the IR -> FO -> SO promotion independently of which
// packet type decidePacketType actually chose: IRCount/FOCount count
// packets processed while the context sits in that state, not packets of
// that literal type, since once the static chain stops changing
// decidePacketType is free to pick a CO packet well before the state
// machine has promoted past IR (§4.1: the confirmation count and the
// packet-type choice are two separate decisions).
func (h genericHandler) advanceState(ctx *CompContext, pt packettype.PacketType, staticChanged bool) {
	if h.spec.Incomplete {
		// Stubs never leave FO: there is no SO chain coder for them.
		if ctx.State == rohc.StateIR {
			ctx.IRCount++
			if ctx.IRCount >= maxIRCount {
				ctx.State = rohc.StateFO
			}
		}
		return
	}
	if staticChanged {
		ctx.State = rohc.StateIR
		ctx.IRCount = 0
		ctx.FOCount = 0
		return
	}
	switch ctx.State {
	case rohc.StateIR:
		ctx.IRCount++
		if ctx.IRCount >= maxIRCount {
			ctx.State = rohc.StateFO
			ctx.FOCount = 0
		}
	case rohc.StateFO:
		ctx.FOCount++
		if ctx.FOCount >= maxFOCount {
			ctx.State = rohc.StateSO
		}
	}
}

func (h genericHandler) controlFields(ctx *CompContext, dv dynamicValues) crc.ControlFields {
	cf := crc.ControlFields{ReorderRatio: ctx.ReorderRatio, MSN: dv.MSN}
	if dv.HasIPID {
		cf.IPv4IDBehaviors = []uint8{uint8(ctx.ipidBehavior())}
	}
	return cf
}

// uo1Payload picks UO-1's subtype/secondary once decidePacketType has
// already established that exactly one of TS/IP-ID/marker changed and fits
// the 6-bit secondary field — it only needs to say which one.
func (h genericHandler) uo1Payload(ctx *CompContext, dv dynamicValues, fc fieldChange) (coSubtype, uint64) {
	if h.spec.IsRTP && fc.tsChanged {
		return subTS, uint64(dv.TS) & 0x3F
	}
	if dv.HasIPID && fc.ipidChanged {
		return subID, uint64(dv.IPID) & 0x3F
	}
	return subRTP, 0
}

// uor2Payload picks UOR-2's subtype and whether an SDVL extension is
// needed at all, in the same precedence order as the packet-type table: a
// random IP-ID (which can never fit UO-0/UO-1) comes first, then a TS
// delta too wide for UO-1, then a marker-only change that still needs a
// byte to carry since UOR-2's base 2 bytes have no room for it.
func (h genericHandler) uor2Payload(ctx *CompContext, dv dynamicValues, fc fieldChange) (coSubtype, uint32, bool) {
	switch {
	case dv.HasIPID && (fc.ipidRandom || fc.ipidBits > 6):
		return subID, uint32(dv.IPID), true
	case h.spec.IsRTP && fc.tsBits > 6:
		return subTS, dv.TS, true
	case fc.markerChanged:
		return subRTP, 0, true
	default:
		return subRTP, 0, false
	}
}

func (h genericHandler) Decompress(ctx *DecompContext, wire []byte) (decodeResult, error) {
	if len(wire) == 0 {
		return decodeResult{}, rohc.ErrMalformed
	}
	if h.spec.IsUncompressed {
		if len(wire) < 2 {
			return decodeResult{}, rohc.ErrMalformed
		}
		payload := wire[2:]
		return decodeResult{
			PacketType:  packettype.IR,
			Dynamic:     dynamicValues{MSN: uint16(wire[1])},
			StaticChain: payload, // reused as a carrier for the raw passthrough payload
			Packet:      payload,
		}, nil
	}
	pt, err := packettype.Detect(wire[0])
	if err != nil {
		return decodeResult{}, err
	}
	switch pt {
	case packettype.IR:
		return h.parseIR(wire)
	case packettype.IRDyn:
		return h.parseIRDyn(ctx, wire)
	case packettype.UO0:
		return h.parseUO0(ctx, wire)
	case packettype.UO1:
		return h.parseUO1(ctx, wire)
	case packettype.UOR2:
		return h.parseUOR2(ctx, wire)
	default:
		return decodeResult{}, rohc.ErrUnknownPacket
	}
}

func (h genericHandler) parseIR(wire []byte) (decodeResult, error) {
	if len(wire) < 4 {
		return decodeResult{}, rohc.ErrMalformed
	}
	body := wire[3:]
	static, rest, err := splitStaticChain(h.spec, body)
	if err != nil {
		return decodeResult{}, err
	}
	hasIPID := len(static) > 0 && static[0] == 4
	dynLen := dynamicChainLen(h.spec, hasIPID)
	if len(rest) < dynLen+1 {
		return decodeResult{}, rohc.ErrMalformed
	}
	headerLen := 3 + len(static) + dynLen
	if crc.CRC8(wire[:headerLen]) != wire[headerLen] {
		return decodeResult{}, rohc.ErrBadCRC
	}
	dv, err := decodeDynamicChain(h.spec, hasIPID, rest[:dynLen])
	if err != nil {
		return decodeResult{}, err
	}
	payload := rest[dynLen+1:]
	packet, rerr := assemblePacket(h.spec, static, dv, payload)
	if rerr != nil {
		return decodeResult{}, rerr
	}
	return decodeResult{PacketType: packettype.IR, Dynamic: dv, StaticChain: static, ReconstructedIPID: dv.IPID, HasIPID: dv.HasIPID, Packet: packet}, nil
}

func (h genericHandler) parseIRDyn(ctx *DecompContext, wire []byte) (decodeResult, error) {
	if len(wire) < 4 {
		return decodeResult{}, rohc.ErrMalformed
	}
	if len(ctx.StaticChain) == 0 {
		return decodeResult{}, rohc.ErrNoContext
	}
	hasIPID := ctx.StaticChain[0] == 4
	dynLen := dynamicChainLen(h.spec, hasIPID)
	body := wire[3:]
	if len(body) < dynLen+1 {
		return decodeResult{}, rohc.ErrMalformed
	}
	headerLen := 3 + dynLen
	if crc.CRC8(wire[:headerLen]) != wire[headerLen] {
		return decodeResult{}, rohc.ErrBadCRC
	}
	dv, err := decodeDynamicChain(h.spec, hasIPID, body[:dynLen])
	if err != nil {
		return decodeResult{}, err
	}
	payload := body[dynLen+1:]
	packet, rerr := assemblePacket(h.spec, ctx.StaticChain, dv, payload)
	if rerr != nil {
		return decodeResult{}, rerr
	}
	return decodeResult{PacketType: packettype.IRDyn, Dynamic: dv, ReconstructedIPID: dv.IPID, HasIPID: dv.HasIPID, Packet: packet}, nil
}

func (h genericHandler) parseUO0(ctx *DecompContext, wire []byte) (decodeResult, error) {
	if len(wire) < 1 {
		return decodeResult{}, rohc.ErrMalformed
	}
	snBits, crc3 := parseUO0(wire[0])
	sn, err := wlsb.Decode(snBits, 4, uint64(ctx.MSN), 0, 16)
	if err != nil {
		return decodeResult{}, err
	}
	cf := h.decompControlFields(ctx, uint16(sn))
	if crc.CRC3Control(cf)&0x07 != crc3 {
		return decodeResult{}, rohc.ErrBadCRC
	}
	dv := dynamicValues{
		MSN: uint16(sn), TS: ctx.LastTS, Marker: ctx.LastMarker,
		IPID: ctx.LastIPID, HasIPID: ctx.haveIPID, TTL: ctx.LastTTL,
	}
	packet, rerr := assemblePacket(h.spec, ctx.StaticChain, dv, wire[1:])
	if rerr != nil {
		return decodeResult{}, rerr
	}
	return decodeResult{PacketType: packettype.UO0, Dynamic: dv, ReconstructedIPID: dv.IPID, HasIPID: dv.HasIPID, Packet: packet}, nil
}

func (h genericHandler) parseUO1(ctx *DecompContext, wire []byte) (decodeResult, error) {
	if len(wire) < 3 {
		return decodeResult{}, rohc.ErrMalformed
	}
	sub, snBits, marker, secondary, crc7, ok := parseUO1(wire)
	if !ok {
		return decodeResult{}, rohc.ErrMalformed
	}
	sn, err := wlsb.Decode(snBits, 4, uint64(ctx.MSN), 0, 16)
	if err != nil {
		return decodeResult{}, err
	}
	dv := dynamicValues{
		MSN: uint16(sn), Marker: marker, TS: ctx.LastTS,
		IPID: ctx.LastIPID, HasIPID: ctx.haveIPID, TTL: ctx.LastTTL,
	}
	switch sub {
	case subTS:
		full, derr := wlsb.Decode(secondary, 6, uint64(ctx.LastTS), 0, 32)
		if derr != nil {
			return decodeResult{}, derr
		}
		dv.TS = uint32(full)
	case subID:
		full, derr := wlsb.Decode(secondary, 6, uint64(ctx.LastIPID), 0, 16)
		if derr != nil {
			return decodeResult{}, derr
		}
		dv.IPID = uint16(full)
		dv.HasIPID = true
	}
	payload := wire[3:]
	packet, rerr := assemblePacket(h.spec, ctx.StaticChain, dv, payload)
	if rerr != nil {
		return decodeResult{}, rerr
	}
	header := packet[:len(packet)-len(payload)]
	if crc.CRC7(header)&0x7F != crc7 {
		return decodeResult{}, rohc.ErrBadCRC
	}
	return decodeResult{PacketType: packettype.UO1, Dynamic: dv, ReconstructedIPID: dv.IPID, HasIPID: dv.HasIPID, Packet: packet}, nil
}

func (h genericHandler) parseUOR2(ctx *DecompContext, wire []byte) (decodeResult, error) {
	sn, crc7, sub, hasExt, marker, extra, payload, ok := parseUOR2(wire)
	if !ok {
		return decodeResult{}, rohc.ErrMalformed
	}
	snVal, err := wlsb.Decode(sn, 5, uint64(ctx.MSN), 0, 16)
	if err != nil {
		return decodeResult{}, err
	}
	dv := dynamicValues{
		MSN: uint16(snVal), TS: ctx.LastTS, IPID: ctx.LastIPID,
		HasIPID: ctx.haveIPID, TTL: ctx.LastTTL, Marker: ctx.LastMarker,
	}
	if hasExt {
		dv.Marker = marker
		switch sub {
		case subTS:
			dv.TS = extra
		case subID:
			dv.IPID = uint16(extra)
			dv.HasIPID = true
		}
	}
	packet, rerr := assemblePacket(h.spec, ctx.StaticChain, dv, payload)
	if rerr != nil {
		return decodeResult{}, rerr
	}
	header := packet[:len(packet)-len(payload)]
	if crc.CRC7(header)&0x7F != crc7 {
		return decodeResult{}, rohc.ErrBadCRC
	}
	return decodeResult{PacketType: packettype.UOR2, Dynamic: dv, ReconstructedIPID: dv.IPID, HasIPID: dv.HasIPID, Packet: packet}, nil
}

func (h genericHandler) decompControlFields(ctx *DecompContext, sn uint16) crc.ControlFields {
	cf := crc.ControlFields{ReorderRatio: ctx.ReorderRatio, MSN: sn}
	if len(ctx.IPIDBehaviors) > 0 {
		cf.IPv4IDBehaviors = []uint8{uint8(ctx.IPIDBehaviors[0])}
	}
	return cf
}

func (h genericHandler) Commit(ctx *DecompContext, res decodeResult) {
	ctx.MSN = res.Dynamic.MSN
	ctx.LastTS = res.Dynamic.TS
	ctx.LastMarker = res.Dynamic.Marker
	ctx.LastTTL = res.Dynamic.TTL
	if res.StaticChain != nil {
		ctx.StaticChain = res.StaticChain
	}
	if res.HasIPID {
		ctx.LastIPID = res.ReconstructedIPID
		ctx.haveIPID = true
		ctx.IPIDWindow.Accept(uint64(res.ReconstructedIPID))
	}
	if res.PacketType == packettype.IR || res.PacketType == packettype.IRDyn {
		if res.HasIPID {
			ctx.IPIDBehaviors = []rohc.IPIDBehavior{res.Dynamic.IPIDBehavior}
		} else {
			ctx.IPIDBehaviors = nil
		}
	}
	ctx.SNWindow.Accept(uint64(res.Dynamic.MSN))
	switch res.PacketType {
	case packettype.IR:
		ctx.State = rohc.StateSC
		ctx.scStreak = 0
		ctx.k1n1.Reset()
		ctx.k2n2.Reset()
	case packettype.IRDyn:
		if ctx.State == rohc.StateNC {
			ctx.State = rohc.StateSC
			ctx.scStreak = 0
		}
	default:
		if ctx.State == rohc.StateSC {
			ctx.scStreak++
			if ctx.scStreak >= 3 {
				ctx.State = rohc.StateFC
			}
		}
		ctx.k1n1.Record(false, 16)
		ctx.k2n2.Record(false, 1)
	}
}
