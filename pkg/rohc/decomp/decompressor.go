// Package decomp implements the decompressor engine (§4.2): per-CID
// context table, the NC/SC/FC state machine's repair-attempt policy, and
// feedback emission. Like comp, it is a thin driver over
// pkg/rohc/profile's chain coders.
package decomp

import (
	"fmt"
	"sync"

	"github.com/otus-rohc/rohc/internal/rohclog"
	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/feedback"
	"github.com/otus-rohc/rohc/pkg/rohc/profile"
	"github.com/otus-rohc/rohc/pkg/rohc/wlsb"
)

// Options configures a new Decompressor (§6).
type Options struct {
	CIDType     rohc.CIDType
	MaxContexts int
	Trace       rohc.TraceFunc
	Features    rohc.Features
	Dumper      *rohclog.PacketDumper
}

// Decompressor is one engine instance, serialized behind a mutex for the
// same reason as Compressor (§5).
type Decompressor struct {
	mu       sync.Mutex
	opts     Options
	registry *profile.Registry
	contexts *rohc.Table[profile.DecompContext]
}

func New(opts Options) *Decompressor {
	if opts.MaxContexts <= 0 {
		opts.MaxContexts = int(opts.CIDType.MaxCID()) + 1
	}
	return &Decompressor{
		opts:     opts,
		registry: profile.NewRegistry(),
		contexts: rohc.NewTable[profile.DecompContext](opts.CIDType, opts.MaxContexts),
	}
}

func (d *Decompressor) EnableProfiles(ids ...rohc.ProfileID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.EnableProfiles(ids...)
}

// Decompress reconstructs the original packet from a compressed wire
// packet arriving on cid. If the first attempt's CRC fails, it retries
// once against REF_MINUS_1 to absorb a single out-of-order or duplicated
// packet arriving ahead of the one that last updated the context's
// reference; SN-wrap and clock-correction repair are not attempted (see
// DESIGN.md). Only after every candidate reference fails does it feed
// the failure into the demotion gates.
func (d *Decompressor) Decompress(cid uint16, wire []byte) (packet []byte, status rohc.Status, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx := d.contexts.Get(cid)
	if ctx == nil {
		// An IR packet carries its own profile ID and can bootstrap a
		// fresh context; anything else with no context is undecodable.
		if len(wire) < 3 || (wire[0] != 0xFD && wire[0] != 0xFC) {
			return nil, rohc.StatusNoContext, rohc.ErrNoContext
		}
		profileID := rohc.ProfileID(uint16(wire[1])<<8 | uint16(wire[2]))
		h, ok := d.registry.Handler(profileID)
		if !ok || !d.registry.Enabled(profileID) {
			return nil, rohc.StatusNoContext, rohc.ErrProfileNotEnabled
		}
		ctx = h.NewDecompContext(cid)
		_, _ = d.contexts.Set(cid, ctx)
	}

	h, ok := d.registry.Handler(ctx.Profile)
	if !ok {
		return nil, rohc.StatusError, rohc.ErrProfileNotEnabled
	}

	if d.opts.Features&rohc.FeatureDumpPackets != 0 && d.opts.Dumper != nil {
		d.opts.Dumper.Dump(fmt.Sprintf("cid=%d received", cid), wire)
	}

	res, decodeErr := h.Decompress(ctx, wire)
	if decodeErr == nil {
		h.Commit(ctx, res)
		d.trace(rohc.TraceDebug, ctx.Profile, fmt.Sprintf("cid=%d packet=%s ok", cid, res.PacketType))
		return res.Packet, rohc.StatusOK, nil
	}
	if decodeErr != rohc.ErrBadCRC {
		return nil, statusFor(decodeErr), decodeErr
	}

	// Repair attempt: the context's own CRC failed against Ref0. Before
	// giving up, retry the same wire bits with the SN window's previous
	// reference (REF_MINUS_1) — this absorbs a single reordered or
	// duplicated packet arriving ahead of the one that updated Ref0 (§4.2/
	// §4.3). Decompress never mutates ctx on its own, so it's safe to swap
	// MSN to the candidate reference for the retry and restore it after.
	if refMSN, ok := ctx.SNWindow.Ref(wlsb.RefMinus1); ok {
		savedMSN := ctx.MSN
		ctx.MSN = uint16(refMSN)
		res2, err2 := h.Decompress(ctx, wire)
		ctx.MSN = savedMSN
		if err2 == nil {
			h.Commit(ctx, res2)
			d.trace(rohc.TraceDebug, ctx.Profile, fmt.Sprintf("cid=%d packet=%s repaired via ref-minus-1", cid, res2.PacketType))
			return res2.Packet, rohc.StatusOK, nil
		}
	}

	// Every candidate reference failed: feed the failure into the
	// FC -> SC -> NC demotion gates and give up on this packet.
	ctx.RecordCRCFailure()
	d.trace(rohc.TraceWarn, ctx.Profile, fmt.Sprintf("cid=%d bad CRC, state now %s", cid, ctx.CurrentState()))
	return nil, rohc.StatusBadCRC, rohc.ErrBadCRC
}

func statusFor(err error) rohc.Status {
	switch err {
	case rohc.ErrMalformed:
		return rohc.StatusMalformed
	case rohc.ErrUnknownPacket:
		return rohc.StatusMalformed
	case rohc.ErrBadCRC:
		return rohc.StatusBadCRC
	default:
		return rohc.StatusError
	}
}

// EmitFeedback builds the FEEDBACK-2 octet this engine wants its peer
// compressor to see for cid's current state (§6 emit_feedback).
func (d *Decompressor) EmitFeedback(cid uint16) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := d.contexts.Get(cid)
	if ctx == nil {
		return nil, rohc.ErrNoContext
	}
	ackType := feedback.Ack
	switch ctx.CurrentState() {
	case rohc.StateNC:
		ackType = feedback.StaticNack
	case rohc.StateSC:
		ackType = feedback.Nack
	}
	return feedback.Build(ackType, uint32(ctx.MSN)), nil
}

func (d *Decompressor) trace(level rohc.TraceLevel, id rohc.ProfileID, msg string) {
	if d.opts.Trace != nil {
		d.opts.Trace(level, "decompressor", id, msg)
	}
}
