package profile

import (
	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/wlsb"
)

// Default W-LSB window widths: how many reference values each SN/IP-ID
// window keeps. SetWindowWidth lets the engine owner override
// these before any context is created (§6 "set_wlsb_width"); existing
// contexts keep whatever width they were built with.
var (
	snWindowWidth   uint8 = 4
	ipidWindowWidth uint8 = 4
)

// SetWindowWidth overrides the default SN/IP-ID W-LSB window width used by
// every context created afterward.
func SetWindowWidth(w uint8) {
	snWindowWidth = w
	ipidWindowWidth = w
}

// CompContext is the per-CID compressor-side state. One is allocated per
// context by the Handler and stored in the Table[CompContext] the
// compressor engine owns (§3 Data Model: "Context").
type CompContext struct {
	rohc.Context

	Spec Spec

	StaticChain []byte // last transmitted static chain, for change detection

	State rohc.CompressorState

	SNWindow   *wlsb.Window
	IPIDWindow *wlsb.Window

	IRCount int // packets compressed while in IR state, of any packet type
	FOCount int // packets compressed while in FO state since entering FO

	LastIPID   uint16
	haveIPID   bool
	lastTS     uint32
	lastMarker bool
	ipidHist   []uint16
	msnHist    []uint16
}

func newCompContext(cid uint16, spec Spec) *CompContext {
	c := &CompContext{
		Spec:  spec,
		State: rohc.StateIR,
	}
	c.CID = cid
	c.Profile = spec.ID
	c.SNWindow = wlsb.NewWindow(wlsb.FieldSN, 16, snWindowWidth)
	if spec.IsRTP {
		c.TS = rohc.TSScaling{}
	}
	if !spec.IsUncompressed {
		c.IPIDWindow = wlsb.NewWindow(wlsb.FieldIPID, 16, ipidWindowWidth)
	}
	return c
}

// appendIPIDHistory records one more (IP-ID, MSN) sample for ClassifyIPID,
// keeping only the last ipidWindowWidth*2 samples. It does not itself
// change ctx.IPIDBehaviors — the committed classification the CRC control
// fields use — since that must only change when a fresh classification is
// actually transmitted to the decompressor (see classifyCommitted and
// Compress's IR/IR-DYN branch); reclassifying on every packet would let
// the two sides' control fields drift apart between refreshes.
func (c *CompContext) appendIPIDHistory(id, msn uint16) {
	c.ipidHist = append(c.ipidHist, id)
	c.msnHist = append(c.msnHist, msn)
	if max := int(ipidWindowWidth) * 2; len(c.ipidHist) > max {
		c.ipidHist = c.ipidHist[len(c.ipidHist)-max:]
		c.msnHist = c.msnHist[len(c.msnHist)-max:]
	}
}

// classifyCommitted reclassifies from the accumulated history; callers
// must only store the result into ctx.IPIDBehaviors when that
// classification is also being transmitted (IR/IR-DYN), so both sides
// agree on the value the next CO packet's CRC will be checked against.
func (c *CompContext) classifyCommitted() rohc.IPIDBehavior {
	return ClassifyIPID(c.ipidHist, c.msnHist)
}

func (c *CompContext) ipidBehavior() rohc.IPIDBehavior {
	if len(c.IPIDBehaviors) == 0 {
		return rohc.IPIDZero
	}
	return c.IPIDBehaviors[0]
}

// DecompContext mirrors CompContext on the decompressor side, plus the
// sliding failure counters that drive NC/SC/FC demotion (§4.2).
type DecompContext struct {
	rohc.Context

	Spec Spec

	StaticChain []byte

	SNWindow   *wlsb.Window
	IPIDWindow *wlsb.Window

	State     rohc.DecompressorState
	scStreak  int                   // consecutive successful CO decodes since entering SC
	k1n1      *rohc.FailureCounters // SC -> NC demotion gate: k1-of-n1 CRC failures
	k2n2      *rohc.FailureCounters // FC -> SC demotion gate: k2-of-n2 CRC failures

	LastIPID uint16
	haveIPID bool

	// LastTTL/LastMarker/LastTS are the quasi-static RTP/IP fields that
	// only IR/IR-DYN transmit explicitly; CO packets that don't carry a
	// given field assume it is unchanged from these (§4.1/§4.3).
	LastTTL    uint8
	LastMarker bool
	LastTS     uint32
}

// CurrentState reports the decompressor state machine's current value, for
// the decompressor engine's repair-attempt policy.
func (d *DecompContext) CurrentState() rohc.DecompressorState { return d.State }

// RecordCRCFailure feeds a failed CRC check into the state machine's
// demotion gates: FC demotes to SC on k2-of-n2 recent failures
// ((k2,n2)=(2,8)), and SC demotes all the way to NC on k1-of-n1
// ((k1,n1)=(16,16)) — otherwise a context whose IR-DYN refresh never
// arrives would sit in SC forever. It is a no-op in NC, since there is
// nothing further below NC to demote to.
func (d *DecompContext) RecordCRCFailure() {
	switch d.State {
	case rohc.StateFC:
		if d.k2n2.Record(true, 2) {
			d.State = rohc.StateSC
			d.scStreak = 0
			d.k2n2.Reset()
		}
	case rohc.StateSC:
		if d.k1n1.Record(true, 16) {
			d.Invalidate()
		}
	}
}

// Invalidate drops the context back to NC, e.g. after the repair-attempt
// policy exhausts every candidate reference without a CRC match.
func (d *DecompContext) Invalidate() {
	d.State = rohc.StateNC
	d.scStreak = 0
	d.StaticChain = nil
	d.k1n1.Reset()
	d.k2n2.Reset()
}

func newDecompContext(cid uint16, spec Spec) *DecompContext {
	d := &DecompContext{
		Spec:  spec,
		State: rohc.StateNC,
		k1n1:  rohc.NewFailureCounters(16),
		k2n2:  rohc.NewFailureCounters(8),
	}
	d.CID = cid
	d.Profile = spec.ID
	d.SNWindow = wlsb.NewWindow(wlsb.FieldSN, 16, snWindowWidth)
	if !spec.IsUncompressed {
		d.IPIDWindow = wlsb.NewWindow(wlsb.FieldIPID, 16, ipidWindowWidth)
	}
	return d
}
