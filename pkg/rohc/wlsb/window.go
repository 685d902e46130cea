package wlsb

// reference is one (value, seqno) pair kept in a Window's ring (§9 Design
// Notes: "Avoid cyclic pointer graphs by storing (value, seqno) pairs
// indexed by slot").
type reference struct {
	value uint64
	seqno uint64
	valid bool
}

// RefKind selects which tracked reference Decode should use; selection of
// reference is part of the decompressor's repair policy (§4.3).
type RefKind uint8

const (
	Ref0      RefKind = iota // last accepted
	RefMinus1                // previous
)

// Window is a per-field mutable structure holding up to k recent reference
// values and the currently agreed interpretation offset (§3 Data Model). It
// is a fixed-size ring indexed modulo the configured width; a pair of
// generation counters (Ref0, RefMinus1) names the two active references
// without chasing pointers (§9 Design Notes).
type Window struct {
	kind     FieldKind
	bitWidth uint8
	width    uint8 // wlsb_window_width, power of two in [1,64]
	ring     []reference
	slot     int    // next ring slot to write
	nextSeq  uint64
	bitWidthField uint8
}

// NewWindow constructs a window for a field of the given kind and width,
// sized to hold `windowWidth` references.
func NewWindow(kind FieldKind, bitWidth, windowWidth uint8) *Window {
	if windowWidth == 0 {
		windowWidth = 1
	}
	return &Window{
		kind:     kind,
		bitWidth: bitWidth,
		width:    windowWidth,
		ring:     make([]reference, windowWidth),
	}
}

// Kind reports the field kind this window was constructed for.
func (w *Window) Kind() FieldKind { return w.kind }

// BitWidth reports the field's declared bit width.
func (w *Window) BitWidth() uint8 { return w.bitWidth }

// Ref returns the value tracked by kind (Ref0 or RefMinus1). ok is false
// before any value has ever been accepted.
func (w *Window) Ref(kind RefKind) (value uint64, ok bool) {
	switch kind {
	case Ref0:
		return w.at(w.lastIndex(0))
	case RefMinus1:
		return w.at(w.lastIndex(1))
	}
	return 0, false
}

func (w *Window) lastIndex(back int) int {
	idx := w.slot - 1 - back
	for idx < 0 {
		idx += len(w.ring)
	}
	return idx
}

func (w *Window) at(idx int) (uint64, bool) {
	r := w.ring[idx]
	return r.value, r.valid
}

// Accept records v as the newest accepted reference, discarding the oldest
// once the ring is full (§3 Data Model invariant: "after successful
// transmission acknowledgement ... older references are discarded").
func (w *Window) Accept(v uint64) {
	w.ring[w.slot] = reference{value: v, seqno: w.nextSeq, valid: true}
	w.nextSeq++
	w.slot = (w.slot + 1) % len(w.ring)
}

// EncodeAgainstRef0 encodes v against the Ref0 reference using this
// window's field kind to pick p, returning the chosen k and transmitted
// bits. mode selects the SN R-mode offset rule.
func (w *Window) EncodeAgainstRef0(v uint64, mode Mode, maxK uint8) (k uint8, bits uint64) {
	ref, ok := w.Ref(Ref0)
	if !ok {
		ref = v
	}
	p := POffset(w.kind, mode, maxK)
	return Encode(v, ref, p, maxK, w.bitWidth)
}

// MinBitsAgainstRef0 is the read-only probe counterpart used by the
// packet-type decision engine to compute nr_sn/nr_ts/nr_ipid without
// committing to a transmission (§4.1).
func (w *Window) MinBitsAgainstRef0(v uint64, mode Mode, maxK uint8) uint8 {
	ref, ok := w.Ref(Ref0)
	if !ok {
		return 0
	}
	p := POffset(w.kind, mode, maxK)
	return MinBits(v, ref, p, maxK, w.bitWidth)
}

// DecodeAgainst reconstructs v from received bits against the chosen
// reference kind (part of the decompressor's repair policy, §4.2/§4.3).
func (w *Window) DecodeAgainst(receivedBits uint64, k uint8, mode Mode, refKind RefKind) (uint64, error) {
	ref, ok := w.Ref(refKind)
	if !ok {
		ref = 0
	}
	p := POffset(w.kind, mode, k)
	return Decode(receivedBits, k, ref, p, w.bitWidth)
}
