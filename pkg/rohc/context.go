package rohc

// CompressorState is the compressor-side per-context state machine (§4.1).
type CompressorState uint8

const (
	StateIR CompressorState = iota // Initialization/Refresh
	StateFO                        // First Order
	StateSO                        // Second Order
)

func (s CompressorState) String() string {
	switch s {
	case StateIR:
		return "IR"
	case StateFO:
		return "FO"
	default:
		return "SO"
	}
}

// DecompressorState is the decompressor-side per-context state machine (§4.2).
type DecompressorState uint8

const (
	StateNC DecompressorState = iota // No Context
	StateSC                          // Static Context
	StateFC                          // Full Context
)

func (s DecompressorState) String() string {
	switch s {
	case StateNC:
		return "NC"
	case StateSC:
		return "SC"
	default:
		return "FC"
	}
}

// IPIDBehavior classifies how an IPv4 header's Identification field evolves
// relative to the Master Sequence Number (§3 Data Model).
type IPIDBehavior uint8

const (
	IPIDSeq     IPIDBehavior = iota // increments with MSN
	IPIDSeqSwap                     // byte-swapped SEQ
	IPIDZero                        // always zero
	IPIDRandom                      // no discernible relationship
)

func (b IPIDBehavior) String() string {
	switch b {
	case IPIDSeq:
		return "SEQ"
	case IPIDSeqSwap:
		return "SEQ_SWAP"
	case IPIDZero:
		return "ZERO"
	default:
		return "RAND"
	}
}

// TSScaleState is the RTP timestamp-scaling subsystem state machine (§3, §4.1).
type TSScaleState uint8

const (
	TSInit TSScaleState = iota // INIT_TS: no stride known
	TSInitStride               // INIT_STRIDE: stride proposed, acknowledging
	TSSendScaled                // SEND_SCALED: scaled timestamps flowing
)

// ROHCInitTSStrideMin is the number of times a stride must be transmitted
// before the compressor advances from INIT_STRIDE to SEND_SCALED (§4.1).
const ROHCInitTSStrideMin = 3

// TSScaling carries RTP timestamp-scaling parameters for one context.
type TSScaling struct {
	State               TSScaleState
	Stride              uint32
	Offset              uint32
	NrInitStridePackets int
	LastTS              uint32
	haveLastTS          bool
}

// Observe feeds a newly seen TS value into the scaling state machine,
// advancing INIT_TS -> INIT_STRIDE -> SEND_SCALED per §4.1. It returns true
// if the stride proposal changed and must be retransmitted from IR.
func (t *TSScaling) Observe(ts uint32) (strideChanged bool) {
	if !t.haveLastTS {
		t.LastTS = ts
		t.haveLastTS = true
		return false
	}
	delta := ts - t.LastTS
	t.LastTS = ts

	switch t.State {
	case TSInit:
		if delta == 0 {
			// TS constant: stay in IR rather than propose a zero stride (§4.1).
			return false
		}
		t.Stride = delta
		t.Offset = ts % delta
		t.State = TSInitStride
		t.NrInitStridePackets = 0
		return true
	case TSInitStride:
		if delta != t.Stride {
			t.Stride = delta
			t.Offset = ts % max32(delta, 1)
			t.NrInitStridePackets = 0
			return true
		}
		t.NrInitStridePackets++
		if t.NrInitStridePackets >= ROHCInitTSStrideMin {
			t.State = TSSendScaled
		}
		return false
	case TSSendScaled:
		if t.Stride == 0 || delta%t.Stride != 0 {
			// Stride no longer explains the observed deltas: re-propose.
			t.State = TSInit
			t.NrInitStridePackets = 0
			return true
		}
		return false
	}
	return false
}

// Scaled returns (ts-offset)/stride for transmission in SEND_SCALED state.
func (t *TSScaling) Scaled(ts uint32) uint32 {
	if t.Stride == 0 {
		return 0
	}
	return (ts - t.Offset) / t.Stride
}

// Unscaled reconstructs ts from a received scaled value.
func (t *TSScaling) Unscaled(scaled uint32) uint32 {
	return scaled*t.Stride + t.Offset
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// FailureCounters implements the decompressor's sliding k-of-n CRC-failure
// tracking used to drive FC->SC->NC demotions (§4.2).
type FailureCounters struct {
	window []bool // true = failure, most recent at end
	n      int
}

// NewFailureCounters creates a counter sliding over the last n packets.
func NewFailureCounters(n int) *FailureCounters {
	return &FailureCounters{window: make([]bool, 0, n), n: n}
}

// Record appends one outcome and reports whether at least k of the last n
// outcomes were failures.
func (f *FailureCounters) Record(failed bool, k int) bool {
	f.window = append(f.window, failed)
	if len(f.window) > f.n {
		f.window = f.window[len(f.window)-f.n:]
	}
	count := 0
	for _, v := range f.window {
		if v {
			count++
		}
	}
	return count >= k
}

// Reset clears the sliding window, e.g. after a state promotion.
func (f *FailureCounters) Reset() { f.window = f.window[:0] }

// Context is the per-flow record shared by compressor and decompressor
// sides once specialized with a CompressorState or DecompressorState (§3).
// The two engines embed this common header in their own context types
// (profile.CompContext, profile.DecompContext) rather than sharing one mutable struct,
// since the two sides never touch each other's state directly.
type Context struct {
	CID     uint16
	Profile ProfileID

	// IP-ID classification, one entry per IPv4 header carried by the flow
	// (tunnels may carry more than one).
	IPIDBehaviors []IPIDBehavior

	TS TSScaling

	// ReorderRatio is carried in CRC-3 control fields (§4.5 scenario 3) and
	// adjusted from FEEDBACK-2 LOSS options.
	ReorderRatio uint8

	// MSN is the Master Sequence Number driving LSB decoding of all other
	// changing fields (GLOSSARY).
	MSN uint16

	// lruPrev/lruNext/lruValid are not read by Table, which keeps its own
	// prev/next index arrays for LRU eviction.
	lruPrev, lruNext uint16
	lruValid         bool
}
