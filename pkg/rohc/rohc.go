// Package rohc defines the shared types of the ROHC compressor and
// decompressor engines: context identifiers, profile identifiers, status
// codes, and the packet buffer cursor both engines pass data through.
package rohc

import "fmt"

// CIDType selects the size of the Context Identifier space for an engine
// instance. It bounds max_contexts at construction time.
type CIDType uint8

const (
	CIDTypeSmall CIDType = iota // 0-15
	CIDTypeLarge                // 0-16383
)

// MaxCID returns the largest legal CID for the type.
func (t CIDType) MaxCID() uint16 {
	if t == CIDTypeLarge {
		return 16383
	}
	return 15
}

// ProfileID identifies a profile in the registry. Values match the IANA
// ROHC profile identifiers used on the wire by IR packets.
type ProfileID uint16

const (
	ProfileUncompressed ProfileID = 0x0000
	ProfileRTP          ProfileID = 0x0001
	ProfileUDP          ProfileID = 0x0002
	ProfileESP          ProfileID = 0x0003
	ProfileIP           ProfileID = 0x0004
	ProfileTCP          ProfileID = 0x0006
	ProfileUDPLite      ProfileID = 0x0007

	// ROHCv2 profiles, RFC 5225.
	ProfileROHCv2IP      ProfileID = 0x0101
	ProfileROHCv2IPUDP   ProfileID = 0x0102
	ProfileROHCv2IPUDPRTP ProfileID = 0x0103
)

func (p ProfileID) String() string {
	switch p {
	case ProfileUncompressed:
		return "Uncompressed"
	case ProfileRTP:
		return "RTP"
	case ProfileUDP:
		return "UDP"
	case ProfileESP:
		return "ESP"
	case ProfileIP:
		return "IP"
	case ProfileTCP:
		return "TCP"
	case ProfileUDPLite:
		return "UDP-Lite"
	case ProfileROHCv2IP:
		return "ROHCv2-IP"
	case ProfileROHCv2IPUDP:
		return "ROHCv2-IP/UDP"
	case ProfileROHCv2IPUDPRTP:
		return "ROHCv2-IP/UDP/RTP"
	default:
		return fmt.Sprintf("Profile(0x%04x)", uint16(p))
	}
}

// Mode is the bidirectionality mode negotiated between the two endpoints.
type Mode uint8

const (
	ModeU Mode = iota // Unidirectional
	ModeO             // Bidirectional Optimistic
	ModeR             // Bidirectional Reliable
)

// Status is the result of a compress/decompress call, mirroring §6.
type Status int

const (
	StatusOK Status = iota
	StatusNoContext
	StatusOutputTooSmall
	StatusBadCRC
	StatusMalformed
	StatusSegment
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoContext:
		return "NO_CONTEXT"
	case StatusOutputTooSmall:
		return "OUTPUT_TOO_SMALL"
	case StatusBadCRC:
		return "BAD_CRC"
	case StatusMalformed:
		return "MALFORMED"
	case StatusSegment:
		return "SEGMENT"
	default:
		return "ERROR"
	}
}

// Features is a bitset of optional engine behaviors (§6).
type Features uint32

const (
	FeatureTimeBasedRefreshes Features = 1 << iota
	FeatureNoIPChecksums
	FeatureCompat16x
	FeatureDumpPackets
	// FeatureROHCv2RTPExperimental is defined but not consulted: the
	// ROHCv2 IP/UDP/RTP profile is enabled through EnableProfiles like
	// every other profile (§9 Open Question — ROHCv2 RTP).
	FeatureROHCv2RTPExperimental
)

func (f Features) Has(flag Features) bool { return f&flag != 0 }

// TraceLevel orders diagnostic verbosity for the trace_cb sink.
type TraceLevel int

const (
	TraceDebug TraceLevel = iota
	TraceInfo
	TraceWarn
	TraceError
)

// TraceFunc is the caller-supplied diagnostic sink (§6). It may be nil.
type TraceFunc func(level TraceLevel, entity string, profileID ProfileID, msg string)

// RNGFunc supplies unpredictable bits for fields such as conflict-resolution
// IR CIDs. Required by the compressor (§6).
type RNGFunc func() uint32

// RTPDetectFunc classifies a UDP payload as RTP or not (§6).
type RTPDetectFunc func(udpPayload []byte) bool

// PacketBuffer is an opaque byte span with a write cursor. Ownership passes
// to the engine for the duration of one call and returns to the caller on
// completion; engines never retain a PacketBuffer across calls (§3).
type PacketBuffer struct {
	buf    []byte
	offset int
}

// NewPacketBuffer wraps a caller-owned byte slice for the engine to write
// into starting at offset 0.
func NewPacketBuffer(buf []byte) *PacketBuffer {
	return &PacketBuffer{buf: buf}
}

// Bytes returns the portion of the buffer written so far.
func (p *PacketBuffer) Bytes() []byte { return p.buf[:p.offset] }

// Len reports how many bytes have been written.
func (p *PacketBuffer) Len() int { return p.offset }

// Cap reports the total capacity of the underlying buffer.
func (p *PacketBuffer) Cap() int { return len(p.buf) }

// Remaining reports how many bytes are left before the buffer is exhausted.
func (p *PacketBuffer) Remaining() int { return len(p.buf) - p.offset }

// WriteByte appends a single byte, returning StatusOutputTooSmall's sentinel
// error if the buffer is full.
func (p *PacketBuffer) WriteByte(b byte) error {
	if p.offset >= len(p.buf) {
		return ErrOutputTooSmall
	}
	p.buf[p.offset] = b
	p.offset++
	return nil
}

// Write appends a byte slice, failing atomically if it would not fit.
func (p *PacketBuffer) Write(b []byte) error {
	if p.Remaining() < len(b) {
		return ErrOutputTooSmall
	}
	copy(p.buf[p.offset:], b)
	p.offset += len(b)
	return nil
}

// Reset rewinds the cursor to the start, allowing buffer reuse.
func (p *PacketBuffer) Reset() { p.offset = 0 }
