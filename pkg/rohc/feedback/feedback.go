// Package feedback parses and builds FEEDBACK-1 / FEEDBACK-2 octets (§6),
// grounded on the option layout of the RFC 3095/6846 reference
// implementation (_examples/original_source/src/common/feedback.h).
package feedback

import "errors"

var (
	ErrTooShort    = errors.New("feedback: packet too short")
	ErrBadOption   = errors.New("feedback: malformed option")
)

// Kind distinguishes FEEDBACK-1 from FEEDBACK-2 (§6).
type Kind uint8

const (
	Kind1 Kind = 1
	Kind2 Kind = 2
)

// AckType mirrors rohc_feedback_ack_type from feedback.h.
type AckType uint8

const (
	Ack        AckType = 0
	Nack       AckType = 1
	StaticNack AckType = 2
	Reserved   AckType = 3
)

func (a AckType) String() string {
	switch a {
	case Ack:
		return "ACK"
	case Nack:
		return "NACK"
	case StaticNack:
		return "STATIC-NACK"
	default:
		return "RESERVED"
	}
}

// OptionType enumerates the FEEDBACK-2 options named in §6:
// {CRC, REJECT, SN-NOT-VALID, SN, CLOCK, JITTER, LOSS}.
type OptionType uint8

const (
	OptCRC       OptionType = 1
	OptReject    OptionType = 2
	OptSNNotValid OptionType = 3
	OptSN        OptionType = 4
	OptClock     OptionType = 5
	OptJitter    OptionType = 6
	OptLoss      OptionType = 7
)

// Option is one (type, length, value) triple carried in FEEDBACK-2.
type Option struct {
	Type  OptionType
	Value []byte
}

// Feedback is the parsed result of either kind.
type Feedback struct {
	Kind    Kind
	AckType AckType // only meaningful for Kind2
	Mode    uint8   // RFC3095 2-bit mode field, Kind2 only; 0 if absent (RFC6846 layout)
	SN      uint32  // the SN/MSN bits carried in the fixed header, pre-option extension
	CRC     uint8   // trailing CRC byte, RFC6846 layout only
	Options []Option
	Profile byte // FEEDBACK-1's single profile-specific octet, Kind1 only
}

// Parse decodes a feedback payload. The caller is responsible for having
// already separated FEEDBACK-1 (length 1, profile-specific) from
// FEEDBACK-2 (length >= 2) per the surrounding ROHC channel framing; this
// function distinguishes them itself from length alone, matching how the
// reference decompressor dispatches feedback_create.h's helpers.
func Parse(b []byte) (Feedback, error) {
	if len(b) == 0 {
		return Feedback{}, ErrTooShort
	}
	if len(b) == 1 {
		return Feedback{Kind: Kind1, Profile: b[0]}, nil
	}
	return parseFeedback2(b)
}

// parseFeedback2 decodes the RFC6846 6-bit-SN1 + CRC layout (used by all
// profiles this engine implements; the legacy RFC3095 4-bit-SN1 layout
// without a trailing CRC is accepted only when the payload is exactly 2
// bytes, since that's the only way to distinguish the two without an
// explicit length field).
func parseFeedback2(b []byte) (Feedback, error) {
	fb := Feedback{Kind: Kind2}
	if len(b) == 2 {
		// RFC3095 layout: ack_type(2) mode(2) sn1(4), sn2(8).
		fb.AckType = AckType(b[0] >> 6)
		fb.Mode = (b[0] >> 4) & 0x3
		sn1 := uint32(b[0] & 0x0F)
		fb.SN = sn1<<8 | uint32(b[1])
		return fb, nil
	}
	// RFC6846 layout: ack_type(2) sn1(6), sn2(8), crc(8), then options.
	fb.AckType = AckType(b[0] >> 6)
	sn1 := uint32(b[0] & 0x3F)
	fb.SN = sn1<<8 | uint32(b[1])
	fb.CRC = b[2]

	opts, err := parseOptions(b[3:])
	if err != nil {
		return Feedback{}, err
	}
	fb.Options = opts
	return fb, nil
}

func parseOptions(b []byte) ([]Option, error) {
	var opts []Option
	for i := 0; i < len(b); {
		optType := OptionType(b[i] >> 4)
		length := int(b[i]&0x0F) + 1 // length field encodes (len-1), per SDVL-free short options
		i++
		if i+length > len(b) {
			return nil, ErrBadOption
		}
		opts = append(opts, Option{Type: optType, Value: append([]byte(nil), b[i:i+length]...)})
		i += length
	}
	return opts, nil
}

// Build encodes a FEEDBACK-2 packet with the given ack type, SN, and
// options (decompressor-side encoder backing emit_feedback(), §6).
func Build(ackType AckType, sn uint32, opts ...Option) []byte {
	out := make([]byte, 3)
	out[0] = byte(ackType)<<6 | byte((sn>>8)&0x3F)
	out[1] = byte(sn)
	out[2] = 0 // CRC filled in by the caller once the full packet is known
	for _, opt := range opts {
		if len(opt.Value) == 0 || len(opt.Value) > 16 {
			continue
		}
		out = append(out, byte(opt.Type)<<4|byte(len(opt.Value)-1))
		out = append(out, opt.Value...)
	}
	return out
}
