package rohc

import "errors"

// Sentinel errors returned by the compressor and decompressor engines.
var (
	// Compression errors.
	ErrNoMatchingProfile = errors.New("rohc: no matching profile")
	ErrOutputTooSmall    = errors.New("rohc: output buffer too small")
	ErrBadInput          = errors.New("rohc: bad input")

	// Decompression errors.
	ErrNoContext        = errors.New("rohc: no context for CID")
	ErrBadCRC           = errors.New("rohc: CRC check failed")
	ErrMalformed        = errors.New("rohc: malformed packet")
	ErrUnknownPacket    = errors.New("rohc: unknown packet discriminator")
	ErrSegment          = errors.New("rohc: partial packet (segmentation not supported)")

	// Configuration errors.
	ErrProfileNotEnabled    = errors.New("rohc: profile not enabled")
	ErrProfileNotImplemented = errors.New("rohc: profile not implemented")
	ErrInvalidWLSBWidth     = errors.New("rohc: wlsb window width must be a power of two in [1,64]")
	ErrInvalidCID           = errors.New("rohc: CID out of range for CID type")
)
