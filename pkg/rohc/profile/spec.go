package profile

import (
	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

// Spec describes the shape of one profile's header set: which fields are
// static (transmitted once, in the IR static chain), which change
// packet-to-packet (carried in the dynamic chain / CO packets via W-LSB),
// and how to recognize a matching uncompressed packet. Concrete profiles
// (ip, udp, rtp, esp, udplite and their ROHCv2 counterparts) are all
// instances of the same Spec-driven handler — see profiles.go — rather
// than seven hand-written parallel implementations, since RFC 3095/5225
// profiles differ only in which of these fields are present (§9 Design
// Notes: "variant enum over profile kinds ... dispatch by variant").
type Spec struct {
	ID         rohc.ProfileID
	Name       string
	Precedence int // lower tries first in the compressor's fallback order (§7)

	HasTransportPorts bool             // UDP/UDP-Lite/RTP/TCP carry 16-bit src/dst ports
	TransportProto    layers.IPProtocol // expected transport for Match(), ignored if IsRTP
	IsRTP             bool             // SSRC/marker/payload-type static+dynamic fields apply
	IsUncompressed    bool             // matches everything; no chain, raw passthrough
	ROHCv2            bool             // RFC 5225 wire conventions vs RFC 3095
	Incomplete        bool             // never promoted past FO; see TCP stub, SPEC_FULL §4
}
