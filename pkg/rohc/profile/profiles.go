package profile

import (
	"github.com/google/gopacket/layers"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

// allHandlers enumerates every profile this engine implements as a
// genericHandler over a Spec value — the "variant enum" of §9 Design
// Notes. TCP (SPEC_FULL §4) additionally reuses genericHandler but with
// Incomplete set, since a faithful c_tcp.c-equivalent option-list
// compressor is out of proportion for this engine (see DESIGN.md).
func allHandlers() []Handler {
	return []Handler{
		genericHandler{Spec{
			ID: rohc.ProfileRTP, Name: "RTP", Precedence: 0,
			HasTransportPorts: true, TransportProto: layers.IPProtocolUDP, IsRTP: true,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileUDPLite, Name: "UDP-Lite", Precedence: 1,
			HasTransportPorts: true, TransportProto: layers.IPProtocolUDPLite,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileESP, Name: "ESP", Precedence: 2,
			HasTransportPorts: false, TransportProto: layers.IPProtocolESP,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileUDP, Name: "UDP", Precedence: 3,
			HasTransportPorts: true, TransportProto: layers.IPProtocolUDP,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileROHCv2IPUDPRTP, Name: "ROHCv2 IP/UDP/RTP", Precedence: 4,
			HasTransportPorts: true, TransportProto: layers.IPProtocolUDP, IsRTP: true, ROHCv2: true,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileROHCv2IPUDP, Name: "ROHCv2 IP/UDP", Precedence: 5,
			HasTransportPorts: true, TransportProto: layers.IPProtocolUDP, ROHCv2: true,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileROHCv2IP, Name: "ROHCv2 IP", Precedence: 6,
			ROHCv2: true,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileIP, Name: "IP", Precedence: 7,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileTCP, Name: "TCP", Precedence: 8,
			HasTransportPorts: true, TransportProto: layers.IPProtocolTCP, Incomplete: true,
		}},
		genericHandler{Spec{
			ID: rohc.ProfileUncompressed, Name: "Uncompressed", Precedence: 9,
			IsUncompressed: true,
		}},
	}
}
