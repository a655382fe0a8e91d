package agent

import (
	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/transport"
)

func toWireStatus(s swim.Status) transport.WireStatus {
	ws := transport.WireStatus{
		Kind:        uint8(s.Kind),
		Incarnation: uint64(s.Incarnation),
	}
	for addr := range s.SuspectedBy {
		ws.SuspectedBy = append(ws.SuspectedBy, addr)
	}
	return ws
}

func toWireMember(m swim.Member) transport.WireMember {
	return transport.WireMember{
		Addr:           m.Peer.Addr,
		Gen:            m.Peer.Gen,
		Status:         toWireStatus(m.Status),
		ProtocolPeriod: m.ProtocolPeriod,
	}
}

func toWirePayload(p swim.GossipPayload) []transport.WireMember {
	if p.Kind != swim.GossipPayloadMembership {
		return nil
	}
	out := make([]transport.WireMember, 0, len(p.Members))
	for _, m := range p.Members {
		out = append(out, toWireMember(m))
	}
	return out
}

// fromWireMembers reconstructs a GossipPayload from wire members. Suspector
// identity (like all node identity, spec §3 "Node") is by address alone, so
// the wire format's plain address strings for SuspectedBy need no further
// decoration before becoming map keys.
func fromWireMembers(wm []transport.WireMember) swim.GossipPayload {
	if len(wm) == 0 {
		return swim.GossipPayload{Kind: swim.GossipPayloadNone}
	}
	members := make([]swim.Member, 0, len(wm))
	for _, w := range wm {
		status := swim.Status{
			Kind:        swim.StatusKind(w.Status.Kind),
			Incarnation: swim.Incarnation(w.Status.Incarnation),
		}
		if len(w.Status.SuspectedBy) > 0 {
			suspectors := make(map[string]struct{}, len(w.Status.SuspectedBy))
			for _, addr := range w.Status.SuspectedBy {
				suspectors[addr] = struct{}{}
			}
			status.SuspectedBy = suspectors
		}
		members = append(members, swim.Member{
			Peer:           swim.Node{Addr: w.Addr, Gen: w.Gen},
			Status:         status,
			ProtocolPeriod: w.ProtocolPeriod,
		})
	}
	return swim.GossipPayload{Kind: swim.GossipPayloadMembership, Members: members}
}
