package agent

import (
	"context"
	"time"

	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/transport"
)

func directKey(targetAddr string) string    { return "direct:" + targetAddr }
func indirectKey(targetAddr string) string  { return "indirect:" + targetAddr }
func relayKey(targetAddr string) string     { return "relay:" + targetAddr }

// probeDirect executes the full SWIM probe cycle for one protocol period's
// chosen target: ping directly, and if nothing comes back within half the
// budget, fall back to indirect probing through a random subset of peers
// (spec §4.5.4) before finally reporting a timeout.
func (a *Agent) probeDirect(ctx context.Context, target swim.Node, timeout time.Duration) {
	key := directKey(target.Addr)
	respCh := a.pending.register(key)
	defer a.pending.unregister(key)

	a.mu.Lock()
	payload := a.engine.MakeGossipPayload(&target)
	self := a.engine.Self()
	incarnation := a.engine.Incarnation()
	a.mu.Unlock()

	start := time.Now()
	a.send(ctx, target.Addr, transport.Message{
		Kind:        transport.MessagePing,
		From:        wireAddr(self),
		To:          wireAddr(target),
		Incarnation: uint64(incarnation),
		Gossip:      toWirePayload(payload),
	})

	directBudget := timeout / 2
	select {
	case resp := <-respCh:
		a.metrics.RecordPingRTT(time.Since(start))
		a.completeDirect(ctx, target, resp)
		return
	case <-time.After(directBudget):
	case <-ctx.Done():
		return
	}

	a.probeIndirect(ctx, target, timeout-directBudget)
}

func (a *Agent) probeIndirect(ctx context.Context, target swim.Node, remaining time.Duration) {
	key := indirectKey(target.Addr)
	respCh := a.pending.register(key)
	defer a.pending.unregister(key)

	a.mu.Lock()
	relays := a.engine.MembersToPingRequest(target)
	self := a.engine.Self()
	incarnation := a.engine.Incarnation()
	a.mu.Unlock()

	if len(relays) == 0 {
		a.completeTimeout(ctx, target)
		return
	}

	for _, relay := range relays {
		a.send(ctx, relay.Addr, transport.Message{
			Kind:        transport.MessagePingRequest,
			From:        wireAddr(self),
			To:          wireAddr(relay),
			Origin:      wireAddr(self),
			Target:      wireAddr(target),
			Incarnation: uint64(incarnation),
		})
	}

	select {
	case resp := <-respCh:
		a.completeIndirect(ctx, target, resp)
	case <-time.After(remaining):
		a.completeTimeout(ctx, target)
	case <-ctx.Done():
	}
}

func (a *Agent) completeDirect(ctx context.Context, target swim.Node, resp transport.Message) {
	// resp.From is the responder's own wireAddr(self), so it carries its true
	// Gen even when target was looked up from a zero-Gen stub (e.g. seeded via
	// agent.Join before any traffic had been exchanged with it).
	responder := swim.Node{Addr: resp.From.Addr, Gen: resp.From.Gen}
	pr := swim.PingResponse{
		Kind:        wireKindToPingResponseKind(resp.Kind),
		Target:      responder,
		Incarnation: swim.Incarnation(resp.Incarnation),
		Payload:     fromWireMembers(resp.Gossip),
	}
	a.mu.Lock()
	_, dirs := a.engine.OnPingResponse(pr, responder)
	a.mu.Unlock()
	a.dispatch(ctx, dirs)
}

func (a *Agent) completeIndirect(ctx context.Context, target swim.Node, resp transport.Message) {
	pr := swim.PingResponse{
		Kind:        wireKindToPingResponseKind(resp.ResultKind),
		Target:      target,
		Incarnation: swim.Incarnation(resp.Incarnation),
		Payload:     fromWireMembers(resp.Gossip),
	}
	a.mu.Lock()
	_, dirs := a.engine.OnPingRequestResponse(pr, target)
	a.mu.Unlock()
	a.dispatch(ctx, dirs)
}

func (a *Agent) completeTimeout(ctx context.Context, target swim.Node) {
	pr := swim.PingResponse{Kind: swim.PingTimeout, Target: target}
	a.mu.Lock()
	_, dirs := a.engine.OnPingResponse(pr, target)
	a.mu.Unlock()
	a.dispatch(ctx, dirs)
}

func wireKindToPingResponseKind(k transport.MessageKind) swim.PingResponseKind {
	switch k {
	case transport.MessageAck:
		return swim.PingAck
	case transport.MessageNack:
		return swim.PingNack
	default:
		return swim.PingError
	}
}

// relayPingRequest is the relay-side half of an indirect probe: this node
// was asked (via a DirectiveSendPingRequest emitted from Engine.OnPingRequest)
// to ping d.Target on d.PingReqOrigin's behalf and report back.
func (a *Agent) relayPingRequest(ctx context.Context, d swim.Directive) {
	key := relayKey(d.Target.Addr)
	respCh := a.pending.register(key)
	defer a.pending.unregister(key)

	a.mu.Lock()
	payload := a.engine.MakeGossipPayload(&d.Target)
	self := a.engine.Self()
	incarnation := a.engine.Incarnation()
	a.mu.Unlock()

	a.send(ctx, d.Target.Addr, transport.Message{
		Kind:        transport.MessagePing,
		From:        wireAddr(self),
		To:          wireAddr(d.Target),
		Incarnation: uint64(incarnation),
		Gossip:      toWirePayload(payload),
	})

	resultKind := transport.MessageNack // default: nothing came back in time
	respIncarnation := incarnation
	var gossip []transport.WireMember

	select {
	case result := <-respCh:
		resultKind = result.Kind
		respIncarnation = result.Incarnation
		gossip = result.Gossip
	case <-time.After(d.Timeout):
	case <-ctx.Done():
		return
	}

	a.send(ctx, d.PingReqOrigin.Addr, transport.Message{
		Kind:        transport.MessagePingRequestResponse,
		From:        wireAddr(self),
		To:          wireAddr(d.PingReqOrigin),
		Target:      wireAddr(d.Target),
		Incarnation: respIncarnation,
		Gossip:      gossip,
		ResultKind:  resultKind,
	})
}
