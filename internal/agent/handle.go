package agent

import (
	"context"

	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/transport"
)

// handleMessage routes one inbound wire message to the engine or to a
// pending probe waiter.
func (a *Agent) handleMessage(ctx context.Context, msg transport.Message) {
	switch msg.Kind {
	case transport.MessagePing:
		a.handlePing(ctx, msg)
	case transport.MessagePingRequest:
		a.handlePingRequest(ctx, msg)
	case transport.MessageAck, transport.MessageNack:
		a.routeProbeResponse(msg)
	case transport.MessagePingRequestResponse:
		a.routeRelayResponse(msg)
	}
}

func (a *Agent) handlePing(ctx context.Context, msg transport.Message) {
	payload := fromWireMembers(msg.Gossip)
	sender := swim.Node{Addr: msg.From.Addr, Gen: msg.From.Gen}
	a.mu.Lock()
	dirs := a.engine.OnPing(sender, swim.Incarnation(msg.Incarnation), payload)
	a.mu.Unlock()
	// OnPing's DirectiveReply is addressed back to whoever pinged us; rewrite
	// it into a wire message and send it, rather than relying on dispatch's
	// generic reply path which doesn't know the original sender.
	for _, d := range dirs {
		if d.Kind == swim.DirectiveReply {
			a.sendAck(ctx, msg.From, d.Reply)
			continue
		}
		a.dispatch(ctx, []swim.Directive{d})
	}
}

func (a *Agent) handlePingRequest(ctx context.Context, msg transport.Message) {
	target := swim.Node{Addr: msg.Target.Addr, Gen: msg.Target.Gen}
	replyTo := swim.Node{Addr: msg.From.Addr, Gen: msg.From.Gen}
	payload := fromWireMembers(msg.Gossip)

	a.mu.Lock()
	dirs := a.engine.OnPingRequest(target, replyTo, swim.Incarnation(msg.Incarnation), payload)
	a.mu.Unlock()
	a.dispatch(ctx, dirs)
}

func (a *Agent) sendAck(ctx context.Context, to transport.NodeAddr, reply swim.PingResponse) {
	a.mu.Lock()
	self := a.engine.Self()
	a.mu.Unlock()
	a.send(ctx, to.Addr, transport.Message{
		Kind:        transport.MessageAck,
		From:        wireAddr(self),
		To:          to,
		Incarnation: uint64(reply.Incarnation),
		Gossip:      toWirePayload(reply.Payload),
	})
}

// routeProbeResponse delivers an Ack/Nack to whichever pending probe is
// waiting on it: a direct probe this node issued, or a relay probe it's
// running on another node's behalf. msg.From is the responder (the node
// that was pinged), which is exactly the key both probeDirect() and
// relayPingRequest() register under.
func (a *Agent) routeProbeResponse(msg transport.Message) {
	target := msg.From.Addr
	if a.pending.deliver(directKey(target), msg) {
		return
	}
	a.pending.deliver(relayKey(target), msg)
}

func (a *Agent) routeRelayResponse(msg transport.Message) {
	a.pending.deliver(indirectKey(msg.Target.Addr), msg)
}
