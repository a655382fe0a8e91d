// Package agent is the I/O shell around the pure swim.Engine: it owns the
// clock-driven ticker, the transport.Peer, structured logging, and metrics,
// translating swim.Directive values into real sends and real timers the way
// spec §1 requires of every embedding. The engine itself never touches any
// of this.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/transport"
	"github.com/ruvnet/swimguard/pkg/metrics"
)

// Agent wires a swim.Engine to a transport.Peer and a protocol-period
// ticker. The engine is single-threaded and non-reentrant (spec §5); mu
// serializes every call into it from the tick loop, the receive loop, and
// any admin API goroutine that reads a Snapshot via Engine() directly.
type Agent struct {
	mu     sync.Mutex
	engine *swim.Engine

	peer    transport.Peer
	logger  *zap.Logger
	metrics *metrics.Metrics

	probeInterval time.Duration
	pending       *pendingRegistry
}

// New constructs an Agent. cfg.Clock and cfg.Rand must already be set on the
// swim.Config (NewEngine enforces this).
func New(self swim.Node, cfg swim.Config, probeInterval time.Duration, peer transport.Peer, logger *zap.Logger, m *metrics.Metrics) *Agent {
	return &Agent{
		engine:        swim.NewEngine(self, cfg),
		peer:          peer,
		logger:        logger,
		metrics:       m,
		probeInterval: probeInterval,
		pending:       newPendingRegistry(),
	}
}

// Engine exposes the underlying engine for read-only access (Snapshot,
// AllMembers, ...) from the admin API. Writes must go through Agent's own
// methods so mu is always held.
func (a *Agent) Engine() *swim.Engine { return a.engine }

// Join seeds a peer into the member table as Alive{0}, the operator-facing
// equivalent of a static seed list entry.
func (a *Agent) Join(addr string) {
	a.mu.Lock()
	wasNew := a.engine.Join(swim.Node{Addr: addr})
	a.mu.Unlock()
	if wasNew {
		a.logger.Info("joined peer", zap.String("addr", addr))
	}
}

// Run drives the agent until ctx is canceled: a ticker advances the
// protocol period, and a receive loop processes inbound wire messages.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.peer.Start(ctx); err != nil {
		return fmt.Errorf("agent: start transport: %w", err)
	}

	ticker := time.NewTicker(a.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.peer.Stop()
		case <-ticker.C:
			a.tick(ctx)
		case msg, ok := <-a.peer.Receive():
			if !ok {
				return nil
			}
			a.handleMessage(ctx, msg)
		}
	}
}

// Tick advances the protocol period once, the same action Run's ticker
// performs every ProbeInterval, for callers that pace rounds manually.
func (a *Agent) Tick(ctx context.Context) {
	a.tick(ctx)
}

func (a *Agent) tick(ctx context.Context) {
	a.mu.Lock()
	dirs := a.engine.OnPeriodicTick()
	period := a.engine.ProtocolPeriod()
	a.mu.Unlock()

	a.metrics.SetProtocolPeriod(period)
	a.refreshGauges()
	a.dispatch(ctx, dirs)
}

func (a *Agent) refreshGauges() {
	a.mu.Lock()
	snap := a.engine.Snapshot()
	a.mu.Unlock()

	a.metrics.SetLocalHealthMultiplier(snap.LHM)
	a.metrics.SetProbeListSize(snap.ProbeListSize)
	a.metrics.SetMemberCount(len(snap.Members))
	a.metrics.SetGossipBufferDepth(snap.GossipBufferSize)
}

// dispatch turns engine-emitted directives into real side effects.
func (a *Agent) dispatch(ctx context.Context, dirs []swim.Directive) {
	for _, d := range dirs {
		a.metrics.RecordDirective(directiveKindName(d.Kind))
		switch d.Kind {
		case swim.DirectiveSendPing:
			go a.probeDirect(ctx, d.Target, d.Timeout)
		case swim.DirectiveSendPingRequest:
			go a.relayPingRequest(ctx, d)
		case swim.DirectiveReply:
			// OnPing is the only source of DirectiveReply, and handlePing
			// intercepts it before reaching dispatch (it needs the original
			// sender's address, which the directive itself doesn't carry).
		case swim.DirectiveConnect:
			a.logger.Info("discovered new member via gossip", zap.String("addr", d.ConnectNode.Addr))
		case swim.DirectiveMemberStatusChanged:
			a.metrics.RecordStatusTransition(d.From.Kind.String(), d.To.Kind.String())
			a.logger.Info("member status changed",
				zap.String("addr", d.Member.Peer.Addr),
				zap.String("from", d.From.Kind.String()),
				zap.String("to", d.To.Kind.String()),
				zap.Uint64("incarnation", uint64(d.To.Incarnation)))
		case swim.DirectiveLogEvent:
			a.logDirective(d)
		}
	}
}

func (a *Agent) logDirective(d swim.Directive) {
	switch d.Level {
	case swim.LogDebug:
		a.logger.Debug(d.Message)
	case swim.LogWarn:
		a.logger.Warn(d.Message)
	case swim.LogError:
		a.logger.Error(d.Message)
	default:
		a.logger.Info(d.Message)
	}
}

func directiveKindName(k swim.DirectiveKind) string {
	switch k {
	case swim.DirectiveSendPing:
		return "send_ping"
	case swim.DirectiveSendPingRequest:
		return "send_ping_request"
	case swim.DirectiveReply:
		return "reply"
	case swim.DirectiveConnect:
		return "connect"
	case swim.DirectiveMemberStatusChanged:
		return "member_status_changed"
	case swim.DirectiveLogEvent:
		return "log_event"
	default:
		return "unknown"
	}
}

func wireAddr(n swim.Node) transport.NodeAddr {
	return transport.NodeAddr{Addr: n.Addr, Gen: n.Gen}
}

func (a *Agent) send(ctx context.Context, to string, msg transport.Message) {
	if err := a.peer.Send(ctx, to, msg); err != nil {
		a.metrics.RecordTransportError(transportErrorReason(err))
		a.logger.Warn("transport send failed", zap.String("to", to), zap.Error(err))
	}
}

func transportErrorReason(err error) string {
	if _, ok := err.(*transport.ErrUnavailable); ok {
		return "unavailable"
	}
	return "other"
}
