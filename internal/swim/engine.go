package swim

import (
	"fmt"
	"time"
)

// Engine is the top-level protocol engine (spec §2 component 6). It owns
// the member table, probe scheduler, gossip buffer, Lifeguard controller,
// local incarnation, and protocol period exclusively; external code must
// never read or mutate them directly (spec §5) — every access goes through
// the methods below. Engine is single-threaded and non-reentrant: callers
// must serialize delivery of events to it (spec §5).
type Engine struct {
	self        Node
	incarnation Incarnation
	protocolPd  uint64

	members   map[string]*Member // keyed by Node.Key() (address)
	scheduler *probeScheduler
	gossip    *gossipBuffer
	lifeguard *lifeguardController

	cfg Config
}

// NewEngine constructs an engine for self, seeding the member table with the
// local node as Alive{0} (spec §3 invariant 1). self is never inserted into
// the probe list (invariant 2).
func NewEngine(self Node, cfg Config) *Engine {
	if cfg.Clock == nil {
		panic("swim: Config.Clock is required")
	}
	if cfg.Rand == nil {
		panic("swim: Config.Rand is required")
	}
	e := &Engine{
		self:      self,
		members:   make(map[string]*Member),
		scheduler: newProbeScheduler(cfg.Rand),
		gossip:    newGossipBuffer(),
		lifeguard: newLifeguardController(cfg),
		cfg:       cfg,
	}
	e.members[self.Key()] = &Member{Peer: self, Status: Alive(0), ProtocolPeriod: 0}
	return e
}

// --- Member Table reads (spec §4.1) ---

// Get returns the member record for a node, if known.
func (e *Engine) Get(n Node) (Member, bool) {
	if n.Key() == e.self.Key() {
		return *e.members[e.self.Key()], true
	}
	m, ok := e.members[n.Key()]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// StatusOf returns a peer's status. The local node always reports
// Alive{self.incarnation}, unconditionally (spec §9 "Myself as a member"),
// which is essential for refutation logic elsewhere to reason about self.
func (e *Engine) StatusOf(peer Node) (Status, bool) {
	if peer.Key() == e.self.Key() {
		return Alive(e.incarnation), true
	}
	m, ok := e.members[peer.Key()]
	if !ok {
		return Status{}, false
	}
	return m.Status, true
}

func (e *Engine) IsMember(peer Node) bool {
	_, ok := e.members[peer.Key()]
	return ok
}

// AllMembers returns every member record, in no particular order.
func (e *Engine) AllMembers() []Member {
	out := make([]Member, 0, len(e.members))
	for _, m := range e.members {
		out = append(out, *m)
	}
	return out
}

// Suspects returns every member currently in Suspect status.
func (e *Engine) Suspects() []Member {
	var out []Member
	for _, m := range e.members {
		if m.Status.Kind == StatusSuspect {
			out = append(out, *m)
		}
	}
	return out
}

// OtherMemberCount returns the member count excluding self.
func (e *Engine) OtherMemberCount() int {
	n := len(e.members)
	if _, ok := e.members[e.self.Key()]; ok {
		n--
	}
	return n
}

// Self returns the local node identity.
func (e *Engine) Self() Node { return e.self }

// Incarnation returns the local node's current incarnation.
func (e *Engine) Incarnation() Incarnation { return e.incarnation }

// ProtocolPeriod returns the current probe-round index.
func (e *Engine) ProtocolPeriod() uint64 { return e.protocolPd }

// --- Member Table write path (spec §4.1) ---

// mark is the single write path for member-status mutation. It is
// unexported: the only ways to reach it from outside the engine are through
// the event handlers below and the Join/ForceSuspect hooks in snapshot.go,
// matching spec §5's "all access is through the engine's handlers."
func (e *Engine) mark(peer Node, incoming Status) MarkResult {
	prevMember, hadPrior := e.members[peer.Key()]
	var prevStatus Status
	if hadPrior {
		prevStatus = prevMember.Status
	}

	protocolPeriod := e.protocolPd
	var suspicionStart int64
	var hasSuspicionStart bool

	if incoming.Kind == StatusSuspect && hadPrior &&
		prevMember.Status.Kind == StatusSuspect &&
		incoming.Incarnation == prevMember.Status.Incarnation {
		// Merge suspector sets; preserve the original timer and period.
		incoming = Status{
			Kind:        StatusSuspect,
			Incarnation: incoming.Incarnation,
			SuspectedBy: mergeSuspects(prevMember.Status.SuspectedBy, incoming.SuspectedBy, e.cfg.MaxIndependentSuspicions),
		}
		suspicionStart = prevMember.SuspicionStartedAtNanos
		hasSuspicionStart = prevMember.hasSuspicionStart
		protocolPeriod = prevMember.ProtocolPeriod
	} else if incoming.Kind == StatusSuspect {
		incoming.SuspectedBy = capSuspectedBy(incoming.SuspectedBy, e.cfg.MaxIndependentSuspicions)
		suspicionStart = e.cfg.Clock.NowNanos()
		hasSuspicionStart = true
	}

	if hadPrior && supersedes(prevMember.Status, incoming) {
		return MarkResult{Kind: MarkIgnoredDueToOlderStatus, Previous: prevStatus, HadPrior: hadPrior, Current: prevStatus}
	}

	newMember := &Member{
		Peer:                    peer,
		Status:                  incoming,
		ProtocolPeriod:          protocolPeriod,
		SuspicionStartedAtNanos: suspicionStart,
		hasSuspicionStart:       hasSuspicionStart,
	}
	e.members[peer.Key()] = newMember

	if incoming.Kind == StatusDead {
		e.scheduler.remove(peer)
	}

	e.gossip.upsert(*newMember)

	return MarkResult{Kind: MarkApplied, Previous: prevStatus, HadPrior: hadPrior, Current: incoming}
}

// addMember creates a brand-new member record (spec §3 "Lifecycles") and,
// unless it is Dead on arrival, inserts it into the probe scheduler.
func (e *Engine) addMember(peer Node, status Status) *Member {
	m := &Member{Peer: peer, Status: status, ProtocolPeriod: e.protocolPd}
	if status.Kind == StatusSuspect {
		m.SuspicionStartedAtNanos = e.cfg.Clock.NowNanos()
		m.hasSuspicionStart = true
	}
	e.members[peer.Key()] = m
	if status.Kind != StatusDead {
		e.scheduler.insert(peer)
	}
	e.gossip.upsert(*m)
	return m
}

// markOrAdd applies mark() to a known node, or addMember() to an unknown
// one; used by the Join operability hook.
func (e *Engine) markOrAdd(peer Node, status Status) (MarkResult, bool /*wasNew*/) {
	if _, ok := e.members[peer.Key()]; ok {
		return e.mark(peer, status), false
	}
	m := e.addMember(peer, status)
	return MarkResult{Kind: MarkApplied, Current: m.Status}, true
}

// observePeer folds a first-hand-seen peer's true address+generation into
// the member table: a brand-new sender is added Alive at the incarnation it
// reported, and an existing entry recorded under a zero-Gen stub (minted by
// agent.Join, from a seed list or the admin API's join endpoint, before any
// traffic had been exchanged with that peer) is upgraded to carry its real
// generation tag. Besides gossip dissemination and the Ack of a direct probe
// (whose responder Node is written by mark), this is where Node identity
// flows between processes, so it's what makes the generation tag
// (spec §3 "Node") actually do its restart-disambiguation job for peers we
// talk to directly rather than only hear about secondhand.
func (e *Engine) observePeer(peer Node, incarnation Incarnation) {
	existing, known := e.members[peer.Key()]
	if !known {
		e.addMember(peer, Alive(incarnation))
		return
	}
	if existing.Peer.Gen == "" && peer.Gen != "" {
		updated := *existing
		updated.Peer = peer
		e.members[peer.Key()] = &updated
	}
}

// --- make_gossip_payload (spec §4.4) ---

// MakeGossipPayload implements the "buddy system" piggyback selection: if
// target is given and currently Suspect, its record is emitted first (even
// if already decayed out of the heap), then up to MaxGossipMessages entries
// are drained from the decay queue.
func (e *Engine) MakeGossipPayload(target *Node) GossipPayload {
	var out []Member
	var buddyPeer Node
	buddyEmitted := false

	if target != nil {
		if m, ok := e.gossip.peekSuspect(*target); ok {
			out = append(out, m)
			buddyPeer = *target
			buddyEmitted = true
		} else if mm, ok := e.members[target.Key()]; ok && mm.Status.Kind == StatusSuspect {
			out = append(out, *mm)
			buddyPeer = *target
			buddyEmitted = true
		}
	}

	drained := e.gossip.drain(e.cfg.MaxGossipMessages, e.cfg.MaxGossipCountPerMessage)
	for _, g := range drained {
		if buddyEmitted && g.Member.Peer.Key() == buddyPeer.Key() {
			continue
		}
		out = append(out, g.Member)
	}

	if len(out) == 0 {
		return GossipPayload{Kind: GossipPayloadNone}
	}
	return GossipPayload{Kind: GossipPayloadMembership, Members: out}
}

// --- on_gossip_payload (spec §4.5.1) ---

func (e *Engine) processGossipPayload(payload GossipPayload) []Directive {
	var dirs []Directive
	if payload.Kind != GossipPayloadMembership {
		return dirs
	}
	for _, m := range payload.Members {
		if m.Peer.Key() == e.self.Key() {
			dirs = append(dirs, e.processSelfGossip(m.Status)...)
			continue
		}
		dirs = append(dirs, e.processOtherGossip(m)...)
	}
	return dirs
}

func (e *Engine) processSelfGossip(incoming Status) []Directive {
	switch incoming.Kind {
	case StatusAlive:
		return nil
	case StatusSuspect:
		switch {
		case incoming.Incarnation == e.incarnation:
			e.lifeguard.apply(LHMRefutingSuspectMessageAboutSelf)
			e.incarnation++
			e.refuteSelf()
			return nil
		case incoming.Incarnation > e.incarnation:
			return []Directive{logEvent(LogWarn, fmt.Sprintf(
				"peer reported suspicion of self at incarnation %d, higher than our own %d; ignoring",
				incoming.Incarnation, e.incarnation))}
		default:
			return nil // stale, ignore
		}
	case StatusUnreachable:
		if incoming.Incarnation == e.incarnation {
			e.incarnation++
			e.refuteSelf()
		}
		return nil
	case StatusDead:
		prev := e.members[e.self.Key()].Status
		e.members[e.self.Key()] = &Member{Peer: e.self, Status: Dead(), ProtocolPeriod: e.protocolPd}
		return []Directive{statusChanged(prev, Dead(), *e.members[e.self.Key()])}
	default:
		return nil
	}
}

// refuteSelf writes the bumped self-incarnation into the member table and
// schedules it for dissemination, so the refutation actually propagates.
func (e *Engine) refuteSelf() {
	m := &Member{Peer: e.self, Status: Alive(e.incarnation), ProtocolPeriod: e.protocolPd}
	e.members[e.self.Key()] = m
	e.gossip.upsert(*m)
}

func (e *Engine) processOtherGossip(incoming Member) []Directive {
	if _, known := e.members[incoming.Peer.Key()]; known {
		mr := e.mark(incoming.Peer, incoming.Status)
		if mr.Kind == MarkApplied && mr.HadPrior && mr.Previous.Kind != mr.Current.Kind {
			return []Directive{statusChanged(mr.Previous, mr.Current, *e.members[incoming.Peer.Key()])}
		}
		return nil
	}
	e.addMember(incoming.Peer, incoming.Status)
	return []Directive{connectDirective(incoming.Peer)}
}

// --- on_ping (spec §4.5) ---

// OnPing processes an incoming ping's piggybacked gossip and replies with an
// Ack carrying our own fresh gossip payload. sender/senderIncarnation is the
// pinging peer's true identity, folded into the member table via
// observePeer so its generation tag reaches us even absent any gossip
// mentioning it (spec §3 "Node").
func (e *Engine) OnPing(sender Node, senderIncarnation Incarnation, payload GossipPayload) []Directive {
	dirs := e.processGossipPayload(payload)
	if sender.Key() != e.self.Key() {
		e.observePeer(sender, senderIncarnation)
	}
	ack := PingResponse{
		Kind:        PingAck,
		Target:      e.self,
		Incarnation: e.incarnation,
		Payload:     e.MakeGossipPayload(nil),
	}
	return append(dirs, replyDirective(ack))
}

// --- on_ping_request (spec §4.5) ---

// OnPingRequest asks us to relay a ping to target on replyTo's behalf.
// replyToIncarnation is replyTo's own reported incarnation, folded into the
// member table the same way OnPing folds in the direct pinger's identity.
func (e *Engine) OnPingRequest(target, replyTo Node, replyToIncarnation Incarnation, payload GossipPayload) []Directive {
	dirs := e.processGossipPayload(payload)
	if replyTo.Key() != e.self.Key() {
		e.observePeer(replyTo, replyToIncarnation)
	}
	if target.Key() == e.self.Key() {
		return dirs // Ignore: a peer asked us to ping ourselves.
	}
	if _, ok := e.members[target.Key()]; !ok {
		e.addMember(target, Alive(0))
	}
	timeout := e.dynamicPingTimeout()
	d := sendPingRequest(target, e.self, timeout)
	d.PingReqOrigin = replyTo
	return append(dirs, d)
}

// --- on_ping_response / on_ping_request_response (spec §4.5, §4.5.2) ---

// OnPingResponse processes the outcome of a direct probe we issued.
func (e *Engine) OnPingResponse(result PingResponse, pingedPeer Node) (PingRequestResponseOutcome, []Directive) {
	return e.handleProbeOutcome(result, pingedPeer, LHMFailedProbe)
}

// OnPingRequestResponse processes the outcome of an indirect probe relayed
// through another peer.
func (e *Engine) OnPingRequestResponse(result PingResponse, pingedPeer Node) (PingRequestResponseOutcome, []Directive) {
	return e.handleProbeOutcome(result, pingedPeer, LHMProbeWithMissedNack)
}

func (e *Engine) handleProbeOutcome(result PingResponse, pingedPeer Node, timeoutEvent LHMEvent) (PingRequestResponseOutcome, []Directive) {
	member, known := e.members[pingedPeer.Key()]
	if !known {
		return PingRequestResponseOutcome{Kind: OutcomeUnknownMember}, nil
	}

	switch result.Kind {
	case PingTimeout, PingError:
		e.lifeguard.apply(timeoutEvent)
		switch member.Status.Kind {
		case StatusAlive, StatusSuspect:
			mr := e.mark(pingedPeer, Suspect(member.Status.Incarnation, e.self))
			if mr.Kind == MarkIgnoredDueToOlderStatus {
				return PingRequestResponseOutcome{Kind: OutcomeIgnoredDueToOlderStatus, Previous: mr.Previous}, nil
			}
			var dirs []Directive
			if mr.Previous.Kind != mr.Current.Kind {
				dirs = append(dirs, statusChanged(mr.Previous, mr.Current, *e.members[pingedPeer.Key()]))
			}
			return PingRequestResponseOutcome{Kind: OutcomeNewlySuspect, Previous: mr.Previous}, dirs
		case StatusUnreachable:
			return PingRequestResponseOutcome{Kind: OutcomeAlreadyUnreachable}, nil
		default: // StatusDead
			return PingRequestResponseOutcome{Kind: OutcomeAlreadyDead}, nil
		}

	case PingAck:
		e.lifeguard.apply(LHMSuccessfulProbe)
		mr := e.mark(pingedPeer, Alive(result.Incarnation))
		dirs := e.processGossipPayload(result.Payload)
		if mr.Kind == MarkApplied && mr.HadPrior && mr.Previous.Kind != mr.Current.Kind {
			dirs = append(dirs, statusChanged(mr.Previous, mr.Current, *e.members[pingedPeer.Key()]))
		}
		return PingRequestResponseOutcome{Kind: OutcomeAlive, Previous: mr.Previous}, dirs

	default: // PingNack
		return PingRequestResponseOutcome{Kind: OutcomeNackReceived}, nil
	}
}

// --- on_periodic_tick (spec §4.5.3) ---

// OnPeriodicTick advances one protocol period: it issues the next probe (if
// any target exists), expires timed-out Suspect members, and increments the
// protocol period counter.
func (e *Engine) OnPeriodicTick() []Directive {
	var dirs []Directive

	if target, ok := e.scheduler.next(); ok {
		dirs = append(dirs, sendPing(target, e.dynamicPingTimeout()))
	}

	now := e.cfg.Clock.NowNanos()
	for key, m := range e.members {
		if m.Status.Kind != StatusSuspect {
			continue
		}
		timeout := e.lifeguard.suspicionTimeoutNanos(len(m.Status.SuspectedBy))
		if now-m.SuspicionStartedAtNanos <= timeout {
			continue
		}
		next := Unreachable(m.Status.Incarnation)
		if e.cfg.DisableUnreachablePhase {
			next = Dead()
		}
		mr := e.mark(m.Peer, next)
		if mr.Kind == MarkApplied && mr.Previous.Kind != mr.Current.Kind {
			dirs = append(dirs, statusChanged(mr.Previous, mr.Current, *e.members[key]))
		}
	}

	e.protocolPd++
	return dirs
}

func (e *Engine) dynamicPingTimeout() time.Duration {
	return time.Duration(e.lifeguard.dynamicPingTimeout(int64(e.cfg.PingTimeout)))
}

// --- ping-request peer selection (spec §4.5.4) ---

// MembersToPingRequest returns a uniformly-random sample of
// IndirectProbeCount members that are neither target nor self and are
// currently Alive or Suspect.
func (e *Engine) MembersToPingRequest(target Node) []Node {
	var candidates []Node
	for key, m := range e.members {
		if key == target.Key() || key == e.self.Key() {
			continue
		}
		if m.Status.Kind == StatusAlive || m.Status.Kind == StatusSuspect {
			candidates = append(candidates, m.Peer)
		}
	}
	e.cfg.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	k := e.cfg.IndirectProbeCount
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}
