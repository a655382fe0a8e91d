package swim

// Snapshot is a read-only, race-free copy of the member table for use by the
// admin API and tests, so callers never reach into Engine internals (spec §5
// "External code MUST NOT read or mutate them directly").
type Snapshot struct {
	Self             Node
	Incarnation      Incarnation
	ProtocolPeriod   uint64
	LHM              int
	Members          []Member
	ProbeListSize    int
	GossipBufferSize int
}

// Snapshot captures the engine's current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Self:             e.self,
		Incarnation:      e.incarnation,
		ProtocolPeriod:   e.protocolPd,
		LHM:              e.lifeguard.lhm,
		Members:          e.AllMembers(),
		ProbeListSize:    e.scheduler.size(),
		GossipBufferSize: e.gossip.Len(),
	}
}

// Join is an operability hook (not part of spec.md's operation set) used by
// the admin API and static seed lists to introduce a peer as Alive{0}
// without waiting for gossip to carry the news. It reports whether the peer
// was previously unknown.
func (e *Engine) Join(peer Node) bool {
	if peer.Key() == e.self.Key() {
		return false
	}
	_, wasNew := e.markOrAdd(peer, Alive(0))
	return wasNew
}

// SetMaxLocalHealthMultiplier adjusts the Lifeguard LHM ceiling at runtime,
// an operability hook for the admin API's config-update endpoint. Lowering
// it below the current LHM clamps the LHM down immediately.
func (e *Engine) SetMaxLocalHealthMultiplier(n int) {
	e.cfg.MaxLocalHealthMultiplier = n
	e.lifeguard.maxLHM = n
	if e.lifeguard.lhm > n {
		e.lifeguard.lhm = n
	}
}

// SetMaxIndependentSuspicions adjusts K in the Lifeguard suspicion-timeout
// decay formula (spec §4.2) at runtime.
func (e *Engine) SetMaxIndependentSuspicions(n int) {
	e.cfg.MaxIndependentSuspicions = n
	e.lifeguard.maxIndependentSuspicions = n
}

// SetDisableUnreachablePhase toggles whether expired Suspect members
// transition to Unreachable or straight to Dead (spec §9 open question).
func (e *Engine) SetDisableUnreachablePhase(disable bool) {
	e.cfg.DisableUnreachablePhase = disable
}

// ForceSuspect is an operability hook (not part of spec.md's operation set)
// used by the admin API to inject a suspicion without
// waiting for a real missed probe. It goes through the normal mark() path,
// so every invariant (supersession, Dead absorption, cap on SuspectedBy)
// still applies.
func (e *Engine) ForceSuspect(peer Node) (MarkResult, bool) {
	m, ok := e.members[peer.Key()]
	if !ok {
		return MarkResult{}, false
	}
	// Mark using the table's own Node value, not the caller-supplied one: a
	// caller like the admin API only has the address (e.g. dto.ForceSuspectRequest
	// carries no Gen), and marking with that zero-Gen stub would silently
	// discard a real generation tag already on file for this peer.
	return e.mark(m.Peer, Suspect(m.Status.Incarnation, e.self)), true
}
