package swim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, clock *fixedClock) (*Engine, Node) {
	t.Helper()
	self := node("self")
	e := NewEngine(self, testConfig(clock))
	return e, self
}

// Invariant 1 & 2: local node present as Alive{incarnation}, absent from the
// probe list.
func TestEngine_SelfInvariants(t *testing.T) {
	clock := &fixedClock{}
	e, self := newTestEngine(t, clock)

	status, ok := e.StatusOf(self)
	require.True(t, ok)
	assert.Equal(t, Alive(0), status)
	assert.False(t, e.scheduler.contains(self))

	b := node("b")
	e.addMember(b, Alive(0))
	assert.False(t, e.scheduler.contains(self))
}

// Scenario A — refutation bumps incarnation.
func TestEngine_ScenarioA_RefutationBumpsIncarnation(t *testing.T) {
	clock := &fixedClock{}
	e, self := newTestEngine(t, clock)
	b := node("b")
	e.addMember(b, Alive(0))

	payload := GossipPayload{
		Kind: GossipPayloadMembership,
		Members: []Member{
			{Peer: self, Status: Suspect(0, b)},
		},
	}
	e.OnPing(b, 0, payload)

	assert.Equal(t, Incarnation(1), e.Incarnation())
	assert.Equal(t, 1, e.lifeguard.lhm)

	drained := e.gossip.drain(10, e.cfg.MaxGossipCountPerMessage)
	var sawSelfAlive1 bool
	for _, g := range drained {
		if g.Member.Peer == self && g.Member.Status.Kind == StatusAlive && g.Member.Incarnation == 1 {
			sawSelfAlive1 = true
		}
	}
	assert.True(t, sawSelfAlive1)
}

// Scenario B — suspect supersession and merge.
func TestEngine_ScenarioB_SuspectSupersessionAndMerge(t *testing.T) {
	clock := &fixedClock{nanos: 1000}
	e, _ := newTestEngine(t, clock)
	c := node("c")
	x := node("x")
	y := node("y")
	e.addMember(c, Alive(5))

	mr := e.mark(c, Suspect(5, x))
	require.Equal(t, MarkApplied, mr.Kind)
	assert.Equal(t, Alive(5), mr.Previous)
	assert.Equal(t, StatusSuspect, mr.Current.Kind)
	cMember, _ := e.Get(c)
	assert.Equal(t, int64(1000), cMember.SuspicionStartedAtNanos)

	clock.advance(500)
	mr2 := e.mark(c, Suspect(5, y))
	require.Equal(t, MarkApplied, mr2.Kind)
	assert.Len(t, mr2.Current.SuspectedBy, 2)
	_, hasX := mr2.Current.SuspectedBy[x.Key()]
	_, hasY := mr2.Current.SuspectedBy[y.Key()]
	assert.True(t, hasX)
	assert.True(t, hasY)

	cMember2, _ := e.Get(c)
	assert.Equal(t, int64(1000), cMember2.SuspicionStartedAtNanos, "timer must not restart on merge")
}

// Scenario C — stale alive rejected.
func TestEngine_ScenarioC_StaleAliveRejected(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	d := node("d")
	x, y, z := node("x"), node("y"), node("z")
	e.addMember(d, Suspect(7, x, y, z))

	mr := e.mark(d, Alive(6))
	assert.Equal(t, MarkIgnoredDueToOlderStatus, mr.Kind)

	dMember, _ := e.Get(d)
	assert.Equal(t, StatusSuspect, dMember.Status.Kind)
	assert.Equal(t, Incarnation(7), dMember.Status.Incarnation)
}

// Scenario E — suspicion timeout transitions to Unreachable.
func TestEngine_ScenarioE_SuspicionTimeoutToUnreachable(t *testing.T) {
	clock := &fixedClock{}
	cfg := testConfig(clock)
	cfg.MaxIndependentSuspicions = 3
	cfg.SuspicionTimeoutMin = 1 * time.Second
	cfg.SuspicionTimeoutMax = 5 * time.Second
	e := NewEngine(node("self"), cfg)

	eNode := node("e")
	e.addMember(eNode, Alive(4))
	e.mark(eNode, Suspect(4, e.self))

	clock.advance(2500 * time.Millisecond)
	e.OnPeriodicTick()
	m, _ := e.Get(eNode)
	assert.Equal(t, StatusSuspect, m.Status.Kind, "2.5s < 3s decayed timeout: no transition yet")

	clock.advance(501 * time.Millisecond) // now at 3001ms
	dirs := e.OnPeriodicTick()
	m2, _ := e.Get(eNode)
	assert.Equal(t, StatusUnreachable, m2.Status.Kind)

	var sawChange bool
	for _, d := range dirs {
		if d.Kind == DirectiveMemberStatusChanged && d.Member.Peer == eNode {
			assert.Equal(t, StatusSuspect, d.From.Kind)
			assert.Equal(t, StatusUnreachable, d.To.Kind)
			sawChange = true
		}
	}
	assert.True(t, sawChange)
}

// Scenario F — Dead is absorbing.
func TestEngine_ScenarioF_DeadIsAbsorbing(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	f := node("f")
	e.addMember(f, Alive(1))
	e.mark(f, Dead())

	mr := e.mark(f, Alive(99))
	assert.Equal(t, MarkIgnoredDueToOlderStatus, mr.Kind)

	fMember, _ := e.Get(f)
	assert.Equal(t, StatusDead, fMember.Status.Kind)
	assert.False(t, e.scheduler.contains(f))
}

func TestEngine_MarkDead_RemovesFromProbeList(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	g := node("g")
	e.addMember(g, Alive(0))
	require.True(t, e.scheduler.contains(g))

	e.mark(g, Dead())
	assert.False(t, e.scheduler.contains(g))
	_, stillInTable := e.Get(g)
	assert.True(t, stillInTable, "dead members remain in the table for continued gossip")
}

func TestEngine_SuspicionMergeIdempotence(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	h := node("h")
	x := node("x")
	e.addMember(h, Alive(0))

	e.mark(h, Suspect(0, x))
	first, _ := e.Get(h)

	e.mark(h, Suspect(0, x))
	second, _ := e.Get(h)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.SuspicionStartedAtNanos, second.SuspicionStartedAtNanos)
}

func TestEngine_OnPingRequest_SelfTargetIsIgnored(t *testing.T) {
	clock := &fixedClock{}
	e, self := newTestEngine(t, clock)
	dirs := e.OnPingRequest(self, node("origin"), 0, GossipPayload{})
	for _, d := range dirs {
		assert.NotEqual(t, DirectiveSendPingRequest, d.Kind)
	}
}

func TestEngine_OnPingRequest_UnknownTargetIsAddedAlive(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	target := node("unknown")
	origin := node("origin")

	dirs := e.OnPingRequest(target, origin, 0, GossipPayload{})

	require.Len(t, dirs, 1)
	assert.Equal(t, DirectiveSendPingRequest, dirs[0].Kind)
	assert.Equal(t, target, dirs[0].Target)
	assert.Equal(t, origin, dirs[0].PingReqOrigin)

	m, ok := e.Get(target)
	require.True(t, ok)
	assert.Equal(t, Alive(0), m.Status)
}

func TestEngine_OnGossipPayload_UnknownMemberEmitsConnect(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	newPeer := node("new")

	dirs := e.OnPing(node("pinger"), 0, GossipPayload{
		Kind:    GossipPayloadMembership,
		Members: []Member{{Peer: newPeer, Status: Alive(0)}},
	})

	var sawConnect bool
	for _, d := range dirs {
		if d.Kind == DirectiveConnect && d.ConnectNode == newPeer {
			sawConnect = true
		}
	}
	assert.True(t, sawConnect)
	assert.True(t, e.IsMember(newPeer))
}

func TestEngine_MakeGossipPayload_BuddySystemAlwaysIncludesSuspectTarget(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	target := node("target")
	e.addMember(target, Alive(0))
	e.mark(target, Suspect(0, node("accuser")))

	// Drain the buffer dry so the only way the target can still appear is
	// via the buddy-system path.
	for i := 0; i < e.cfg.MaxGossipCountPerMessage+1; i++ {
		e.gossip.drain(10, e.cfg.MaxGossipCountPerMessage)
	}

	payload := e.MakeGossipPayload(&target)
	require.Equal(t, GossipPayloadMembership, payload.Kind)
	require.NotEmpty(t, payload.Members)
	assert.Equal(t, target, payload.Members[0].Peer)
	assert.Equal(t, StatusSuspect, payload.Members[0].Status.Kind)
}

func TestEngine_GossipEntry_DecaysWithinBound(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	p := node("p")
	e.addMember(p, Alive(0))

	seen := 0
	for i := 0; i < e.cfg.MaxGossipCountPerMessage+3; i++ {
		payload := e.MakeGossipPayload(nil)
		for _, m := range payload.Members {
			if m.Peer == p {
				seen++
			}
		}
	}
	assert.LessOrEqual(t, seen, e.cfg.MaxGossipCountPerMessage)
}

func TestEngine_MembersToPingRequest_ExcludesSelfAndTarget(t *testing.T) {
	clock := &fixedClock{}
	e, self := newTestEngine(t, clock)
	target := node("target")
	others := []Node{node("a"), node("b"), node("c"), node("d")}
	e.addMember(target, Alive(0))
	for _, n := range others {
		e.addMember(n, Alive(0))
	}

	sample := e.MembersToPingRequest(target)
	assert.LessOrEqual(t, len(sample), e.cfg.IndirectProbeCount)
	for _, n := range sample {
		assert.NotEqual(t, target, n)
		assert.NotEqual(t, self, n)
	}
}

func TestEngine_OnPingResponse_TimeoutMarksSuspect(t *testing.T) {
	clock := &fixedClock{}
	e, self := newTestEngine(t, clock)
	p := node("p")
	e.addMember(p, Alive(3))

	outcome, dirs := e.OnPingResponse(PingResponse{Kind: PingTimeout}, p)
	assert.Equal(t, OutcomeNewlySuspect, outcome.Kind)
	assert.Equal(t, 1, e.lifeguard.lhm)

	m, _ := e.Get(p)
	assert.Equal(t, StatusSuspect, m.Status.Kind)
	_, suspectedBySelf := m.Status.SuspectedBy[self.Key()]
	assert.True(t, suspectedBySelf)

	var sawChange bool
	for _, d := range dirs {
		if d.Kind == DirectiveMemberStatusChanged {
			sawChange = true
		}
	}
	assert.True(t, sawChange)
}

func TestEngine_OnPingResponse_AckMarksAlive(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	p := node("p")
	e.addMember(p, Suspect(2, node("accuser")))

	outcome, _ := e.OnPingResponse(PingResponse{Kind: PingAck, Target: p, Incarnation: 3}, p)
	assert.Equal(t, OutcomeAlive, outcome.Kind)
	assert.Equal(t, 0, e.lifeguard.lhm)

	m, _ := e.Get(p)
	assert.Equal(t, Alive(3), m.Status)
}

func TestEngine_OnPingResponse_UnknownMember(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	outcome, dirs := e.OnPingResponse(PingResponse{Kind: PingTimeout}, node("ghost"))
	assert.Equal(t, OutcomeUnknownMember, outcome.Kind)
	assert.Empty(t, dirs)
}

func TestEngine_OnPeriodicTick_IncrementsProtocolPeriod(t *testing.T) {
	clock := &fixedClock{}
	e, _ := newTestEngine(t, clock)
	before := e.ProtocolPeriod()
	e.OnPeriodicTick()
	assert.Equal(t, before+1, e.ProtocolPeriod())
}
