// Package swim implements the core SWIM failure-detector state machine
// augmented with the Lifeguard local-health extensions. The engine is a
// pure, single-threaded state machine: it performs no I/O, reads no wall
// clock directly, and spawns no goroutines. Callers drive it by feeding
// events (ticks, pings, ping-requests, probe responses, gossip payloads)
// and applying the directives it returns.
package swim

import "fmt"

// Node is the opaque identity of a peer: an address plus a generation tag
// that changes across restarts so a rejoining process is never confused
// with its own prior incarnation of membership state.
type Node struct {
	Addr string
	Gen  string
}

func (n Node) String() string {
	return fmt.Sprintf("%s/%s", n.Addr, n.Gen)
}

// Key returns the identity a Node is compared and hashed by: its address
// alone (spec §3 "Node — ... equality and hashing defined by its address").
// Every map keyed on node identity (member table, gossip index, suspector
// sets) uses Key(), not the Node value itself, so two Node values for the
// same address but different generations are never treated as distinct
// entries.
func (n Node) Key() string {
	return n.Addr
}

// Incarnation is a per-node monotonically non-decreasing counter, owned and
// incremented only by the node it describes.
type Incarnation uint64

// StatusKind is the tag of a Status variant.
type StatusKind uint8

const (
	StatusAlive StatusKind = iota
	StatusSuspect
	StatusUnreachable
	StatusDead
)

func (k StatusKind) String() string {
	switch k {
	case StatusAlive:
		return "alive"
	case StatusSuspect:
		return "suspect"
	case StatusUnreachable:
		return "unreachable"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// rank orders statuses at equal incarnation: Alive < Suspect < Unreachable < Dead.
func (k StatusKind) rank() int {
	switch k {
	case StatusAlive:
		return 0
	case StatusSuspect:
		return 1
	case StatusUnreachable:
		return 2
	case StatusDead:
		return 3
	default:
		return -1
	}
}

// Status is the tagged status of a member. SuspectedBy is only meaningful
// when Kind == StatusSuspect; it records which peers (by Key()) have
// independently suspected the member in the current incarnation.
type Status struct {
	Kind        StatusKind
	Incarnation Incarnation
	SuspectedBy map[string]struct{}
}

// Alive builds an Alive status.
func Alive(inc Incarnation) Status {
	return Status{Kind: StatusAlive, Incarnation: inc}
}

// Suspect builds a Suspect status with a (possibly empty) set of suspectors.
func Suspect(inc Incarnation, by ...Node) Status {
	set := make(map[string]struct{}, len(by))
	for _, n := range by {
		set[n.Key()] = struct{}{}
	}
	return Status{Kind: StatusSuspect, Incarnation: inc, SuspectedBy: set}
}

// Unreachable builds an Unreachable status.
func Unreachable(inc Incarnation) Status {
	return Status{Kind: StatusUnreachable, Incarnation: inc}
}

// Dead is the terminal status; no incarnation is carried.
func Dead() Status {
	return Status{Kind: StatusDead}
}

func (s Status) String() string {
	switch s.Kind {
	case StatusSuspect:
		return fmt.Sprintf("suspect(inc=%d, by=%d)", s.Incarnation, len(s.SuspectedBy))
	case StatusDead:
		return "dead"
	default:
		return fmt.Sprintf("%s(inc=%d)", s.Kind, s.Incarnation)
	}
}

// supersedes reports whether status a supersedes status b, per spec §3:
// different incarnations order by incarnation; equal incarnations order by
// rank; equal incarnation Suspect-vs-Suspect orders by strict superset of
// suspectors.
//
// Dead is absorbing regardless of incarnation: a Dead status always
// supersedes any non-Dead status, and nothing ever supersedes Dead. Dead
// carries no meaningful incarnation (§3 "Dead — terminal; once dead, a
// member must never transition to any other status"), so the incarnation
// comparison that governs every other pair does not apply when either side
// is Dead.
func supersedes(a, b Status) bool {
	if a.Kind == StatusDead {
		return b.Kind != StatusDead
	}
	if b.Kind == StatusDead {
		return false
	}
	if a.Incarnation != b.Incarnation {
		return a.Incarnation > b.Incarnation
	}
	if a.Kind != b.Kind {
		return a.Kind.rank() > b.Kind.rank()
	}
	if a.Kind == StatusSuspect {
		return isStrictSuperset(a.SuspectedBy, b.SuspectedBy)
	}
	return false
}

func isStrictSuperset(a, b map[string]struct{}) bool {
	if len(a) <= len(b) {
		return false
	}
	for n := range b {
		if _, ok := a[n]; !ok {
			return false
		}
	}
	return true
}

// Member is a record in the member table.
type Member struct {
	Peer Node
	Status
	// ProtocolPeriod is the probe-round index at which the current status
	// was first established.
	ProtocolPeriod uint64
	// SuspicionStartedAtNanos is set iff Status.Kind == StatusSuspect.
	SuspicionStartedAtNanos int64
	hasSuspicionStart       bool
}

// Gossip is a pending piece of membership news, decaying with each emission.
type Gossip struct {
	Member       Member
	GossipCount  int
}
