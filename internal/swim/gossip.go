package swim

import "container/heap"

// gossipBuffer is the priority queue of pending Gossip entries described in
// spec §4.4: a min-heap ordered by fewest-times-gossiped-first, with
// auxiliary uniqueness keyed by node (upserting for N first removes any
// existing entry for N). container/heap is the standard-library heap
// primitive; nothing in the retrieval pack supplies a priority-queue library,
// so this one component is built on the standard library (see DESIGN.md).
type gossipBuffer struct {
	items []*Gossip
	index map[string]int // node key -> position in items
}

func newGossipBuffer() *gossipBuffer {
	return &gossipBuffer{index: make(map[string]int)}
}

// upsert removes any existing entry for the member's node, then pushes a
// fresh entry with GossipCount reset to 0 (spec §4.1 step 6).
func (b *gossipBuffer) upsert(m Member) {
	b.removeNode(m.Peer)
	heap.Push(b, &Gossip{Member: m, GossipCount: 0})
}

func (b *gossipBuffer) removeNode(n Node) {
	if i, ok := b.index[n.Key()]; ok {
		heap.Remove(b, i)
	}
}

func (b *gossipBuffer) peekSuspect(n Node) (Member, bool) {
	if i, ok := b.index[n.Key()]; ok {
		m := b.items[i].Member
		if m.Status.Kind == StatusSuspect {
			return m, true
		}
	}
	return Member{}, false
}

// drain pops up to n lowest-count entries, incrementing each and re-inserting
// it unless it has reached maxCount (spec §4.4 steps 2-3).
func (b *gossipBuffer) drain(n, maxCount int) []Gossip {
	out := make([]Gossip, 0, n)
	for i := 0; i < n && b.Len() > 0; i++ {
		g := heap.Pop(b).(*Gossip)
		out = append(out, *g)
		g.GossipCount++
		if g.GossipCount < maxCount {
			heap.Push(b, g)
		}
	}
	return out
}

// heap.Interface implementation.

func (b *gossipBuffer) Len() int { return len(b.items) }

func (b *gossipBuffer) Less(i, j int) bool {
	return b.items[i].GossipCount < b.items[j].GossipCount
}

func (b *gossipBuffer) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.index[b.items[i].Member.Peer.Key()] = i
	b.index[b.items[j].Member.Peer.Key()] = j
}

func (b *gossipBuffer) Push(x interface{}) {
	g := x.(*Gossip)
	b.index[g.Member.Peer.Key()] = len(b.items)
	b.items = append(b.items, g)
}

func (b *gossipBuffer) Pop() interface{} {
	old := b.items
	n := len(old)
	g := old[n-1]
	old[n-1] = nil
	b.items = old[:n-1]
	delete(b.index, g.Member.Peer.Key())
	return g
}
