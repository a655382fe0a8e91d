package swim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedIndexRand drives a scheduler's random source to a fixed index on every call.
type fixedIndexRand struct{ idx int }

func (r fixedIndexRand) Intn(n int) int { return r.idx }

func (r fixedIndexRand) Shuffle(n int, swap func(i, j int)) {}

func TestScheduler_RoundRobinCompleteness(t *testing.T) {
	s := newProbeScheduler(sequenceRand{})
	a, b, c := node("a"), node("b"), node("c")
	s.insert(a)
	s.insert(b)
	s.insert(c)

	seen := map[Node]int{}
	for i := 0; i < 3; i++ {
		n, ok := s.next()
		require.True(t, ok)
		seen[n]++
	}
	assert.Equal(t, 1, seen[a])
	assert.Equal(t, 1, seen[b])
	assert.Equal(t, 1, seen[c])
}

func TestScheduler_InsertionAdvancesCursor(t *testing.T) {
	// Scenario D: list [A,B,C], cursor at 1 (next = B). Insert N at index 0.
	// Expect list [N,A,B,C], cursor auto-advances to 2, next() still B.
	s := &probeScheduler{rnd: fixedIndexRand{idx: 0}}
	a, b, c, n := node("a"), node("b"), node("c"), node("n")
	s.list = []Node{a, b, c}
	s.idx = 1

	s.insert(n)

	require.Equal(t, []Node{n, a, b, c}, s.list)
	assert.Equal(t, 2, s.idx)

	next, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, b, next)
}

func TestScheduler_RemovalBeforeCursorDecrements(t *testing.T) {
	s := &probeScheduler{rnd: sequenceRand{}}
	a, b, c := node("a"), node("b"), node("c")
	s.list = []Node{a, b, c}
	s.idx = 2 // next = c

	s.remove(a) // removed before cursor

	assert.Equal(t, []Node{b, c}, s.list)
	assert.Equal(t, 1, s.idx)
	next, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, c, next)
}

func TestScheduler_EmptyListReturnsFalse(t *testing.T) {
	s := newProbeScheduler(sequenceRand{})
	_, ok := s.next()
	assert.False(t, ok)
}
