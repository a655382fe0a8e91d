package swim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupersedes_HigherIncarnationWins(t *testing.T) {
	assert.True(t, supersedes(Alive(2), Alive(1)))
	assert.False(t, supersedes(Alive(1), Alive(2)))
}

func TestSupersedes_RankAtEqualIncarnation(t *testing.T) {
	assert.True(t, supersedes(Suspect(5), Alive(5)))
	assert.True(t, supersedes(Unreachable(5), Suspect(5)))
	assert.False(t, supersedes(Alive(5), Suspect(5)))
}

func TestSupersedes_SuspectStrictSuperset(t *testing.T) {
	a := node("a")
	b := node("b")
	base := Suspect(5, a)
	bigger := Suspect(5, a, b)
	assert.True(t, supersedes(bigger, base))
	assert.False(t, supersedes(base, bigger))
	assert.False(t, supersedes(base, base)) // equal sets: neither supersedes
}

func TestSupersedes_DeadIsAbsorbing(t *testing.T) {
	assert.True(t, supersedes(Dead(), Alive(999)))
	assert.False(t, supersedes(Alive(999), Dead()))
	assert.False(t, supersedes(Dead(), Dead()))
}
