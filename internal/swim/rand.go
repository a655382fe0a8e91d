package swim

import "math/rand"

// RandSource is the narrow randomness contract the engine consumes. Spec §9
// calls out two nondeterministic operations — probe-list insertion index and
// indirect-probe peer sampling — and asks that both be injectable so tests
// stay deterministic.
type RandSource interface {
	// Intn returns a pseudo-random number in [0, n). n is always > 0.
	Intn(n int) int
	// Shuffle randomizes the order of a slice of length n using swap.
	Shuffle(n int, swap func(i, j int))
}

// NewSeededRand wraps math/rand with a fixed seed, matching the "seeded
// random source" nondeterminism note in spec §9.
func NewSeededRand(seed int64) RandSource {
	return mathRand{r: rand.New(rand.NewSource(seed))}
}

type mathRand struct {
	r *rand.Rand
}

func (m mathRand) Intn(n int) int { return m.r.Intn(n) }

func (m mathRand) Shuffle(n int, swap func(i, j int)) { m.r.Shuffle(n, swap) }
