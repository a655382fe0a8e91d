package swim

import "time"

// fixedClock lets tests control "now" precisely.
type fixedClock struct{ nanos int64 }

func (c *fixedClock) NowNanos() int64 { return c.nanos }

func (c *fixedClock) advance(d time.Duration) { c.nanos += int64(d) }

// sequenceRand deterministically drives Intn/Shuffle for reproducible tests.
// Intn always returns 0 (new entries insert at the front); Shuffle is a
// no-op, so scheduler order stays exactly as inserted.
type sequenceRand struct{}

func (sequenceRand) Intn(n int) int { return 0 }

func (sequenceRand) Shuffle(n int, swap func(i, j int)) {}

func testConfig(clock *fixedClock) Config {
	cfg := DefaultConfig()
	cfg.Clock = clock
	cfg.Rand = sequenceRand{}
	return cfg
}

func node(addr string) Node { return Node{Addr: addr, Gen: "g"} }
