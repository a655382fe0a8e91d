package swim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifeguard_LHMSaturates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLocalHealthMultiplier = 2
	l := newLifeguardController(cfg)

	l.apply(LHMFailedProbe)
	l.apply(LHMFailedProbe)
	l.apply(LHMFailedProbe) // should not exceed max
	assert.Equal(t, 2, l.lhm)

	l.apply(LHMSuccessfulProbe)
	l.apply(LHMSuccessfulProbe)
	l.apply(LHMSuccessfulProbe) // should not go below 0
	assert.Equal(t, 0, l.lhm)
}

func TestLifeguard_SuspicionTimeout_ScenarioE(t *testing.T) {
	// Scenario E: min=1s, max=5s, K=3, C=1 -> timeout = max(1s, 3s) = 3s.
	cfg := DefaultConfig()
	cfg.MaxIndependentSuspicions = 3
	cfg.SuspicionTimeoutMin = 1 * time.Second
	cfg.SuspicionTimeoutMax = 5 * time.Second
	l := newLifeguardController(cfg)

	got := time.Duration(l.suspicionTimeoutNanos(1))
	assert.InDelta(t, 3*time.Second, got, float64(5*time.Millisecond))
}

func TestLifeguard_SuspicionTimeout_MoreSuspectorsDecaysFaster(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIndependentSuspicions = 3
	cfg.SuspicionTimeoutMin = 1 * time.Second
	cfg.SuspicionTimeoutMax = 5 * time.Second
	l := newLifeguardController(cfg)

	t1 := l.suspicionTimeoutNanos(1)
	t3 := l.suspicionTimeoutNanos(3)
	assert.Greater(t, t1, t3)
	assert.GreaterOrEqual(t, t3, int64(cfg.SuspicionTimeoutMin))
}
