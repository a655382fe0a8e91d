package swim

import "math"

// LHMEvent tags the events that adjust the Local Health Multiplier
// (spec §4.2).
type LHMEvent uint8

const (
	LHMSuccessfulProbe LHMEvent = iota
	LHMFailedProbe
	LHMProbeWithMissedNack
	LHMRefutingSuspectMessageAboutSelf
)

// lifeguardController owns the saturating Local Health Multiplier and
// computes the Lifeguard-decayed suspicion timeout (spec §4.2).
type lifeguardController struct {
	lhm                      int
	maxLHM                   int
	maxIndependentSuspicions int
	suspicionTimeoutMin      float64 // nanoseconds
	suspicionTimeoutMax      float64 // nanoseconds
}

func newLifeguardController(cfg Config) *lifeguardController {
	return &lifeguardController{
		maxLHM:                   cfg.MaxLocalHealthMultiplier,
		maxIndependentSuspicions: cfg.MaxIndependentSuspicions,
		suspicionTimeoutMin:      float64(cfg.SuspicionTimeoutMin.Nanoseconds()),
		suspicionTimeoutMax:      float64(cfg.SuspicionTimeoutMax.Nanoseconds()),
	}
}

// apply mutates the LHM for the given event, saturating at [0, maxLHM].
func (l *lifeguardController) apply(ev LHMEvent) {
	switch ev {
	case LHMSuccessfulProbe:
		if l.lhm > 0 {
			l.lhm--
		}
	case LHMFailedProbe, LHMProbeWithMissedNack, LHMRefutingSuspectMessageAboutSelf:
		if l.lhm < l.maxLHM {
			l.lhm++
		}
	}
}

// dynamicProbeInterval scales the base interval by (1 + lhm).
func (l *lifeguardController) dynamicProbeInterval(base int64) int64 {
	return base * int64(1+l.lhm)
}

// dynamicPingTimeout scales the base timeout by (1 + lhm).
func (l *lifeguardController) dynamicPingTimeout(base int64) int64 {
	return base * int64(1+l.lhm)
}

// suspicionTimeoutNanos implements the Lifeguard §IV-B decay formula:
//
//	timeout = max(min_t, max_t - (max_t - min_t) * log2(C+1) / log2(K+1))
//
// where C is the count of independent suspicions received about the member
// and K = maxIndependentSuspicions.
func (l *lifeguardController) suspicionTimeoutNanos(independentSuspicions int) int64 {
	k := float64(l.maxIndependentSuspicions)
	c := float64(independentSuspicions)
	decayed := l.suspicionTimeoutMax - (l.suspicionTimeoutMax-l.suspicionTimeoutMin)*math.Log2(c+1)/math.Log2(k+1)
	if decayed < l.suspicionTimeoutMin {
		decayed = l.suspicionTimeoutMin
	}
	return int64(decayed)
}
