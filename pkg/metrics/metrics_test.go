package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// promauto registers every metric against the global default registry, so a
// single NewMetrics() call is shared across assertions here rather than
// constructing a second instance, which would panic on duplicate
// registration.
func TestMetrics_RecordersAndHandler(t *testing.T) {
	m := NewMetrics()
	assert.NotPanics(t, func() {
		m.RecordDirective("send_ping")
		m.RecordStatusTransition("alive", "suspect")
		m.RecordPingRTT(15 * time.Millisecond)
		m.SetProtocolPeriod(42)
		m.SetLocalHealthMultiplier(3)
		m.SetProbeListSize(10)
		m.SetGossipBufferDepth(2)
		m.SetMemberCount(11)
		m.RecordTransportError("timeout")
	})
	assert.NotNil(t, m.Handler())
}
