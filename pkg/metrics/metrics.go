// Package metrics exposes Prometheus instrumentation for a swimguard agent.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric a swimguard agent records.
type Metrics struct {
	directivesTotal      *prometheus.CounterVec
	statusTransitions    *prometheus.CounterVec
	pingRTT              prometheus.Histogram
	protocolPeriod       prometheus.Gauge
	localHealthMultiplier prometheus.Gauge
	probeListSize        prometheus.Gauge
	gossipBufferDepth    prometheus.Gauge
	memberCount          prometheus.Gauge
	transportErrors      *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		directivesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swimguard_directives_total",
			Help: "Total directives emitted by the protocol engine, by kind",
		}, []string{"kind"}),

		statusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swimguard_status_transitions_total",
			Help: "Total member status transitions, by from and to status",
		}, []string{"from", "to"}),

		pingRTT: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "swimguard_ping_rtt_seconds",
			Help:    "Round-trip time of successful direct probes",
			Buckets: prometheus.DefBuckets,
		}),

		protocolPeriod: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swimguard_protocol_period",
			Help: "Current protocol period (probe round index)",
		}),

		localHealthMultiplier: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swimguard_local_health_multiplier",
			Help: "Current Lifeguard local health multiplier",
		}),

		probeListSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swimguard_probe_list_size",
			Help: "Number of members in the round-robin probe list",
		}),

		gossipBufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swimguard_gossip_buffer_depth",
			Help: "Number of pending entries in the gossip decay buffer",
		}),

		memberCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swimguard_member_count",
			Help: "Total known members, including self",
		}),

		transportErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swimguard_transport_errors_total",
			Help: "Transport send failures, by reason",
		}, []string{"reason"}),
	}
}

// RecordDirective increments the directive counter for kind.
func (m *Metrics) RecordDirective(kind string) {
	m.directivesTotal.WithLabelValues(kind).Inc()
}

// RecordStatusTransition increments the transition counter for from->to.
func (m *Metrics) RecordStatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordPingRTT observes a successful probe's round-trip time.
func (m *Metrics) RecordPingRTT(d time.Duration) {
	m.pingRTT.Observe(d.Seconds())
}

// SetProtocolPeriod sets the current protocol period gauge.
func (m *Metrics) SetProtocolPeriod(period uint64) {
	m.protocolPeriod.Set(float64(period))
}

// SetLocalHealthMultiplier sets the current LHM gauge.
func (m *Metrics) SetLocalHealthMultiplier(lhm int) {
	m.localHealthMultiplier.Set(float64(lhm))
}

// SetProbeListSize sets the probe list size gauge.
func (m *Metrics) SetProbeListSize(n int) {
	m.probeListSize.Set(float64(n))
}

// SetGossipBufferDepth sets the gossip buffer depth gauge.
func (m *Metrics) SetGossipBufferDepth(n int) {
	m.gossipBufferDepth.Set(float64(n))
}

// SetMemberCount sets the member count gauge.
func (m *Metrics) SetMemberCount(n int) {
	m.memberCount.Set(float64(n))
}

// RecordTransportError increments the transport error counter for reason.
func (m *Metrics) RecordTransportError(reason string) {
	m.transportErrors.WithLabelValues(reason).Inc()
}

// Handler returns the Prometheus scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
