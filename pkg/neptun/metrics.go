package neptun

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricKey names one counter tracked per peer.
type MetricKey int

const (
	MetricPacketsSent MetricKey = iota
	MetricPacketsReceived
	MetricPacketsAcked
	MetricPacketsDropped
	MetricReliableMessagesSent
	MetricReliableMessagesDelivered
	MetricReliableMessagesRetransmitted
	MetricUnreliableMessagesSent
	MetricUnreliableMessagesDelivered
	MetricUnreliableMessagesDiscarded
)

func (k MetricKey) String() string {
	switch k {
	case MetricPacketsSent:
		return "packets_sent"
	case MetricPacketsReceived:
		return "packets_received"
	case MetricPacketsAcked:
		return "packets_acked"
	case MetricPacketsDropped:
		return "packets_dropped"
	case MetricReliableMessagesSent:
		return "reliable_messages_sent"
	case MetricReliableMessagesDelivered:
		return "reliable_messages_delivered"
	case MetricReliableMessagesRetransmitted:
		return "reliable_messages_retransmitted"
	case MetricUnreliableMessagesSent:
		return "unreliable_messages_sent"
	case MetricUnreliableMessagesDelivered:
		return "unreliable_messages_delivered"
	case MetricUnreliableMessagesDiscarded:
		return "unreliable_messages_discarded"
	default:
		return "unknown"
	}
}

var allMetricKeys = []MetricKey{
	MetricPacketsSent, MetricPacketsReceived, MetricPacketsAcked, MetricPacketsDropped,
	MetricReliableMessagesSent, MetricReliableMessagesDelivered, MetricReliableMessagesRetransmitted,
	MetricUnreliableMessagesSent, MetricUnreliableMessagesDelivered, MetricUnreliableMessagesDiscarded,
}

// PeerMetricsVec is the shared Prometheus registration for per-peer
// counters, labeled by peer address and metric key. One instance is meant
// to be created per process and handed to every Peer.
type PeerMetricsVec struct {
	counter *prometheus.CounterVec
}

// NewPeerMetricsVec registers neptun_peer_events_total with the given
// registerer. Pass prometheus.DefaultRegisterer for the global registry, or
// a fresh prometheus.NewRegistry() in tests to avoid collisions.
func NewPeerMetricsVec(reg prometheus.Registerer) *PeerMetricsVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neptun_peer_events_total",
		Help: "Count of per-peer protocol events, labeled by peer address and event kind.",
	}, []string{"peer", "event"})
	reg.MustRegister(counter)
	return &PeerMetricsVec{counter: counter}
}

// ForPeer returns a Metrics handle scoped to one peer address.
func (v *PeerMetricsVec) ForPeer(addr string) *Metrics {
	return &Metrics{vec: v, addr: addr, counts: make(map[MetricKey]uint64)}
}

// Metrics accumulates counts for a single peer, mirroring them into the
// shared PeerMetricsVec and keeping a local snapshot for String().
type Metrics struct {
	vec    *PeerMetricsVec
	addr   string
	counts map[MetricKey]uint64
}

// Inc records one occurrence of key.
func (m *Metrics) Inc(key MetricKey) {
	m.IncBy(key, 1)
}

// IncBy records n occurrences of key.
func (m *Metrics) IncBy(key MetricKey, n uint64) {
	m.counts[key] += n
	if m.vec != nil {
		m.vec.counter.WithLabelValues(m.addr, key.String()).Add(float64(n))
	}
}

// Get returns the local snapshot count for key.
func (m *Metrics) Get(key MetricKey) uint64 {
	return m.counts[key]
}

// String renders every tracked counter for debugging and log lines.
func (m *Metrics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "metrics[%s]{", m.addr)
	for i, key := range allMetricKeys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", key, m.counts[key])
	}
	b.WriteString("}")
	return b.String()
}
