package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexochat"

var (
	// ConnectionState mirrors realtime.State as a number
	ConnectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "connection_state",
		Help:      "Current realtime connection state (0 idle, 1 connecting, 2 connected, 3 disconnected, 4 closed).",
	})

	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "reconnects_total",
		Help:      "Connection attempts made after the first one.",
	})

	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "frames_received_total",
		Help:      "Frames routed to a subscription handler.",
	}, []string{"routed"})

	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "live_subscriptions",
		Help:      "Subscriptions active on the current physical connection.",
	})

	PageFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pager",
		Name:      "fetches_total",
		Help:      "Page fetches by pager and outcome (applied, stale, failed).",
	}, []string{"pager", "outcome"})

	PushedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "pushed_messages_total",
		Help:      "Pushed messages ingested, split by whether their conversation was active.",
	}, []string{"active"})

	Unread = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "unread_messages",
		Help:      "Sum of unread counters across conversations.",
	})
)

func init() {
	prometheus.MustRegister(ConnectionState)
	prometheus.MustRegister(Reconnects)
	prometheus.MustRegister(FramesReceived)
	prometheus.MustRegister(ActiveSubscriptions)
	prometheus.MustRegister(PageFetches)
	prometheus.MustRegister(PushedMessages)
	prometheus.MustRegister(Unread)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// BoolLabel renders a bool as a label value
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
