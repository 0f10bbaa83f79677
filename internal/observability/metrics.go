package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entmux",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entmux",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entmux",
			Subsystem: "mux",
			Name:      "frames_received_total",
			Help:      "Inbound frames dispatched to an entity handler.",
		},
		[]string{"node", "kind"},
	)
	framesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entmux",
			Subsystem: "mux",
			Name:      "frames_rejected_total",
			Help:      "Inbound frames dropped by the multiplexer.",
		},
		[]string{"node", "kind", "reason"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entmux",
			Subsystem: "mux",
			Name:      "frames_sent_total",
			Help:      "Outbound frames handed to a session.",
		},
		[]string{"node", "kind", "success"},
	)
	remoteWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entmux",
			Subsystem: "mux",
			Name:      "remote_warnings_total",
			Help:      "WARNING frames received from peers.",
		},
		[]string{"node"},
	)
	directoryEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "entmux",
			Subsystem: "mux",
			Name:      "directory_entities",
			Help:      "Entities currently registered in the directory.",
		},
		[]string{"node"},
	)
	broadcastFanout = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entmux",
			Subsystem: "sim",
			Name:      "broadcast_sessions",
			Help:      "Sessions reached by one entity update broadcast.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"node"},
	)
	activeSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "entmux",
			Subsystem: "session",
			Name:      "active",
			Help:      "Connected peer sessions by transport.",
		},
		[]string{"node", "transport"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesReceived, framesRejected, framesSent, remoteWarnings,
			directoryEntities, broadcastFanout, activeSessions,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameReceived(node, kind string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(node, kind).Inc()
}

func RecordFrameRejected(node, kind, reason string) {
	RegisterMetrics()
	framesRejected.WithLabelValues(node, kind, reason).Inc()
}

func RecordFrameSent(node, kind string, success bool) {
	RegisterMetrics()
	framesSent.WithLabelValues(node, kind, strconv.FormatBool(success)).Inc()
}

func RecordRemoteWarning(node string) {
	RegisterMetrics()
	remoteWarnings.WithLabelValues(node).Inc()
}

func SetDirectoryEntities(node string, n int) {
	RegisterMetrics()
	directoryEntities.WithLabelValues(node).Set(float64(n))
}

func RecordBroadcast(node string, sessions int) {
	RegisterMetrics()
	broadcastFanout.WithLabelValues(node).Observe(float64(sessions))
}

func AddActiveSessions(node, transport string, delta int) {
	RegisterMetrics()
	activeSessions.WithLabelValues(node, transport).Add(float64(delta))
}
