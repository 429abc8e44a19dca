package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports session and chat metrics. It implements
// ports.SessionRecorder so the state machine stays ignorant of Prometheus.
type PrometheusCollector struct {
	opsTotal         *prometheus.CounterVec
	skippedBusyTotal *prometheus.CounterVec
	acquireTotal     *prometheus.CounterVec
	acquireDuration  *prometheus.HistogramVec
	fallbackTotal    *prometheus.CounterVec
	correctionsTotal prometheus.Counter
	activeSessions   prometheus.Gauge

	chatMessagesTotal   *prometheus.CounterVec
	chatConnectionsGauge prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		opsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiconnect_session_ops_total",
			Help: "Session operations executed, by op",
		}, []string{"op"}),
		skippedBusyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiconnect_session_ops_skipped_busy_total",
			Help: "Session operations skipped because another was in flight",
		}, []string{"op"}),
		acquireTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiconnect_media_acquire_total",
			Help: "Media acquisitions, by device and result",
		}, []string{"device", "result"}),
		acquireDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communiconnect_media_acquire_duration_seconds",
			Help:    "Media acquisition latency, by device",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"device"}),
		fallbackTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiconnect_media_fallback_total",
			Help: "Fallback activations, by kind",
		}, []string{"kind"}),
		correctionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communiconnect_state_consistency_corrections_total",
			Help: "Forced state corrections after inconsistency detection",
		}),
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "communiconnect_active_sessions",
			Help: "Currently open media sessions",
		}),
		chatMessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiconnect_chat_messages_total",
			Help: "Chat messages processed, by origin",
		}, []string{"origin"}),
		chatConnectionsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "communiconnect_chat_connections",
			Help: "Currently connected chat websocket clients",
		}),
	}
}

func (c *PrometheusCollector) RecordOp(op string) {
	c.opsTotal.WithLabelValues(op).Inc()
}

func (c *PrometheusCollector) RecordSkippedBusy(op string) {
	c.skippedBusyTotal.WithLabelValues(op).Inc()
}

func (c *PrometheusCollector) RecordAcquire(device, result string, d time.Duration) {
	c.acquireTotal.WithLabelValues(device, result).Inc()
	c.acquireDuration.WithLabelValues(device).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordFallback(kind string) {
	c.fallbackTotal.WithLabelValues(kind).Inc()
}

func (c *PrometheusCollector) RecordConsistencyCorrection() {
	c.correctionsTotal.Inc()
}

func (c *PrometheusCollector) RecordSessionOpened() {
	c.activeSessions.Inc()
}

func (c *PrometheusCollector) RecordSessionClosed() {
	c.activeSessions.Dec()
}

func (c *PrometheusCollector) RecordChatMessage(origin string) {
	c.chatMessagesTotal.WithLabelValues(origin).Inc()
}

func (c *PrometheusCollector) ChatClientConnected() {
	c.chatConnectionsGauge.Inc()
}

func (c *PrometheusCollector) ChatClientDisconnected() {
	c.chatConnectionsGauge.Dec()
}
