package monitoring

import (
	"liveclass/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports coordination-core counters. Implements
// ports.Metrics.
type PrometheusCollector struct {
	sessionsActive prometheus.Gauge
	loginRetries   prometheus.Counter

	chatSent     prometheus.Counter
	chatRejected prometheus.Counter

	moderationCommands *prometheus.CounterVec

	viewerCount *prometheus.GaugeVec

	recordingTransitions *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "liveclass_signaling_sessions_active",
			Help: "Number of live signaling sessions",
		}),

		loginRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liveclass_signaling_login_retries_total",
			Help: "Total number of signaling login retries",
		}),

		chatSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liveclass_chat_messages_sent_total",
			Help: "Total number of chat messages sent and persisted",
		}),

		chatRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liveclass_chat_messages_rejected_total",
			Help: "Total number of chat sends rejected by the rate guard",
		}),

		moderationCommands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liveclass_moderation_commands_total",
			Help: "Total number of moderation commands issued",
		}, []string{"kind"}),

		viewerCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liveclass_viewer_count",
			Help: "Live viewer count per room",
		}, []string{"room"}),

		recordingTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liveclass_recording_transitions_total",
			Help: "Total number of recording state transitions",
		}, []string{"status"}),
	}
}

func (p *PrometheusCollector) SessionOpened(room domain.RoomID) {
	p.sessionsActive.Inc()
}

func (p *PrometheusCollector) SessionClosed(room domain.RoomID) {
	p.sessionsActive.Dec()
	p.viewerCount.DeleteLabelValues(string(room))
}

func (p *PrometheusCollector) LoginRetry() {
	p.loginRetries.Inc()
}

func (p *PrometheusCollector) ChatSent() {
	p.chatSent.Inc()
}

func (p *PrometheusCollector) ChatRejected() {
	p.chatRejected.Inc()
}

func (p *PrometheusCollector) ModerationCommand(kind string) {
	p.moderationCommands.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) ViewerCount(room domain.RoomID, count int) {
	p.viewerCount.WithLabelValues(string(room)).Set(float64(count))
}

func (p *PrometheusCollector) RecordingTransition(status domain.RecordingStatus) {
	p.recordingTransitions.WithLabelValues(string(status)).Inc()
}
