package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
)

// MetricsSink counts analytics traffic with Prometheus metrics and passes everything on to the next sink
type MetricsSink struct {
	next bridge.Sink

	events         *prometheus.CounterVec
	sessions       prometheus.Counter
	activeSessions prometheus.Gauge
	playbackErrors *prometheus.CounterVec
}

// NewMetricsSink registers the sink's metrics with reg.  next may be nil when only metrics are wanted.
func NewMetricsSink(next bridge.Sink, reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)

	return &MetricsSink{
		next: next,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "muxbridge_events_total",
			Help: "Analytics events forwarded, by event name",
		}, []string{"event"}),
		sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "muxbridge_sessions_total",
			Help: "Analytics sessions initialised",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "muxbridge_sessions_active",
			Help: "Analytics sessions initialised and not yet destroyed",
		}),
		playbackErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "muxbridge_playback_errors_total",
			Help: "Playback errors reported by the host player, by error code",
		}, []string{"code"}),
	}
}

func (s *MetricsSink) Init(sessionID string, cfg bridge.Config) {
	s.sessions.Inc()
	s.activeSessions.Inc()

	if s.next != nil {
		s.next.Init(sessionID, cfg)
	}
}

func (s *MetricsSink) Emit(sessionID string, event bridge.EventName, payload bridge.Payload) {
	s.events.WithLabelValues(string(event)).Inc()

	switch event {
	case bridge.EventDestroy:
		s.activeSessions.Dec()
	case bridge.EventError:
		code, _ := payload[bridge.KeyErrorCode].(string)
		if code == "" {
			code = "unknown"
		}
		s.playbackErrors.WithLabelValues(code).Inc()
	}

	if s.next != nil {
		s.next.Emit(sessionID, event, payload)
	}
}
