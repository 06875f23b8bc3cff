package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_calls_active",
		Help: "Currently active call sessions",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_calls_total",
		Help: "Total calls handled",
	})

	FramesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_frames_forwarded_total",
		Help: "Audio frames relayed, by direction",
	}, []string{"direction"})

	FrameBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_frame_bytes_total",
		Help: "Decoded audio bytes relayed, by direction",
	}, []string{"direction"})

	FrameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_frame_errors_total",
		Help: "Frame decode/forward failures, by direction and kind",
	}, []string{"direction", "kind"})

	BackendEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_backend_events_total",
		Help: "Inbound backend events, by type",
	}, []string{"type"})

	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_session_duration_seconds",
		Help:    "Call session duration from media attach to teardown",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	SessionsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_sessions_registered",
		Help: "Sessions currently held in the registry",
	})
)

// Direction labels for the relay counters.
const (
	DirTelephonyToBackend = "telephony_to_backend"
	DirBackendToTelephony = "backend_to_telephony"
)
