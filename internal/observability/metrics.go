package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxterm_session_active",
		Help: "Whether a dictation session is currently active (0 or 1)",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterm_sessions_total",
		Help: "Total number of dictation sessions by outcome",
	}, []string{"outcome"})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxterm_recording_duration_seconds",
		Help:    "Duration of hotkey-held recording in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	bufferOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxterm_buffer_overruns_total",
		Help: "Recordings discarded for exceeding the maximum session duration",
	})

	// Pipeline metrics
	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxterm_transcription_latency_seconds",
		Help:    "Speech-to-text processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	injectionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxterm_injection_latency_seconds",
		Help:    "Text injection latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
	})

	injectedChars = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxterm_injected_characters_total",
		Help: "Total characters injected into the focused application",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterm_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voxterm_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxterm_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// SetSessionActive flags whether a session is in flight.
func SetSessionActive(active bool) {
	if active {
		sessionActive.Set(1)
	} else {
		sessionActive.Set(0)
	}
}

// RecordSessionOutcome counts a finished session by its outcome label.
func RecordSessionOutcome(outcome string) {
	sessionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecordingDuration records how long the hotkey was held.
func ObserveRecordingDuration(seconds float64) {
	recordingDuration.Observe(seconds)
}

// RecordBufferOverrun counts a recording discarded for running too long.
func RecordBufferOverrun() {
	bufferOverruns.Inc()
}

// ObserveTranscriptionLatency records one speech-to-text round trip.
func ObserveTranscriptionLatency(seconds float64) {
	transcriptionLatency.Observe(seconds)
}

// ObserveInjectionLatency records one text injection.
func ObserveInjectionLatency(seconds float64) {
	injectionLatency.Observe(seconds)
}

// RecordInjectedChars counts characters delivered to the focused window.
func RecordInjectedChars(n int) {
	injectedChars.Add(float64(n))
}

// RecordError records an error by type and component.
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
