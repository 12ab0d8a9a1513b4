package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentdesk"

// Refresh outcomes recorded by the refresh coordinator.
const (
	RefreshSucceeded = "succeeded"
	RefreshFailed    = "failed"
	RefreshNoToken   = "no_refresh_token"
	RefreshSkipped   = "already_renewed"
)

// Stream outcomes recorded by the stream consumer.
const (
	StreamCompleted = "completed"
	StreamCancelled = "cancelled"
	StreamFailed    = "failed"
	StreamRejected  = "rejected"
)

// Recorder receives client-side telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveRequest records one dispatched HTTP attempt. status is 0 when no
	// response was received.
	ObserveRequest(method string, status int, elapsed time.Duration)
	// ObserveRefresh records the outcome of one refresh coordinator entry.
	ObserveRefresh(outcome string)
	// ObserveStream records how a stream ended and how many bytes it delivered.
	ObserveStream(outcome string, bytes int)
}

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveRequest(string, int, time.Duration) {}
func (Noop) ObserveRefresh(string)                     {}
func (Noop) ObserveStream(string, int)                 {}

// Prometheus records telemetry as Prometheus collectors.
type Prometheus struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	refreshes   *prometheus.CounterVec
	streams     *prometheus.CounterVec
	streamBytes prometheus.Counter
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP attempts made by the request dispatcher, by method and status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP attempts made by the request dispatcher.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Refresh coordinator entries, by outcome.",
		}, []string{"outcome"}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "streams_total",
			Help:      "Streamed responses, by how they ended.",
		}, []string{"outcome"}),
		streamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "received_bytes_total",
			Help:      "Bytes delivered to stream consumers.",
		}),
	}

	if reg != nil {
		reg.MustRegister(p.requests, p.duration, p.refreshes, p.streams, p.streamBytes)
	}
	return p
}

// ObserveRequest implements Recorder.
func (p *Prometheus) ObserveRequest(method string, status int, elapsed time.Duration) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.requests.WithLabelValues(method, label).Inc()
	p.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh implements Recorder.
func (p *Prometheus) ObserveRefresh(outcome string) {
	p.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveStream implements Recorder.
func (p *Prometheus) ObserveStream(outcome string, bytes int) {
	p.streams.WithLabelValues(outcome).Inc()
	p.streamBytes.Add(float64(bytes))
}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Prometheus)(nil)
)
