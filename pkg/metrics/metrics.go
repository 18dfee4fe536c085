// Package metrics wires the connection/worker/session counters onto a
// Prometheus registry, following the promauto option-struct pattern used
// for this codebase's HTTP middleware metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option configures Metrics construction.
type Option func(*options)

type options struct {
	namespace string
	subsystem string
	constLabels prometheus.Labels
	registry prometheus.Registerer
}

// WithNamespace sets the Prometheus metric namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithSubsystem sets the Prometheus metric subsystem.
func WithSubsystem(sub string) Option {
	return func(o *options) { o.subsystem = sub }
}

// WithConstLabels attaches constant labels to every metric.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) { o.constLabels = labels }
}

// WithRegistry registers metrics against a specific registerer instead of
// the default global one (useful in tests to avoid collisions).
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// Metrics holds every gauge/counter/histogram this server publishes.
type Metrics struct {
	ConnQueueDepth prometheus.Gauge
	ConnQueueDropped prometheus.Counter

	WorkerPoolSize prometheus.Gauge
	WorkerPoolActive prometheus.Gauge

	ActiveSessions *prometheus.GaugeVec // labeled by variant: script, riva

	FramesSent *prometheus.CounterVec // labeled by opcode
	FramesReceived *prometheus.CounterVec

	DigestOutcomes *prometheus.CounterVec // labeled by outcome: ok, unauthorized, stale, bad_request

	ExchangeDuration prometheus.Histogram

	ImagesSent prometheus.Counter
	ImageRefsOnly prometheus.Counter
}

// New builds a Metrics, registering all collectors against the configured
// registerer (prometheus.DefaultRegisterer unless WithRegistry is given).
func New(opts ...Option) *Metrics {
	o:= &options{registry: prometheus.DefaultRegisterer}
	for _, opt:= range opts {
		opt(o)
	}

	factory:= promauto.With(o.registry)

	return &Metrics{
		ConnQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "conn_queue_depth",
			Help: "Current number of connections waiting in the listener hand-off queue.",
			ConstLabels: o.constLabels,
		}),
		ConnQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "conn_queue_dropped_total",
			Help: "Connections dropped because the hand-off queue was full.",
			ConstLabels: o.constLabels,
		}),
		WorkerPoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "worker_pool_size",
			Help: "Current number of live worker goroutines.",
			ConstLabels: o.constLabels,
		}),
		WorkerPoolActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "worker_pool_active",
			Help: "Number of workers currently handling an exchange.",
			ConstLabels: o.constLabels,
		}),
		ActiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "active_sessions",
			Help: "Current WebSocket sessions by variant.",
			ConstLabels: o.constLabels,
		}, []string{"variant"}),
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "frames_sent_total",
			Help: "WebSocket frames sent, by opcode.",
			ConstLabels: o.constLabels,
		}, []string{"opcode"}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "frames_received_total",
			Help: "WebSocket frames received, by opcode.",
			ConstLabels: o.constLabels,
		}, []string{"opcode"}),
		DigestOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "digest_auth_outcomes_total",
			Help: "Digest authentication verification outcomes.",
			ConstLabels: o.constLabels,
		}, []string{"outcome"}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "exchange_duration_seconds",
			Help: "Duration of one HTTP worker exchange.",
			ConstLabels: o.constLabels,
			Buckets: prometheus.DefBuckets,
		}),
		ImagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "riva_images_sent_total",
			Help: "RIVA image transfers where pixel data was actually sent.",
			ConstLabels: o.constLabels,
		}),
		ImageRefsOnly: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name: "riva_image_refs_total",
			Help: "RIVA image references sent without retransmitting pixel data.",
			ConstLabels: o.constLabels,
		}),
	}
}
