// Package metrics exports Prometheus metrics for the engine and the
// liveview host.
//
// A Collector is a vdom.Observer, so one collector can be handed to every
// VirtualDom with vdom.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	dom := vdom.New(app, nil, vdom.WithObserver(m))
//	http.Handle("/metrics", m.Handler())
//
// Metrics collected (namespace "vcore" by default):
//   - ticks_total, tick_duration_seconds, mutations_total
//   - renders_total{component,outcome}, render_duration_seconds
//   - tasks_polled_total{result}
//   - events_total{event}, event_listeners
//   - active_sessions, frames_total{direction,type}, frame_bytes_total{direction}
//   - websocket_errors_total{type}, reconnects_total
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "vcore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vcore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records engine and host metrics.
type Collector struct {
	registry prometheus.Registerer

	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	mutations      prometheus.Counter
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	tasksPolled    *prometheus.CounterVec
	events         *prometheus.CounterVec
	eventListeners prometheus.Histogram

	activeSessions prometheus.Gauge
	frames         *prometheus.CounterVec
	frameBytes     *prometheus.CounterVec
	wsErrors       *prometheus.CounterVec
	reconnects     prometheus.Counter
}

// New registers a Collector's metrics. Registering two collectors with the
// same namespace on one registry panics, as promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	histogram := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     buckets,
		}
	}

	return &Collector{
		registry: config.Registry,

		ticks:        factory.NewCounter(counter("ticks_total", "Scheduler ticks run")),
		tickDuration: factory.NewHistogram(histogram("tick_duration_seconds", "Duration of one scheduler tick", config.Buckets)),
		mutations:    factory.NewCounter(counter("mutations_total", "Mutations emitted to renderers")),
		renders: factory.NewCounterVec(counter("renders_total", "Component renders by outcome"),
			[]string{"component", "outcome"}),
		renderDuration: factory.NewHistogram(histogram("render_duration_seconds", "Duration of one component render", config.Buckets)),
		tasksPolled: factory.NewCounterVec(counter("tasks_polled_total", "Task polls by result"),
			[]string{"result"}),
		events: factory.NewCounterVec(counter("events_total", "Events dispatched by name"),
			[]string{"event"}),
		eventListeners: factory.NewHistogram(histogram("event_listeners", "Listeners run per dispatched event",
			[]float64{0, 1, 2, 4, 8, 16})),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected liveview sessions",
			ConstLabels: config.ConstLabels,
		}),
		frames: factory.NewCounterVec(counter("frames_total", "Protocol frames by direction and type"),
			[]string{"direction", "type"}),
		frameBytes: factory.NewCounterVec(counter("frame_bytes_total", "Protocol bytes by direction"),
			[]string{"direction"}),
		wsErrors: factory.NewCounterVec(counter("websocket_errors_total", "WebSocket errors by type"),
			[]string{"type"}),
		reconnects: factory.NewCounter(counter("reconnects_total", "Sessions resumed after a reconnect")),
	}
}

// ScopeRendered implements vdom.Observer.
func (c *Collector) ScopeRendered(name string, suspended bool, d time.Duration) {
	outcome := "rendered"
	if suspended {
		outcome = "suspended"
	}
	c.renders.WithLabelValues(name, outcome).Inc()
	c.renderDuration.Observe(d.Seconds())
}

// TaskPolled implements vdom.Observer.
func (c *Collector) TaskPolled(done bool) {
	result := "pending"
	if done {
		result = "done"
	}
	c.tasksPolled.WithLabelValues(result).Inc()
}

// TickCompleted implements vdom.Observer.
func (c *Collector) TickCompleted(mutations int, d time.Duration) {
	c.ticks.Inc()
	c.tickDuration.Observe(d.Seconds())
	c.mutations.Add(float64(mutations))
}

// EventDispatched implements vdom.Observer.
func (c *Collector) EventDispatched(name string, listeners int) {
	c.events.WithLabelValues(name).Inc()
	c.eventListeners.Observe(float64(listeners))
}

// SessionOpened records a new liveview session.
func (c *Collector) SessionOpened() { c.activeSessions.Inc() }

// SessionClosed records a liveview session ending.
func (c *Collector) SessionClosed() { c.activeSessions.Dec() }

// SessionResumed records a session resumed after a reconnect.
func (c *Collector) SessionResumed() { c.reconnects.Inc() }

// FrameSent records an outgoing protocol frame of n bytes.
func (c *Collector) FrameSent(frameType string, n int) {
	c.frames.WithLabelValues("out", frameType).Inc()
	c.frameBytes.WithLabelValues("out").Add(float64(n))
}

// FrameReceived records an incoming protocol frame of n bytes.
func (c *Collector) FrameReceived(frameType string, n int) {
	c.frames.WithLabelValues("in", frameType).Inc()
	c.frameBytes.WithLabelValues("in").Add(float64(n))
}

// WebSocketError records a transport error, classified by ErrorType.
func (c *Collector) WebSocketError(err error) {
	c.wsErrors.WithLabelValues(ErrorType(err)).Inc()
}

// Handler serves the metrics of the collector's registry. A registry that
// is not a Gatherer falls back to the default gatherer.
func (c *Collector) Handler() http.Handler {
	if g, ok := c.registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// ErrorType maps an error to a low-cardinality label.
func ErrorType(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "close"):
		return "closed"
	case strings.Contains(msg, "protocol"):
		return "protocol"
	case strings.Contains(msg, "rate limit"):
		return "rate_limit"
	default:
		return "internal"
	}
}
