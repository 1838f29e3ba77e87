package live

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reflow-dev/reflow/pkg/reflow"
)

// MetricsConfig configures the Prometheus metrics for a hub.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reflow").
	Namespace string

	// Subsystem is the metrics subsystem (default: "live").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for frame handling duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reflow",
		Subsystem: "live",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus instruments for a hub.
//
// Metrics collected:
//   - reflow_live_frames_received_total: Counter of inbound frames by type
//   - reflow_live_frames_sent_total: Counter of outbound frames by type
//   - reflow_live_frame_errors_total: Counter of failed frames by type
//   - reflow_live_frame_duration_seconds: Histogram of frame handling duration
//   - reflow_live_broadcasts_total: Counter of fan-outs by channel
//   - reflow_live_broadcast_recipients: Histogram of recipients per fan-out
//   - reflow_live_connected_peers: Gauge of connected peers
//   - reflow_live_slow_peer_drops_total: Counter of peers dropped for falling behind
//   - reflow_live_channels: Gauge of registered channels
type Metrics struct {
	framesReceived *prometheus.CounterVec
	framesSent     *prometheus.CounterVec
	frameErrors    *prometheus.CounterVec
	frameDuration  *prometheus.HistogramVec
	broadcasts     *prometheus.CounterVec
	recipients     prometheus.Histogram
	connectedPeers prometheus.Gauge
	slowPeerDrops  prometheus.Counter
	channels       prometheus.Gauge
}

// NewMetrics creates and registers the hub's instruments.
//
// Example:
//
//	hub := live.NewHub(
//	    live.WithMetrics(live.NewMetrics(live.WithNamespace("myapp"))),
//	)
//	http.Handle("/metrics", promhttp.Handler())
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total inbound frames by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total outbound frames by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		frameErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_errors_total",
			Help:        "Total inbound frames that failed by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		frameDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_duration_seconds",
			Help:        "Inbound frame handling duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcasts_total",
			Help:        "Total channel fan-outs by channel",
			ConstLabels: config.ConstLabels,
		}, []string{"channel"}),

		recipients: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcast_recipients",
			Help:        "Recipients per channel fan-out",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 50, 100, 500, 1000},
		}),

		connectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connected_peers",
			Help:        "Number of connected WebSocket peers",
			ConstLabels: config.ConstLabels,
		}),

		slowPeerDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "slow_peer_drops_total",
			Help:        "Total peers dropped for not keeping up with broadcasts",
			ConstLabels: config.ConstLabels,
		}),

		channels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "channels",
			Help:        "Number of registered broadcast channels",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordFrameReceived records one handled inbound frame.
func (m *Metrics) RecordFrameReceived(frameType string, d time.Duration) {
	m.framesReceived.WithLabelValues(frameType).Inc()
	m.frameDuration.WithLabelValues(frameType).Observe(d.Seconds())
}

// RecordFrameSent records one outbound frame written to a socket.
func (m *Metrics) RecordFrameSent(frameType string) {
	m.framesSent.WithLabelValues(frameType).Inc()
}

// RecordFrameError records one inbound frame that failed.
func (m *Metrics) RecordFrameError(frameType string) {
	m.frameErrors.WithLabelValues(frameType).Inc()
}

// RecordBroadcast records one channel fan-out.
func (m *Metrics) RecordBroadcast(channel string, recipients int) {
	m.broadcasts.WithLabelValues(channel).Inc()
	m.recipients.Observe(float64(recipients))
}

// RecordPeerConnect records a peer joining the hub.
func (m *Metrics) RecordPeerConnect() {
	m.connectedPeers.Inc()
}

// RecordPeerDisconnect records a peer leaving the hub.
func (m *Metrics) RecordPeerDisconnect() {
	m.connectedPeers.Dec()
}

// RecordSlowPeerDrop records a peer dropped for falling behind.
func (m *Metrics) RecordSlowPeerDrop() {
	m.slowPeerDrops.Inc()
}

// RecordChannelCount records the current channel registry size.
func (m *Metrics) RecordChannelCount(n int) {
	m.channels.Set(float64(n))
}

// RuntimeCollector exports a runtime's cumulative counters as Prometheus
// counters. Register it to observe the reactive graph itself:
//
//	prometheus.MustRegister(live.NewRuntimeCollector(hub.Runtime(), "reflow"))
type RuntimeCollector struct {
	rt *reflow.Runtime

	signalWrites   *prometheus.Desc
	effectRuns     *prometheus.Desc
	memoRecomputes *prometheus.Desc
	batchFlushes   *prometheus.Desc
}

// NewRuntimeCollector creates a collector over rt's counters.
func NewRuntimeCollector(rt *reflow.Runtime, namespace string) *RuntimeCollector {
	fq := func(name string) string {
		return prometheus.BuildFQName(namespace, "runtime", name)
	}
	return &RuntimeCollector{
		rt:             rt,
		signalWrites:   prometheus.NewDesc(fq("signal_writes_total"), "Total signal writes", nil, nil),
		effectRuns:     prometheus.NewDesc(fq("effect_runs_total"), "Total effect executions", nil, nil),
		memoRecomputes: prometheus.NewDesc(fq("memo_recomputes_total"), "Total memo recomputations", nil, nil),
		batchFlushes:   prometheus.NewDesc(fq("batch_flushes_total"), "Total batch flushes", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.signalWrites
	ch <- c.effectRuns
	ch <- c.memoRecomputes
	ch <- c.batchFlushes
}

// Collect implements prometheus.Collector.
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.rt.Stats()
	ch <- prometheus.MustNewConstMetric(c.signalWrites, prometheus.CounterValue, float64(stats.SignalWrites))
	ch <- prometheus.MustNewConstMetric(c.effectRuns, prometheus.CounterValue, float64(stats.EffectRuns))
	ch <- prometheus.MustNewConstMetric(c.memoRecomputes, prometheus.CounterValue, float64(stats.MemoRecomputes))
	ch <- prometheus.MustNewConstMetric(c.batchFlushes, prometheus.CounterValue, float64(stats.BatchFlushes))
}
