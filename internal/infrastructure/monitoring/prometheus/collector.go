// Package prometheus records pipeline metrics on a private registry.  A
// build is a one-shot process, so metrics are exported through the node
// exporter textfile format instead of a scrape endpoint.
package prometheus

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// MetricsCollector registers labelled metrics and exports them.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Gatherer() prometheus.Gatherer
	WriteTextfile(path string) error
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig names the metric family prefix.  Namespace is mandatory.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	ConstLabels          map[string]string
}

// defaultBuckets spans sub-millisecond queries up to slow full builds.
var defaultBuckets = []float64{.005, .01, .05, .1, .5, 1, 5, 30}

type registryCollector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

func NewMetricsCollector(cfg CollectorConfig, log logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.New(errors.ErrCodeConfig, "metrics namespace is required")
	}

	reg := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		reg.MustRegister(prometheus.NewGoCollector())
	}

	return &registryCollector{
		registry: reg,
		config:   cfg,
		logger:   log,
		byName:   make(map[string]prometheus.Collector),
	}, nil
}

func (c *registryCollector) Gatherer() prometheus.Gatherer { return c.registry }

// WriteTextfile renders every registered family to path, creating the parent
// directory.  The file is replaced atomically.
func (c *registryCollector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeMetricsFailed, "failed to create metrics directory")
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrCodeMetricsFailed, "failed to write metrics textfile")
	}
	return nil
}

// registerVec registers fresh under name, or returns the family already
// registered under that name.  ok is false when registration failed or the
// existing family has a different type.
func registerVec[V prometheus.Collector](c *registryCollector, name, kind string, fresh V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, found := c.byName[fq]; found {
		v, ok := existing.(V)
		if !ok {
			c.logger.Warn("Metric registered with another type",
				logging.String("metric", fq), logging.String("type", kind))
		}
		return v, ok
	}

	if err := c.registry.Register(fresh); err != nil {
		c.logger.Error("Failed to register metric",
			logging.String("metric", fq), logging.String("type", kind), logging.Err(err))
		var zero V
		return zero, false
	}
	c.byName[fq] = fresh
	return fresh, true
}

func (c *registryCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec, ok := registerVec(c, name, "counter", prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels))
	if !ok {
		return discardCounters{}
	}
	return counterFamily{vec}
}

func (c *registryCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec, ok := registerVec(c, name, "gauge", prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels))
	if !ok {
		return discardGauges{}
	}
	return gaugeFamily{vec}
}

// RegisterHistogram uses the default buckets when buckets is nil.
func (c *registryCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = defaultBuckets
	}
	vec, ok := registerVec(c, name, "histogram", prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels, Buckets: buckets,
	}, labels))
	if !ok {
		return discardHistograms{}
	}
	return histogramFamily{vec}
}

type counterFamily struct{ *prometheus.CounterVec }

func (f counterFamily) WithLabelValues(lvs ...string) Counter {
	return f.CounterVec.WithLabelValues(lvs...)
}

type gaugeFamily struct{ *prometheus.GaugeVec }

func (f gaugeFamily) WithLabelValues(lvs ...string) Gauge { return f.GaugeVec.WithLabelValues(lvs...) }

type histogramFamily struct{ *prometheus.HistogramVec }

func (f histogramFamily) WithLabelValues(lvs ...string) Histogram {
	return f.HistogramVec.WithLabelValues(lvs...)
}

// Families handed out when registration fails; recording into them is a no-op.

type discardCounters struct{}

func (discardCounters) WithLabelValues(...string) Counter { return discard{} }

type discardGauges struct{}

func (discardGauges) WithLabelValues(...string) Gauge { return discard{} }

type discardHistograms struct{}

func (discardHistograms) WithLabelValues(...string) Histogram { return discard{} }

type discard struct{}

func (discard) Inc()            {}
func (discard) Add(float64)     {}
func (discard) Set(float64)     {}
func (discard) Observe(float64) {}
