package prometheus

import (
	"time"
)

// PipelineMetrics holds the metrics of one dataset build.
type PipelineMetrics struct {
	QueriesTotal            CounterVec
	QueryDuration           HistogramVec
	DescriptorFailuresTotal CounterVec
	StageDuration           HistogramVec
	RowsWritten             GaugeVec
	LastRunTimestamp        GaugeVec
}

// Default Buckets
var (
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultStageDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60}
)

// NewPipelineMetrics registers all metrics and returns the PipelineMetrics struct.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}

	m.QueriesTotal = collector.RegisterCounter("queries_total", "Store queries by name and status", "query", "status")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Store query duration", DefaultDBDurationBuckets, "query")
	m.DescriptorFailuresTotal = collector.RegisterCounter("descriptor_failures_total", "Descriptor computations replaced by the sentinel", "descriptor")
	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Pipeline stage duration", DefaultStageDurationBuckets, "stage")
	m.RowsWritten = collector.RegisterGauge("rows_written", "Rows written per artifact", "artifact")
	m.LastRunTimestamp = collector.RegisterGauge("last_run_timestamp_seconds", "Completion time of the last build")

	return m
}

// ObserveQuery records one store query.
func (m *PipelineMetrics) ObserveQuery(name string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.QueriesTotal.WithLabelValues(name, status).Inc()
	m.QueryDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) DescriptorFailed(descriptor string) {
	m.DescriptorFailuresTotal.WithLabelValues(descriptor).Inc()
}

func (m *PipelineMetrics) ObserveStage(stage string, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) SetRowsWritten(artifact string, rows int) {
	m.RowsWritten.WithLabelValues(artifact).Set(float64(rows))
}

// MarkCompleted stamps the end of a successful build.
func (m *PipelineMetrics) MarkCompleted(at time.Time) {
	m.LastRunTimestamp.WithLabelValues().Set(float64(at.Unix()))
}
