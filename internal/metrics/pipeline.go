// Package metrics exposes Prometheus instrumentation for the taste pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

const namespace = "flavorai"

// PipelineMetrics tracks ingest, profile and ranking activity
type PipelineMetrics struct {
	runs            *prometheus.CounterVec
	events          *prometheus.CounterVec
	partialIngests  prometheus.Counter
	stageDuration   *prometheus.HistogramVec
	recommendations prometheus.Histogram
	profileCache    *prometheus.CounterVec
}

// NewPipelineMetrics registers the collectors on reg; nil uses the default registerer
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PipelineMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline invocations by operation and outcome",
		}, []string{"operation", "outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Normalized takeout events by kind",
		}, []string{"kind"}),
		partialIngests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "partial_total",
			Help:      "Archives ingested with at least one failed source",
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		recommendations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "results",
			Help:      "Number of recommendations returned per request",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		}),
		profileCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile_cache",
			Name:      "lookups_total",
			Help:      "Profile cache lookups by result",
		}, []string{"result"}),
	}
}

// RecordRun counts a finished operation
func (m *PipelineMetrics) RecordRun(operation, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(operation, outcome).Inc()
}

// RecordEvents counts ingested events by kind
func (m *PipelineMetrics) RecordEvents(events []models.RawEvent) {
	if m == nil {
		return
	}
	for _, ev := range events {
		m.events.WithLabelValues(string(ev.Kind())).Inc()
	}
}

// RecordPartialIngest counts an archive that produced a PartialIngestWarning
func (m *PipelineMetrics) RecordPartialIngest() {
	if m == nil {
		return
	}
	m.partialIngests.Inc()
}

// ObserveStage records how long a stage took since start
func (m *PipelineMetrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordRecommendations records the size of a ranked result
func (m *PipelineMetrics) RecordRecommendations(n int) {
	if m == nil {
		return
	}
	m.recommendations.Observe(float64(n))
}

// RecordCacheLookup counts a profile cache hit or miss
func (m *PipelineMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.profileCache.WithLabelValues(result).Inc()
}
