package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	decisions        *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	aggregateWrites  *prometheus.CounterVec
	eventsRecorded   prometheus.Counter
}

// NewPrometheus returns a Recorder registered with the given
// registerer (the default registry when nil).
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitroute_decisions_total",
			Help: "Redirect decisions by outcome",
		}, []string{"outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitroute_fallback_states_total",
			Help: "Which selector fallback state produced each redirect",
		}, []string{"state"}),
		decisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitroute_decision_duration_seconds",
			Help:    "Duration of the redirect decision pipeline",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "splitroute_project_cache_hits_total",
			Help: "Project cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "splitroute_project_cache_misses_total",
			Help: "Project cache misses",
		}),
		aggregateWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitroute_aggregate_writes_total",
			Help: "Counter/event writes by status",
		}, []string{"status"}),
		eventsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "splitroute_events_recorded_total",
			Help: "Click events appended to project buffers",
		}),
	}
}

// IncDecision increments the outcome counter.
func (p *PrometheusRecorder) IncDecision(outcome string) {
	p.decisions.WithLabelValues(outcome).Inc()
}

// IncFallback increments the fallback state counter.
func (p *PrometheusRecorder) IncFallback(state string) {
	p.fallbacks.WithLabelValues(state).Inc()
}

// ObserveDecisionDuration records decision latency.
func (p *PrometheusRecorder) ObserveDecisionDuration(duration time.Duration) {
	p.decisionDuration.Observe(duration.Seconds())
}

// IncProjectCacheHit increments the cache hit counter.
func (p *PrometheusRecorder) IncProjectCacheHit() {
	p.cacheHits.Inc()
}

// IncProjectCacheMiss increments the cache miss counter.
func (p *PrometheusRecorder) IncProjectCacheMiss() {
	p.cacheMisses.Inc()
}

// IncAggregateWrite increments the write status counter.
func (p *PrometheusRecorder) IncAggregateWrite(status string) {
	p.aggregateWrites.WithLabelValues(status).Inc()
}

// IncEventRecorded increments the recorded event counter.
func (p *PrometheusRecorder) IncEventRecorded() {
	p.eventsRecorded.Inc()
}
