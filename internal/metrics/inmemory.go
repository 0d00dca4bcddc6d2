package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Decisions               map[string]uint64
	Fallbacks               map[string]uint64
	DecisionDurationCount   uint64
	DecisionDurationTotalNs int64
	ProjectCacheHits        uint64
	ProjectCacheMisses      uint64
	AggregateWrites         map[string]uint64
	EventsRecorded          uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	decisions       map[string]uint64
	fallbacks       map[string]uint64
	aggregateWrites map[string]uint64

	decisionDurationCount   uint64
	decisionDurationTotalNs int64
	projectCacheHits        uint64
	projectCacheMisses      uint64
	eventsRecorded          uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		decisions:       make(map[string]uint64),
		fallbacks:       make(map[string]uint64),
		aggregateWrites: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Decisions:               copyCounts(m.decisions),
		Fallbacks:               copyCounts(m.fallbacks),
		AggregateWrites:         copyCounts(m.aggregateWrites),
		DecisionDurationCount:   atomic.LoadUint64(&m.decisionDurationCount),
		DecisionDurationTotalNs: atomic.LoadInt64(&m.decisionDurationTotalNs),
		ProjectCacheHits:        atomic.LoadUint64(&m.projectCacheHits),
		ProjectCacheMisses:      atomic.LoadUint64(&m.projectCacheMisses),
		EventsRecorded:          atomic.LoadUint64(&m.eventsRecorded),
	}
}

// IncDecision increments the counter for a decision outcome.
func (m *InMemoryRecorder) IncDecision(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[outcome]++
}

// IncFallback increments the counter for a fallback state.
func (m *InMemoryRecorder) IncFallback(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[state]++
}

// ObserveDecisionDuration records decision latency.
func (m *InMemoryRecorder) ObserveDecisionDuration(duration time.Duration) {
	atomic.AddUint64(&m.decisionDurationCount, 1)
	atomic.AddInt64(&m.decisionDurationTotalNs, duration.Nanoseconds())
}

// IncProjectCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncProjectCacheHit() {
	atomic.AddUint64(&m.projectCacheHits, 1)
}

// IncProjectCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncProjectCacheMiss() {
	atomic.AddUint64(&m.projectCacheMisses, 1)
}

// IncAggregateWrite increments the counter for an aggregate write status.
func (m *InMemoryRecorder) IncAggregateWrite(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateWrites[status]++
}

// IncEventRecorded increments the recorded event counter.
func (m *InMemoryRecorder) IncEventRecorded() {
	atomic.AddUint64(&m.eventsRecorded, 1)
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
