package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncDecision is a no-op.
func (n *NoopRecorder) IncDecision(outcome string) {}

// IncFallback is a no-op.
func (n *NoopRecorder) IncFallback(state string) {}

// ObserveDecisionDuration is a no-op.
func (n *NoopRecorder) ObserveDecisionDuration(duration time.Duration) {}

// IncProjectCacheHit is a no-op.
func (n *NoopRecorder) IncProjectCacheHit() {}

// IncProjectCacheMiss is a no-op.
func (n *NoopRecorder) IncProjectCacheMiss() {}

// IncAggregateWrite is a no-op.
func (n *NoopRecorder) IncAggregateWrite(status string) {}

// IncEventRecorded is a no-op.
func (n *NoopRecorder) IncEventRecorded() {}
