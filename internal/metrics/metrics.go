// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Decision pipeline metrics. Outcome is "redirect" or the block
	// reason ("fraud", "bot", "blacklisted", "rate_limited",
	// "expired", "exhausted", "no_variants").
	IncDecision(outcome string)
	IncFallback(state string)
	ObserveDecisionDuration(duration time.Duration)

	// Project lookup metrics
	IncProjectCacheHit()
	IncProjectCacheMiss()

	// Aggregation metrics. Status is "success" or "dropped".
	IncAggregateWrite(status string)
	IncEventRecorded()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
