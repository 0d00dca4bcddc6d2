package model

import "time"

// EventBufferCap is the fixed size of the per-project event buffer.
// Oldest rows are evicted first; this is a sliding window, not a history.
const EventBufferCap = 50

// EventRow is one accepted click, appended to the project's bounded
// event buffer.
type EventRow struct {
	ID          string    `json:"id"` // ULID (time-sortable)
	Timestamp   time.Time `json:"ts"`
	Label       string    `json:"label,omitempty"`
	Destination string    `json:"dest"`
	UserAgent   string    `json:"ua,omitempty"`
	IP          string    `json:"ip,omitempty"`
	Country     string    `json:"country,omitempty"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	Device      string    `json:"device,omitempty"`
	Referrer    string    `json:"ref,omitempty"`
	UTMSource   string    `json:"utm_source,omitempty"`
	UTMMedium   string    `json:"utm_medium,omitempty"`
	UTMCampaign string    `json:"utm_campaign,omitempty"`
	FraudScore  int       `json:"fraud_score"`
	IsBot       bool      `json:"is_bot"`
	SessionID   string    `json:"session_id,omitempty"`
}

// IPReputation is the lightweight per-IP record maintained best-effort
// by the aggregator. Blacklisted flips once the accumulated fraud score
// crosses the blacklist threshold.
type IPReputation struct {
	IP          string    `json:"ip"`
	Clicks      int64     `json:"clicks"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	FraudTotal  int64     `json:"fraud_total"`
	Blacklisted bool      `json:"blacklisted"`
}

// ProjectStats is the reporting view over a project's counters and
// event buffer. Sub-counts are reconciled (max of persisted counter and
// buffer recount) because independent read-modify-writes can diverge.
type ProjectStats struct {
	ProjectID      string           `json:"project_id"`
	Total          int64            `json:"total"`
	Today          int64            `json:"today"`
	ThisWeek       int64            `json:"this_week"`
	ThisMonth      int64            `json:"this_month"`
	TargetingHits  int64            `json:"targeting_hits"`
	TargetingMisses int64           `json:"targeting_misses"`
	SubCounts      map[string]int64 `json:"sub_counts,omitempty"`
	ActiveSessions int              `json:"active_sessions"`
	RecentEvents   []EventRow       `json:"recent_events,omitempty"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// VariantStats is the raw (clicks, conversions) input to the A/B
// analyzer for one variant.
type VariantStats struct {
	Label       string `json:"label"`
	Clicks      int64  `json:"clicks"`
	Conversions int64  `json:"conversions"`
}

// ABTestResult is the derived significance report for one variant
// against the control. Never stored; computed on demand.
type ABTestResult struct {
	Label          string  `json:"label"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	ZScore         float64 `json:"z_score"`
	PValue         float64 `json:"p_value"`
	Confidence     float64 `json:"confidence"`
	IsSignificant  bool    `json:"is_significant"`
	Lift           float64 `json:"lift"`
	IsControl      bool    `json:"is_control"`
}
