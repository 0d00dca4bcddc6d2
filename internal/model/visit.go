package model

// VisitContext carries the per-request signals a decision is made from.
// Geo and device hints come from the network edge; everything else is
// read straight off the request.
type VisitContext struct {
	UserAgent      string            `json:"user_agent"`
	IP             string            `json:"ip"`
	Referrer       string            `json:"referrer,omitempty"`
	AcceptLanguage string            `json:"accept_language,omitempty"`
	Accept         string            `json:"accept,omitempty"`
	AcceptEncoding string            `json:"accept_encoding,omitempty"`
	QueryParams    map[string]string `json:"query_params,omitempty"`
	SessionID      string            `json:"session_id,omitempty"`

	// Edge-supplied hints.
	Country    string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	ASN        string `json:"asn,omitempty"`
}

// FraudSignal is the per-visit risk estimate. Computed fresh on every
// visit, never persisted on the project.
type FraudSignal struct {
	Score int  `json:"score"` // 0-100
	IsBot bool `json:"is_bot"`
}

// FallbackState identifies which stage of the selector chain produced
// the decision.
type FallbackState string

const (
	FallbackTargeted    FallbackState = "targeted"
	FallbackSafeVariant FallbackState = "safe_variant"
	FallbackSafeLink    FallbackState = "safe_link"
	FallbackFirst       FallbackState = "first_variant"
)

// Decision is the outcome of resolving one visit, handed to the HTTP
// layer which issues the redirect (or the error status).
type Decision struct {
	DestinationURL   string        `json:"destination_url"`
	MatchedLabel     string        `json:"matched_label,omitempty"`
	TargetingMatched bool          `json:"targeting_matched"`
	MatchedRules     []string      `json:"matched_rules,omitempty"`
	FallbackState    FallbackState `json:"fallback_state,omitempty"`
	Blocked          bool          `json:"blocked"`
	BlockReason      string        `json:"block_reason,omitempty"`
	Status           int           `json:"status"` // HTTP status signalled upward
	Fraud            FraudSignal   `json:"fraud"`
}
