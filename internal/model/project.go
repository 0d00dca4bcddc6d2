// Package model defines domain entities for the application.
package model

import "time"

// ProjectStatus represents the computed status of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusExpired   ProjectStatus = "expired"
	ProjectStatusExhausted ProjectStatus = "exhausted"
)

// RuleType classifies what part of the visit a targeting rule inspects.
type RuleType string

const (
	RuleTypeGeo      RuleType = "geo"
	RuleTypeDevice   RuleType = "device"
	RuleTypeTime     RuleType = "time"
	RuleTypeReferrer RuleType = "referrer"
	RuleTypeUTM      RuleType = "utm"
)

// RuleOperator is the string predicate applied by a targeting rule.
type RuleOperator string

const (
	OpEquals        RuleOperator = "equals"
	OpContains      RuleOperator = "contains"
	OpStartsWith    RuleOperator = "starts_with"
	OpEndsWith      RuleOperator = "ends_with"
	OpRegex         RuleOperator = "regex"
	OpNotEquals     RuleOperator = "not_equals"
	OpNotContains   RuleOperator = "not_contains"
	OpNotStartsWith RuleOperator = "not_starts_with"
	OpNotEndsWith   RuleOperator = "not_ends_with"
)

// TargetingRule is a typed predicate evaluated against a visit.
// A disabled rule is vacuously satisfied.
type TargetingRule struct {
	Type     RuleType     `json:"type"`
	Field    string       `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    string       `json:"value"`
	Enabled  bool         `json:"enabled"`
}

// ID returns the rule identifier used in match reporting.
func (r TargetingRule) ID() string {
	return string(r.Type) + ":" + r.Field + ":" + r.Value
}

// Variant is one candidate destination with a weight and optional
// targeting and safe-link overrides.
type Variant struct {
	URL            string          `json:"url"`
	Weight         *int            `json:"weight,omitempty"` // nil = auto-assign
	Label          string          `json:"label,omitempty"`
	TargetingRules []TargetingRule `json:"targeting_rules,omitempty"`
	SafeLink       string          `json:"safe_link,omitempty"`
	CustomDomain   string          `json:"custom_domain,omitempty"`
}

// WeightValue returns the assigned weight, or 0 when unassigned.
func (v Variant) WeightValue() int {
	if v.Weight == nil {
		return 0
	}
	return *v.Weight
}

// HasWeight reports whether the weight was explicitly assigned.
func (v Variant) HasWeight() bool {
	return v.Weight != nil
}

// FraudProtectionConfig holds per-project fraud and rate-limit settings.
type FraudProtectionConfig struct {
	Enabled             bool `json:"enabled"`
	MaxClicksPerIPHour  int  `json:"max_clicks_per_ip_hour,omitempty"`
	MaxClicksPerSession int  `json:"max_clicks_per_session,omitempty"`
	BlockBots           bool `json:"block_bots"`
}

// ABTestConfig marks a project as running an A/B test over its variants.
type ABTestConfig struct {
	Enabled   bool       `json:"enabled"`
	Goal      string     `json:"goal,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Project is a short link with weighted destination variants. It is owned by
// the CRUD layer; the decision engine reads it and increments ClickCount.
type Project struct {
	ID              string                 `json:"id"`
	GroupID         string                 `json:"group_id,omitempty"`
	Code            string                 `json:"code"`
	Variants        []Variant              `json:"variants"`
	TargetingRules  []TargetingRule        `json:"targeting_rules,omitempty"`
	SafeLink        string                 `json:"safe_link,omitempty"`
	FraudProtection *FraudProtectionConfig `json:"fraud_protection,omitempty"`
	ABTest          *ABTestConfig          `json:"ab_test,omitempty"`
	ClickCount      int64                  `json:"click_count"`
	ClickLimit      *int64                 `json:"click_limit,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Status computes the current status of the project.
func (p *Project) Status() ProjectStatus {
	if p.IsExpired() {
		return ProjectStatusExpired
	}
	if p.IsExhausted() {
		return ProjectStatusExhausted
	}
	return ProjectStatusActive
}

// IsExpired returns true if the project has passed its expiry timestamp.
func (p *Project) IsExpired() bool {
	return p.ExpiresAt != nil && time.Now().After(*p.ExpiresAt)
}

// IsExhausted returns true if the project reached its click ceiling.
func (p *Project) IsExhausted() bool {
	return p.ClickLimit != nil && p.ClickCount >= *p.ClickLimit
}

// FraudEnabled reports whether fraud protection is configured and on.
func (p *Project) FraudEnabled() bool {
	return p.FraudProtection != nil && p.FraudProtection.Enabled
}

// ABTestEnabled reports whether an A/B test is configured and on.
func (p *Project) ABTestEnabled() bool {
	return p.ABTest != nil && p.ABTest.Enabled
}
