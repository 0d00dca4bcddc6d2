// Package targeting evaluates audience rules against a visit.
package targeting

import (
	"time"

	"github.com/splitroute/splitroute/internal/model"
)

// Evaluator evaluates targeting rules against visit contexts.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewEvaluatorAt creates an Evaluator with a fixed clock. Test helper.
func NewEvaluatorAt(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Evaluate runs every rule against the visit. It returns true only if
// all enabled rules matched, along with the identifiers of the enabled
// rules that did match (used for reporting). An empty rule list
// matches.
func (e *Evaluator) Evaluate(rules []model.TargetingRule, visit *model.VisitContext) (bool, []string) {
	allMatched := true
	var matched []string

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if e.matchRule(rule, visit) {
			matched = append(matched, rule.ID())
		} else {
			allMatched = false
		}
	}

	return allMatched, matched
}

// VariantEligible reports whether a variant may serve the visit: its
// own rules (if any) must all match, and the project's global rules
// (if any) must all match. Absence of rules at a level means "matches".
func (e *Evaluator) VariantEligible(project *model.Project, variant model.Variant, visit *model.VisitContext) (bool, []string) {
	globalOK, globalRules := e.Evaluate(project.TargetingRules, visit)
	if !globalOK {
		return false, nil
	}

	ownOK, ownRules := e.Evaluate(variant.TargetingRules, visit)
	if !ownOK {
		return false, nil
	}

	return true, append(globalRules, ownRules...)
}

// matchRule resolves the visit value for one rule and applies its
// operator.
func (e *Evaluator) matchRule(rule model.TargetingRule, visit *model.VisitContext) bool {
	var actual string

	switch rule.Type {
	case model.RuleTypeGeo:
		actual = resolveGeo(rule.Field, rule.Value, visit)
	case model.RuleTypeDevice:
		actual = resolveDevice(rule.Value, visit)
	case model.RuleTypeTime:
		actual = resolveTime(rule.Value, e.now())
	case model.RuleTypeReferrer:
		actual = resolveReferrer(rule.Value, visit)
	case model.RuleTypeUTM:
		actual = resolveUTM(rule.Field, visit)
	default:
		return false
	}

	return applyOperator(rule.Operator, actual, rule.Value)
}
