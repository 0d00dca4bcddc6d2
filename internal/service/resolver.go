package service

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/splitroute/splitroute/internal/fraud"
	"github.com/splitroute/splitroute/internal/metrics"
	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/targeting"
)

// DefaultBlockScore is the fraud score at or above which a visit is
// rejected when the project has protection enabled.
const DefaultBlockScore = 70

// ReputationChecker reports whether an IP has been auto-blacklisted by
// the aggregator's reputation tracking.
type ReputationChecker interface {
	IsBlacklisted(ctx context.Context, ip string) bool
}

// Resolver runs the decision pipeline for one visit: rate limit and
// fraud gates, targeting evaluation, then weighted variant selection
// with the fallback chain. It never blocks on background writes and
// never errors; every outcome is a Decision.
type Resolver struct {
	limiter    *fraud.Limiter
	evaluator  *targeting.Evaluator
	reputation ReputationChecker
	logger     *slog.Logger
	metrics    metrics.Recorder
	blockScore int

	// randInt is swappable in tests for deterministic picks.
	randInt func(n int) int
}

// NewResolver creates a Resolver. A nil recorder falls back to no-op
// metrics; blockScore <= 0 falls back to DefaultBlockScore.
func NewResolver(limiter *fraud.Limiter, evaluator *targeting.Evaluator, reputation ReputationChecker, blockScore int, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if blockScore <= 0 {
		blockScore = DefaultBlockScore
	}
	return &Resolver{
		limiter:    limiter,
		evaluator:  evaluator,
		reputation: reputation,
		logger:     logger.With("component", "service.resolver"),
		metrics:    recorder,
		blockScore: blockScore,
		randInt:    rand.Intn,
	}
}

// Resolve decides the destination for one visit. The decision is
// re-evaluated independently on every visit; there is no session
// pinning.
func (r *Resolver) Resolve(ctx context.Context, project *model.Project, visit *model.VisitContext) *model.Decision {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDecisionDuration(time.Since(start))
	}()

	signal := fraud.Score(visit)

	if project.IsExpired() {
		return r.blocked(project, signal, "link expired", http.StatusGone, "expired")
	}
	if project.IsExhausted() {
		return r.blocked(project, signal, "click limit reached", http.StatusGone, "exhausted")
	}
	if len(project.Variants) == 0 {
		return r.blocked(project, signal, "no destinations configured", http.StatusNotFound, "no_variants")
	}

	if project.FraudEnabled() {
		if r.reputation != nil && visit.IP != "" && r.reputation.IsBlacklisted(ctx, visit.IP) {
			return r.blocked(project, signal, "IP blacklisted", http.StatusForbidden, "blacklisted")
		}
		if project.FraudProtection.BlockBots && signal.IsBot {
			return r.blocked(project, signal, "bot detected", http.StatusForbidden, "bot")
		}
		if signal.Score >= r.blockScore {
			return r.blocked(project, signal, "fraud score too high", http.StatusForbidden, "fraud")
		}
	}

	if limit := r.limiter.Check(ctx, project, visit); !limit.Allowed {
		return r.blocked(project, signal, limit.Reason, http.StatusTooManyRequests, "rate_limited")
	}

	decision := r.selectVariant(project, visit)
	decision.Fraud = signal
	decision.Status = http.StatusFound

	r.metrics.IncDecision("redirect")
	r.metrics.IncFallback(string(decision.FallbackState))

	return decision
}

// selectVariant walks the fallback chain: targeting-matched weighted
// pick, safe-link-variant weighted pick, synthetic project safe link,
// unconditional first variant.
func (r *Resolver) selectVariant(project *model.Project, visit *model.VisitContext) *model.Decision {
	variants := project.Variants
	if normalized, err := NormalizeWeights(variants); err == nil {
		variants = normalized
	}

	// State 1: variants whose own + global targeting match.
	var eligible []candidate
	for _, v := range variants {
		if ok, rules := r.evaluator.VariantEligible(project, v, visit); ok {
			eligible = append(eligible, candidate{variant: v, rules: rules})
		}
	}
	if len(eligible) > 0 {
		chosen := r.pickWeighted(eligible)
		return &model.Decision{
			DestinationURL:   chosen.variant.URL,
			MatchedLabel:     chosen.variant.Label,
			TargetingMatched: true,
			MatchedRules:     chosen.rules,
			FallbackState:    model.FallbackTargeted,
		}
	}

	// State 2: variants that declare their own safe link.
	var safe []candidate
	for _, v := range variants {
		if v.SafeLink != "" {
			safe = append(safe, candidate{variant: v})
		}
	}
	if len(safe) > 0 {
		chosen := r.pickWeighted(safe)
		return &model.Decision{
			DestinationURL: chosen.variant.SafeLink,
			MatchedLabel:   chosen.variant.Label,
			FallbackState:  model.FallbackSafeVariant,
		}
	}

	// State 3: synthetic 100%-weight variant on the project safe link.
	if project.SafeLink != "" {
		return &model.Decision{
			DestinationURL: project.SafeLink,
			FallbackState:  model.FallbackSafeLink,
		}
	}

	// State 4: first configured variant, unconditionally. Guarantees a
	// response whenever at least one variant exists.
	first := variants[0]
	return &model.Decision{
		DestinationURL: first.URL,
		MatchedLabel:   first.Label,
		FallbackState:  model.FallbackFirst,
	}
}

type candidate struct {
	variant model.Variant
	rules   []string
}

// pickWeighted draws r uniform in [0, totalWeight) and walks the list
// subtracting each weight, returning the first candidate where the
// remainder goes below zero.
func (r *Resolver) pickWeighted(candidates []candidate) candidate {
	total := 0
	for _, c := range candidates {
		total += c.variant.WeightValue()
	}
	if total <= 0 {
		return candidates[0]
	}

	draw := r.randInt(total)
	for _, c := range candidates {
		draw -= c.variant.WeightValue()
		if draw < 0 {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// blocked builds a deny decision and records its outcome.
func (r *Resolver) blocked(project *model.Project, signal model.FraudSignal, reason string, status int, outcome string) *model.Decision {
	r.metrics.IncDecision(outcome)
	r.logger.Info("visit blocked",
		"project_id", project.ID,
		"reason", reason,
		"fraud_score", signal.Score,
		"is_bot", signal.IsBot,
	)
	return &model.Decision{
		Blocked:     true,
		BlockReason: reason,
		Status:      status,
		Fraud:       signal,
	}
}
