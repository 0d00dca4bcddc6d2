package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/splitroute/splitroute/internal/metrics"
	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/store"
)

const (
	// RecordTimeout bounds a detached Record invocation.
	RecordTimeout = 2 * time.Second

	// sessionTTL keeps the active-session marker alive between clicks.
	sessionTTL = 30 * time.Minute

	// reputationTTL ages out idle IP reputation records.
	reputationTTL = 30 * 24 * time.Hour

	// BlacklistThreshold is the accumulated fraud score at which an IP
	// is auto-blacklisted.
	BlacklistThreshold = 500

	// subLabelFallback is the sub-counter label for decisions without
	// a variant label.
	subLabelFallback = "(default)"
)

// Aggregator records accepted clicks. All writes go through the
// key-value store's read-then-write cycle; concurrent writers can lose
// updates, which reporting reconciles. Storage failures are logged and
// swallowed: aggregation must never fail or delay a redirect.
type Aggregator struct {
	kv      store.KV
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAggregator creates an Aggregator. A nil recorder falls back to
// no-op metrics.
func NewAggregator(kv store.KV, logger *slog.Logger, recorder metrics.Recorder) *Aggregator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Aggregator{
		kv:      kv,
		logger:  logger.With("component", "analytics.aggregator"),
		metrics: recorder,
		now:     time.Now,
	}
}

// RecordAsync records a decision without blocking the caller. The
// redirect must never wait on aggregation; a dropped record simply
// does not update its counters, with no retry.
func (a *Aggregator) RecordAsync(project *model.Project, decision *model.Decision, visit *model.VisitContext) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), RecordTimeout)
		defer cancel()
		a.Record(ctx, project, decision, visit)
	}()
}

// Record updates the rollup counters, appends the event row, and bumps
// the A/B counters for one accepted decision, then dispatches the
// best-effort session and reputation updates.
func (a *Aggregator) Record(ctx context.Context, project *model.Project, decision *model.Decision, visit *model.VisitContext) {
	now := a.now()

	a.bump(ctx, keyTotal(project.ID))
	a.bump(ctx, keyDay(project.ID, now))
	a.bump(ctx, keyWeek(project.ID, now))
	a.bump(ctx, keyMonth(project.ID, now))

	if project.GroupID != "" {
		a.bump(ctx, keyGroupTotal(project.GroupID))
		a.bump(ctx, keyGroupDay(project.GroupID, now))
		a.bump(ctx, keyGroupWeek(project.GroupID, now))
		a.bump(ctx, keyGroupMonth(project.GroupID, now))
	}

	a.bump(ctx, keySub(project.ID, subLabel(decision)))
	a.bump(ctx, keyTargeting(project.ID, decision.TargetingMatched))

	if project.ABTestEnabled() && decision.MatchedLabel != "" {
		a.bump(ctx, keyAB(project.ID, decision.MatchedLabel))
		a.bump(ctx, keyAB(project.ID, abTotalField))
	}

	a.appendEvent(ctx, project.ID, a.buildEvent(now, decision, visit))

	// Secondary updates are fire-and-forget even relative to Record:
	// they carry no delivery guarantee.
	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), RecordTimeout)
		defer cancel()
		a.touchSession(sctx, project.ID, visit.SessionID)
		a.updateReputation(sctx, visit.IP, decision.Fraud.Score)
	}()
}

// RecordConversion bumps the conversion counter for a variant label.
// Invoked by the tracking pixel on the destination page.
func (a *Aggregator) RecordConversion(ctx context.Context, project *model.Project, label string) {
	if label == "" {
		return
	}
	a.bump(ctx, keyABConversions(project.ID, label))
}

// buildEvent assembles the event row for the bounded buffer.
func (a *Aggregator) buildEvent(now time.Time, decision *model.Decision, visit *model.VisitContext) model.EventRow {
	return model.EventRow{
		ID:          ulid.Make().String(),
		Timestamp:   now.UTC(),
		Label:       decision.MatchedLabel,
		Destination: decision.DestinationURL,
		UserAgent:   visit.UserAgent,
		IP:          visit.IP,
		Country:     visit.Country,
		City:        visit.City,
		Region:      visit.Region,
		Device:      visit.DeviceType,
		Referrer:    visit.Referrer,
		UTMSource:   visit.QueryParams["utm_source"],
		UTMMedium:   visit.QueryParams["utm_medium"],
		UTMCampaign: visit.QueryParams["utm_campaign"],
		FraudScore:  decision.Fraud.Score,
		IsBot:       decision.Fraud.IsBot,
		SessionID:   visit.SessionID,
	}
}

// appendEvent appends a row to the project's event buffer, evicting
// the oldest rows past the cap. Read-modify-write: two concurrent
// appends can lose one row, which the sliding window tolerates.
func (a *Aggregator) appendEvent(ctx context.Context, projectID string, row model.EventRow) {
	key := keyEvents(projectID)

	var events []model.EventRow
	if raw, err := a.kv.Get(ctx, key); err == nil {
		if err := json.Unmarshal([]byte(raw), &events); err != nil {
			// Corrupt buffer: start over rather than fail the click.
			events = nil
		}
	}

	events = append(events, row)
	if len(events) > model.EventBufferCap {
		events = events[len(events)-model.EventBufferCap:]
	}

	data, err := json.Marshal(events)
	if err != nil {
		a.dropped(key, err)
		return
	}
	if err := a.kv.Put(ctx, key, string(data), 0); err != nil {
		a.dropped(key, err)
		return
	}

	a.metrics.IncEventRecorded()
}

// touchSession refreshes the short-TTL active session marker.
func (a *Aggregator) touchSession(ctx context.Context, projectID, sessionID string) {
	if sessionID == "" {
		return
	}
	key := keySession(projectID, sessionID)
	if err := a.kv.Put(ctx, key, strconv.FormatInt(a.now().Unix(), 10), sessionTTL); err != nil {
		a.dropped(key, err)
	}
}

// updateReputation maintains the per-IP record: clicks seen, first and
// last seen, accumulated fraud score, auto-blacklist once the score
// crosses the threshold.
func (a *Aggregator) updateReputation(ctx context.Context, ip string, fraudScore int) {
	if ip == "" {
		return
	}
	key := keyReputation(ip)
	now := a.now().UTC()

	rep := model.IPReputation{IP: ip, FirstSeen: now}
	if raw, err := a.kv.Get(ctx, key); err == nil {
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			rep = model.IPReputation{IP: ip, FirstSeen: now}
		}
	}

	rep.Clicks++
	rep.LastSeen = now
	rep.FraudTotal += int64(fraudScore)
	if rep.FraudTotal >= BlacklistThreshold {
		rep.Blacklisted = true
	}

	data, err := json.Marshal(rep)
	if err != nil {
		a.dropped(key, err)
		return
	}
	if err := a.kv.Put(ctx, key, string(data), reputationTTL); err != nil {
		a.dropped(key, err)
	}
}

// IsBlacklisted reports whether an IP's reputation record crossed the
// blacklist threshold. Store errors read as "not blacklisted".
func (a *Aggregator) IsBlacklisted(ctx context.Context, ip string) bool {
	raw, err := a.kv.Get(ctx, keyReputation(ip))
	if err != nil {
		return false
	}
	var rep model.IPReputation
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return false
	}
	return rep.Blacklisted
}

// bump increments a counter key in place. No atomic increment exists
// on the store contract, so concurrent bumps can lose updates; totals
// are approximate by design.
func (a *Aggregator) bump(ctx context.Context, key string) {
	var count int64
	if raw, err := a.kv.Get(ctx, key); err == nil {
		count, _ = strconv.ParseInt(raw, 10, 64)
	}
	count++

	if err := a.kv.Put(ctx, key, strconv.FormatInt(count, 10), 0); err != nil {
		a.dropped(key, err)
		return
	}
	a.metrics.IncAggregateWrite("success")
}

// dropped logs and counts a swallowed storage failure.
func (a *Aggregator) dropped(key string, err error) {
	a.metrics.IncAggregateWrite("dropped")
	a.logger.Warn("aggregate write dropped", "key", key, "error", err)
}

// subLabel maps a decision to its sub-counter label.
func subLabel(decision *model.Decision) string {
	if decision.MatchedLabel != "" {
		return decision.MatchedLabel
	}
	return subLabelFallback
}
