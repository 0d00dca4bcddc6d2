package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/store"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(kv, logger, nil), kv
}

func redirectDecision(label string) *model.Decision {
	return &model.Decision{
		DestinationURL:   "https://example.com/landing",
		MatchedLabel:     label,
		TargetingMatched: true,
		FallbackState:    model.FallbackTargeted,
		Status:           302,
	}
}

func recordedVisit() *model.VisitContext {
	return &model.VisitContext{
		UserAgent: "Mozilla/5.0 Chrome/120.0",
		IP:        "203.0.113.10",
		Country:   "US",
		SessionID: "sess-1",
	}
}

func counter(t *testing.T, kv store.KV, key string) int64 {
	t.Helper()
	raw, err := kv.Get(context.Background(), key)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	return n
}

func TestRecord_BumpsRollups(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	project := &model.Project{ID: "proj-1"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a.Record(ctx, project, redirectDecision("A"), recordedVisit())
	}

	assert.EqualValues(t, 3, counter(t, kv, "stats:proj-1:total"))
	assert.EqualValues(t, 3, counter(t, kv, "stats:proj-1:day:2026-03-10"))
	assert.EqualValues(t, 3, counter(t, kv, "stats:proj-1:week:2026-W11"))
	assert.EqualValues(t, 3, counter(t, kv, "stats:proj-1:month:2026-03"))
	assert.EqualValues(t, 3, counter(t, kv, "sub:proj-1:A"))
	assert.EqualValues(t, 3, counter(t, kv, "targeting:proj-1:hit"))
	assert.EqualValues(t, 0, counter(t, kv, "targeting:proj-1:miss"))
}

func TestRecord_GroupRollups(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	project := &model.Project{ID: "proj-1", GroupID: "grp-1"}
	a.Record(context.Background(), project, redirectDecision("A"), recordedVisit())

	assert.EqualValues(t, 1, counter(t, kv, "stats:group:grp-1:total"))
	assert.EqualValues(t, 1, counter(t, kv, "stats:group:grp-1:day:2026-03-10"))

	// No group, no group counters.
	b, bkv := newTestAggregator(t)
	b.Record(context.Background(), &model.Project{ID: "proj-2"}, redirectDecision("A"), recordedVisit())
	keys, err := bkv.List(context.Background(), groupPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRecord_FallbackSubLabel(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	decision := redirectDecision("")
	decision.TargetingMatched = false
	decision.FallbackState = model.FallbackSafeLink

	a.Record(context.Background(), &model.Project{ID: "proj-1"}, decision, recordedVisit())

	assert.EqualValues(t, 1, counter(t, kv, "sub:proj-1:(default)"))
	assert.EqualValues(t, 1, counter(t, kv, "targeting:proj-1:miss"))
}

func TestRecord_ABCountersOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Disabled test: no ab keys.
	a, kv := newTestAggregator(t)
	a.Record(ctx, &model.Project{ID: "proj-1"}, redirectDecision("A"), recordedVisit())
	keys, err := kv.List(ctx, abPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Enabled test: per-label and total counters.
	b, bkv := newTestAggregator(t)
	project := &model.Project{ID: "proj-1", ABTest: &model.ABTestConfig{Enabled: true}}
	b.Record(ctx, project, redirectDecision("A"), recordedVisit())
	b.Record(ctx, project, redirectDecision("B"), recordedVisit())
	b.Record(ctx, project, redirectDecision("A"), recordedVisit())

	assert.EqualValues(t, 2, counter(t, bkv, "ab:proj-1:A"))
	assert.EqualValues(t, 1, counter(t, bkv, "ab:proj-1:B"))
	assert.EqualValues(t, 3, counter(t, bkv, "ab:proj-1:__total"))

	// Unlabeled decisions stay out of the test counters.
	b.Record(ctx, project, redirectDecision(""), recordedVisit())
	assert.EqualValues(t, 3, counter(t, bkv, "ab:proj-1:__total"))
}

func TestRecordConversion(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	project := &model.Project{ID: "proj-1"}
	ctx := context.Background()

	a.RecordConversion(ctx, project, "A")
	a.RecordConversion(ctx, project, "A")
	a.RecordConversion(ctx, project, "")

	assert.EqualValues(t, 2, counter(t, kv, "ab:proj-1:A:conv"))
}

func TestAppendEvent_BoundedBuffer(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t)
	ctx := context.Background()

	for i := 0; i < model.EventBufferCap+10; i++ {
		row := a.buildEvent(time.Now(), redirectDecision("A"), recordedVisit())
		row.Destination = fmt.Sprintf("https://example.com/%d", i)
		a.appendEvent(ctx, "proj-1", row)
	}

	events, err := a.Events(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, events, model.EventBufferCap)

	// Oldest rows were evicted; the window starts at row 10.
	assert.Equal(t, "https://example.com/10", events[0].Destination)
	assert.Equal(t, fmt.Sprintf("https://example.com/%d", model.EventBufferCap+9), events[len(events)-1].Destination)
}

func TestAppendEvent_CorruptBufferRestarts(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, keyEvents("proj-1"), "{not json", 0))

	a.appendEvent(ctx, "proj-1", a.buildEvent(time.Now(), redirectDecision("A"), recordedVisit()))

	events, err := a.Events(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEvents_MissingBufferIsEmpty(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t)
	events, err := a.Events(context.Background(), "proj-none")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateReputation_AccumulatesAndBlacklists(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t)
	ctx := context.Background()
	ip := "203.0.113.99"

	for i := 0; i < 4; i++ {
		a.updateReputation(ctx, ip, 100)
	}
	assert.False(t, a.IsBlacklisted(ctx, ip), "below threshold")

	a.updateReputation(ctx, ip, 100)
	assert.True(t, a.IsBlacklisted(ctx, ip), "at threshold")

	// Unknown IPs are never blacklisted.
	assert.False(t, a.IsBlacklisted(ctx, "203.0.113.1"))
}

func TestStats_ReconcilesSubCounts(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	ctx := context.Background()

	project := &model.Project{
		ID: "proj-1",
		Variants: []model.Variant{
			{URL: "https://a.example.com", Label: "A"},
			{URL: "https://b.example.com", Label: "B"},
		},
	}

	// Two events in the buffer for A.
	a.Record(ctx, project, redirectDecision("A"), recordedVisit())
	a.Record(ctx, project, redirectDecision("A"), recordedVisit())

	// Persisted counter for A running ahead of the buffer recount, as
	// after a buffer eviction.
	require.NoError(t, kv.Put(ctx, keySub("proj-1", "A"), "7", 0))

	stats, err := a.Stats(ctx, project)
	require.NoError(t, err)

	assert.EqualValues(t, 7, stats.SubCounts["A"], "max of persisted and recounted")
	_, ok := stats.SubCounts["B"]
	assert.False(t, ok, "labels with no clicks are omitted")
	assert.EqualValues(t, 2, stats.Total)
	assert.Len(t, stats.RecentEvents, 2)
}

func TestStats_ActiveSessions(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t)
	ctx := context.Background()

	a.touchSession(ctx, "proj-1", "sess-1")
	a.touchSession(ctx, "proj-1", "sess-2")
	a.touchSession(ctx, "proj-1", "sess-2") // refresh, not a new session
	a.touchSession(ctx, "proj-2", "sess-3") // other project

	stats, err := a.Stats(ctx, &model.Project{ID: "proj-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveSessions)
}

func TestVariantStats_ConfiguredOrder(t *testing.T) {
	t.Parallel()

	a, kv := newTestAggregator(t)
	ctx := context.Background()

	project := &model.Project{
		ID: "proj-1",
		Variants: []model.Variant{
			{URL: "https://a.example.com", Label: "A"},
			{URL: "https://b.example.com", Label: "B"},
		},
	}

	require.NoError(t, kv.Put(ctx, keyAB("proj-1", "A"), "1000", 0))
	require.NoError(t, kv.Put(ctx, keyABConversions("proj-1", "A"), "50", 0))
	require.NoError(t, kv.Put(ctx, keyAB("proj-1", "B"), "1000", 0))
	require.NoError(t, kv.Put(ctx, keyABConversions("proj-1", "B"), "80", 0))

	stats := a.VariantStats(ctx, project)
	require.Len(t, stats, 2)
	assert.Equal(t, "A", stats[0].Label)
	assert.EqualValues(t, 1000, stats[0].Clicks)
	assert.EqualValues(t, 50, stats[0].Conversions)
	assert.Equal(t, "B", stats[1].Label)
	assert.EqualValues(t, 80, stats[1].Conversions)
}

func TestIsoWeek(t *testing.T) {
	t.Parallel()

	// 2026-01-01 falls in ISO week 2026-W01; 2027-01-01 falls in the
	// previous ISO year.
	assert.Equal(t, "2026-W01", isoWeek(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-W53", isoWeek(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}
