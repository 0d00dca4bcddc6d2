package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/splitroute/splitroute/internal/model"
)

// Stats builds the reporting view for a project. Sub-counts are
// recomputed from the event buffer where possible and reconciled with
// the persisted counters by taking the maximum of the two: under
// concurrent writers either side can run behind.
func (a *Aggregator) Stats(ctx context.Context, project *model.Project) (*model.ProjectStats, error) {
	now := a.now()

	events, err := a.Events(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("read event buffer: %w", err)
	}

	subCounts := make(map[string]int64)
	for _, row := range events {
		label := row.Label
		if label == "" {
			label = subLabelFallback
		}
		subCounts[label]++
	}

	// Reconcile with persisted sub-counters; include labels the buffer
	// window no longer covers.
	for _, v := range project.Variants {
		labels := []string{subLabelFallback}
		if v.Label != "" {
			labels = []string{v.Label}
		}
		for _, label := range labels {
			persisted := a.readCounter(ctx, keySub(project.ID, label))
			if persisted > subCounts[label] {
				subCounts[label] = persisted
			} else if persisted == 0 && subCounts[label] == 0 {
				delete(subCounts, label)
			}
		}
	}

	sessions, err := a.kv.List(ctx, sessionPrefix+project.ID+":")
	if err != nil {
		sessions = nil
	}

	return &model.ProjectStats{
		ProjectID:       project.ID,
		Total:           a.readCounter(ctx, keyTotal(project.ID)),
		Today:           a.readCounter(ctx, keyDay(project.ID, now)),
		ThisWeek:        a.readCounter(ctx, keyWeek(project.ID, now)),
		ThisMonth:       a.readCounter(ctx, keyMonth(project.ID, now)),
		TargetingHits:   a.readCounter(ctx, keyTargeting(project.ID, true)),
		TargetingMisses: a.readCounter(ctx, keyTargeting(project.ID, false)),
		SubCounts:       subCounts,
		ActiveSessions:  len(sessions),
		RecentEvents:    events,
		GeneratedAt:     now.UTC(),
	}, nil
}

// Events returns the project's bounded event buffer, oldest first. A
// missing buffer is an empty slice, not an error.
func (a *Aggregator) Events(ctx context.Context, projectID string) ([]model.EventRow, error) {
	raw, err := a.kv.Get(ctx, keyEvents(projectID))
	if err != nil {
		return nil, nil
	}

	var events []model.EventRow
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, fmt.Errorf("decode event buffer: %w", err)
	}
	return events, nil
}

// VariantStats reads the A/B counters for every variant of a project,
// in configured order (the first variant is the control).
func (a *Aggregator) VariantStats(ctx context.Context, project *model.Project) []model.VariantStats {
	stats := make([]model.VariantStats, 0, len(project.Variants))
	for _, v := range project.Variants {
		label := v.Label
		if label == "" {
			label = subLabelFallback
		}
		stats = append(stats, model.VariantStats{
			Label:       label,
			Clicks:      a.readCounter(ctx, keyAB(project.ID, v.Label)),
			Conversions: a.readCounter(ctx, keyABConversions(project.ID, v.Label)),
		})
	}
	return stats
}

// readCounter reads a counter key; missing or garbled reads count as
// zero.
func (a *Aggregator) readCounter(ctx context.Context, key string) int64 {
	raw, err := a.kv.Get(ctx, key)
	if err != nil {
		return 0
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
