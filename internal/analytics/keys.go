// Package analytics records accepted clicks into aggregate counters
// and a bounded per-project event buffer, and derives reports from
// them.
package analytics

import (
	"fmt"
	"time"
)

// Store key prefixes. Every key is namespaced by project id, group id,
// IP, session id or time bucket.
const (
	statsPrefix     = "stats:"
	groupPrefix     = "stats:group:"
	subPrefix       = "sub:"
	targetingPrefix = "targeting:"
	abPrefix        = "ab:"
	eventsPrefix    = "events:"
	sessionPrefix   = "session:"
	repPrefix       = "iprep:"

	// abTotalField is the pseudo-label for a test's total counter.
	abTotalField = "__total"
)

func keyTotal(projectID string) string {
	return statsPrefix + projectID + ":total"
}

func keyDay(projectID string, t time.Time) string {
	return statsPrefix + projectID + ":day:" + t.UTC().Format("2006-01-02")
}

func keyWeek(projectID string, t time.Time) string {
	return statsPrefix + projectID + ":week:" + isoWeek(t)
}

func keyMonth(projectID string, t time.Time) string {
	return statsPrefix + projectID + ":month:" + t.UTC().Format("2006-01")
}

func keyGroupTotal(groupID string) string {
	return groupPrefix + groupID + ":total"
}

func keyGroupDay(groupID string, t time.Time) string {
	return groupPrefix + groupID + ":day:" + t.UTC().Format("2006-01-02")
}

func keyGroupWeek(groupID string, t time.Time) string {
	return groupPrefix + groupID + ":week:" + isoWeek(t)
}

func keyGroupMonth(groupID string, t time.Time) string {
	return groupPrefix + groupID + ":month:" + t.UTC().Format("2006-01")
}

func keySub(projectID, label string) string {
	return subPrefix + projectID + ":" + label
}

func keyTargeting(projectID string, matched bool) string {
	if matched {
		return targetingPrefix + projectID + ":hit"
	}
	return targetingPrefix + projectID + ":miss"
}

func keyAB(projectID, label string) string {
	return abPrefix + projectID + ":" + label
}

func keyABConversions(projectID, label string) string {
	return abPrefix + projectID + ":" + label + ":conv"
}

func keyEvents(projectID string) string {
	return eventsPrefix + projectID
}

func keySession(projectID, sessionID string) string {
	return sessionPrefix + projectID + ":" + sessionID
}

func keyReputation(ip string) string {
	return repPrefix + ip
}

// isoWeek formats a time as its ISO 8601 week, e.g. "2026-W36".
func isoWeek(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
