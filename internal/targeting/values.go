package targeting

import (
	"strings"
	"time"

	"github.com/splitroute/splitroute/internal/model"
)

// MajorCountries is the fixed set used by the geo OTHER special case:
// a visitor country outside this set resolves to "OTHER". Hard-coded
// heuristic, kept configurable by assignment.
var MajorCountries = map[string]bool{
	"US": true, "GB": true, "CA": true, "AU": true, "DE": true,
	"FR": true, "ES": true, "IT": true, "NL": true, "SE": true,
	"BR": true, "MX": true, "IN": true, "JP": true, "KR": true,
	"CN": true, "RU": true, "PL": true, "TR": true,
}

// mailDomains are referrer hosts classified as "email".
var mailDomains = []string{
	"mail.google.com", "outlook.live.com", "outlook.office.com",
	"mail.yahoo.com", "mail.aol.com", "webmail", "mail.proton.me",
}

// socialDomains are referrer hosts classified as "social".
var socialDomains = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com", "t.co",
	"linkedin.com", "pinterest.com", "reddit.com", "tiktok.com",
	"youtube.com", "snapchat.com", "threads.net", "whatsapp.com",
	"telegram.org", "t.me",
}

// searchDomains are referrer hosts classified as "search".
var searchDomains = []string{
	"google.", "bing.com", "duckduckgo.com", "yahoo.com", "yandex.",
	"baidu.com", "ecosia.org", "brave.com", "startpage.com",
}

// resolveGeo returns the visit value for a geo rule field. The OTHER
// special case only applies when the rule expects "OTHER" on the
// country field.
func resolveGeo(field, expected string, visit *model.VisitContext) string {
	switch strings.ToLower(field) {
	case "city":
		return visit.City
	case "region":
		return visit.Region
	default: // country
		country := strings.ToUpper(visit.Country)
		if strings.EqualFold(expected, "OTHER") {
			if country != "" && !MajorCountries[country] {
				return "OTHER"
			}
		}
		return country
	}
}

// resolveDevice returns the symbolic device token at the granularity
// the rule expects. OS and platform checks are more specific than the
// coarse desktop/mobile/tablet classification and take precedence when
// asked for.
func resolveDevice(expected string, visit *model.VisitContext) string {
	ua := strings.ToLower(visit.UserAgent)

	switch strings.ToLower(expected) {
	case "ios":
		if strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod") {
			return "ios"
		}
	case "android":
		if strings.Contains(ua, "android") {
			return "android"
		}
	case "windows":
		if strings.Contains(ua, "windows") {
			return "windows"
		}
	case "macos":
		if strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os") {
			return "macos"
		}
	case "linux":
		if strings.Contains(ua, "linux") && !strings.Contains(ua, "android") {
			return "linux"
		}
	}

	return classifyDevice(visit)
}

// classifyDevice infers desktop/mobile/tablet. The edge-supplied
// device type wins over the user-agent heuristic.
func classifyDevice(visit *model.VisitContext) string {
	if dt := strings.ToLower(visit.DeviceType); dt == "desktop" || dt == "mobile" || dt == "tablet" {
		return dt
	}

	ua := strings.ToLower(visit.UserAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

// resolveTime derives the symbolic bucket for the granularity the rule
// expects, from the current UTC time.
func resolveTime(expected string, now time.Time) string {
	now = now.UTC()
	hour := now.Hour()
	weekday := now.Weekday()

	switch strings.ToLower(expected) {
	case "weekday", "weekend":
		if weekday == time.Saturday || weekday == time.Sunday {
			return "weekend"
		}
		return "weekday"
	case "business":
		if hour >= 9 && hour < 17 && weekday != time.Saturday && weekday != time.Sunday {
			return "business"
		}
		return "after_hours"
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return strings.ToLower(weekday.String())
	case "q1", "q2", "q3", "q4":
		quarter := (int(now.Month())-1)/3 + 1
		return "q" + string(rune('0'+quarter))
	default:
		// Daypart buckets.
		switch {
		case hour >= 5 && hour < 12:
			return "morning"
		case hour >= 12 && hour < 17:
			return "afternoon"
		case hour >= 17 && hour < 21:
			return "evening"
		default:
			return "night"
		}
	}
}

// resolveReferrer classifies the referrer when the rule expects a
// category (direct/email/social/search); otherwise the raw referrer is
// returned for generic operator matching.
func resolveReferrer(expected string, visit *model.VisitContext) string {
	ref := strings.TrimSpace(visit.Referrer)

	switch strings.ToLower(expected) {
	case "direct":
		if ref == "" {
			return "direct"
		}
		return "referred"
	case "email", "mail":
		if hostMatchesAny(ref, mailDomains) {
			return strings.ToLower(expected)
		}
		return ref
	case "social":
		if hostMatchesAny(ref, socialDomains) {
			return "social"
		}
		return ref
	case "search":
		if hostMatchesAny(ref, searchDomains) {
			return "search"
		}
		return ref
	default:
		return ref
	}
}

// hostMatchesAny reports whether the referrer URL's host contains any
// of the listed domain fragments.
func hostMatchesAny(ref string, domains []string) bool {
	host := referrerHost(ref)
	if host == "" {
		return false
	}
	for _, domain := range domains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}

// referrerHost extracts a lowercased host from a referrer URL without
// erroring on garbage input.
func referrerHost(ref string) string {
	ref = strings.ToLower(ref)
	if idx := strings.Index(ref, "://"); idx >= 0 {
		ref = ref[idx+3:]
	}
	if idx := strings.IndexAny(ref, "/?#"); idx >= 0 {
		ref = ref[:idx]
	}
	return ref
}

// resolveUTM reads the named query parameter. Field names may be given
// with or without the utm_ prefix.
func resolveUTM(field string, visit *model.VisitContext) string {
	if visit.QueryParams == nil {
		return ""
	}
	name := strings.ToLower(field)
	if !strings.HasPrefix(name, "utm_") {
		name = "utm_" + name
	}
	return visit.QueryParams[name]
}
