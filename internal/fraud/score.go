// Package fraud provides the per-visit risk heuristics: an additive
// 0-100 fraud score, a bot flag, and TTL-counter rate limiting.
package fraud

import (
	"net"
	"regexp"
	"strings"

	"github.com/splitroute/splitroute/internal/model"
)

// Score contributions. The heuristic is additive and capped at 100.
const (
	scoreBotUserAgent     = 40
	scoreNoAcceptLanguage = 15
	scoreNoAccept         = 10
	scoreNoAcceptEncoding = 10
	scoreShortUserAgent   = 20
	scoreNoBrowserToken   = 15
	scorePrivateIP        = 25
	scoreRiskyOrigin      = 20

	// minUserAgentLength is the UA length below which the visit looks
	// scripted.
	minUserAgentLength = 20
)

// botPattern matches known bot, crawler and scripting user agents.
var botPattern = regexp.MustCompile(`(?i)bot|crawler|spider|scraper|curl|wget|python|java/|go-http|headless|phantom|selenium|puppeteer|playwright|httpclient|okhttp`)

// browserTokens are the substrings a real browser UA carries at least
// one of.
var browserTokens = []string{"mozilla", "chrome", "safari", "firefox", "edge", "opera"}

// HighRiskCountries is the fixed high-risk origin set. Only scored in
// combination with a hosting ASN. Hard-coded heuristic, configurable
// by assignment.
var HighRiskCountries = map[string]bool{
	"CN": true, "RU": true, "VN": true, "ID": true, "PK": true, "NG": true,
}

// HostingASNs is the fixed list of known hosting/VPN autonomous
// systems. Hard-coded heuristic, configurable by assignment.
var HostingASNs = map[string]bool{
	"AS14061":  true, // DigitalOcean
	"AS16509":  true, // Amazon
	"AS15169":  true, // Google
	"AS8075":   true, // Microsoft
	"AS16276":  true, // OVH
	"AS24940":  true, // Hetzner
	"AS9009":   true, // M247
	"AS212238": true, // Datacamp
}

// Score computes the fraud signal for a visit. It never errors: absent
// or malformed inputs only raise the score.
func Score(visit *model.VisitContext) model.FraudSignal {
	score := 0
	isBot := botPattern.MatchString(visit.UserAgent)

	if isBot {
		score += scoreBotUserAgent
	}
	if visit.AcceptLanguage == "" {
		score += scoreNoAcceptLanguage
	}
	if visit.Accept == "" {
		score += scoreNoAccept
	}
	if visit.AcceptEncoding == "" {
		score += scoreNoAcceptEncoding
	}
	if len(visit.UserAgent) < minUserAgentLength {
		score += scoreShortUserAgent
	}
	if !hasBrowserToken(visit.UserAgent) {
		score += scoreNoBrowserToken
	}
	if isPrivateIP(visit.IP) {
		score += scorePrivateIP
	}
	if HighRiskCountries[strings.ToUpper(visit.Country)] && HostingASNs[normalizeASN(visit.ASN)] {
		score += scoreRiskyOrigin
	}

	if score > 100 {
		score = 100
	}

	return model.FraudSignal{Score: score, IsBot: isBot}
}

// hasBrowserToken reports whether the UA carries a common browser
// token.
func hasBrowserToken(ua string) bool {
	ua = strings.ToLower(ua)
	for _, token := range browserTokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}

// isPrivateIP reports whether the client IP parses into a private or
// loopback range. Unparseable IPs are not penalized here; they already
// score through the header heuristics.
func isPrivateIP(raw string) bool {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified()
}

// normalizeASN upper-cases and prefixes a bare ASN number with "AS".
func normalizeASN(asn string) string {
	asn = strings.ToUpper(strings.TrimSpace(asn))
	if asn == "" {
		return ""
	}
	if !strings.HasPrefix(asn, "AS") {
		asn = "AS" + asn
	}
	return asn
}
