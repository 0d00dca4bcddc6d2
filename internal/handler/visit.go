package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/splitroute/splitroute/internal/model"
)

// SessionCookie carries the visitor session id across clicks.
const SessionCookie = "sr_session"

// Edge-supplied hint headers. Country follows the Cloudflare
// convention; the rest are set by the fronting proxy.
const (
	headerCountry    = "CF-IPCountry"
	headerCity       = "X-Geo-City"
	headerRegion     = "X-Geo-Region"
	headerDeviceType = "X-Device-Type"
	headerASN        = "X-ASN"
)

// buildVisitContext extracts the decision signals from a request.
// Missing headers stay empty; the fraud scorer treats absence as a
// signal, never an error.
func buildVisitContext(r *http.Request) *model.VisitContext {
	params := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}

	return &model.VisitContext{
		UserAgent:      r.Header.Get("User-Agent"),
		IP:             getClientIP(r),
		Referrer:       r.Header.Get("Referer"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Accept:         r.Header.Get("Accept"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		QueryParams:    params,
		SessionID:      sessionID(r),
		Country:        r.Header.Get(headerCountry),
		City:           r.Header.Get(headerCity),
		Region:         r.Header.Get(headerRegion),
		DeviceType:     r.Header.Get(headerDeviceType),
		ASN:            r.Header.Get(headerASN),
	}
}

// sessionID reads the session cookie, minting a fresh id when absent.
// Selection is never pinned to the session; the id only scopes rate
// limits and active-session markers.
func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return uuid.New().String()
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	// Check X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	// Check X-Real-IP
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}
