package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuildVisitContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/promo?utm_source=newsletter&utm_campaign=spring", nil)
	req.Header.Set("User-Agent", "TestBrowser/2.0")
	req.Header.Set("Referer", "https://facebook.com/groups/x")
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("CF-IPCountry", "DE")
	req.Header.Set("X-Geo-City", "Berlin")
	req.Header.Set("X-Device-Type", "mobile")
	req.Header.Set("X-ASN", "AS14061")
	req.RemoteAddr = "203.0.113.10:52314"

	visit := buildVisitContext(req)

	if visit.UserAgent != "TestBrowser/2.0" {
		t.Errorf("UserAgent = %q", visit.UserAgent)
	}
	if visit.Referrer != "https://facebook.com/groups/x" {
		t.Errorf("Referrer = %q", visit.Referrer)
	}
	if visit.Country != "DE" || visit.City != "Berlin" {
		t.Errorf("geo = %q/%q", visit.Country, visit.City)
	}
	if visit.DeviceType != "mobile" {
		t.Errorf("DeviceType = %q", visit.DeviceType)
	}
	if visit.ASN != "AS14061" {
		t.Errorf("ASN = %q", visit.ASN)
	}
	if visit.QueryParams["utm_source"] != "newsletter" {
		t.Errorf("utm_source = %q", visit.QueryParams["utm_source"])
	}
	if visit.SessionID == "" {
		t.Error("expected a minted session id")
	}
}

func TestSessionID_CookieWins(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/promo", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-abc"})

	if got := sessionID(req); got != "sess-abc" {
		t.Errorf("sessionID = %q, want cookie value", got)
	}
}

func TestSessionID_MintedWhenAbsent(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/promo", nil)

	a := sessionID(req)
	b := sessionID(req)
	if a == "" || b == "" {
		t.Fatal("expected minted ids")
	}
	if a == b {
		t.Error("minted ids should be unique per call")
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare header wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Forwarded-For": "203.0.113.2"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.1",
		},
		{
			name:    "first forwarded ip",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.2, 10.0.0.5, 10.0.0.6"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.2",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-IP": "203.0.113.3"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.3",
		},
		{
			name:   "remote addr last",
			remote: "203.0.113.4:1234",
			want:   "203.0.113.4:1234",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/promo", nil)
			req.RemoteAddr = tt.remote
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
