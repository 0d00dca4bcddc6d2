package fraud

import (
	"testing"

	"github.com/splitroute/splitroute/internal/model"
)

func fullBrowserVisit() *model.VisitContext {
	return &model.VisitContext{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		IP:             "198.51.100.7",
		AcceptLanguage: "en-US,en;q=0.9",
		Accept:         "text/html,application/xhtml+xml",
		AcceptEncoding: "gzip, deflate, br",
		Country:        "US",
	}
}

func TestScore_CleanBrowserScoresZero(t *testing.T) {
	t.Parallel()

	signal := Score(fullBrowserVisit())
	if signal.Score != 0 {
		t.Errorf("score = %d, want 0", signal.Score)
	}
	if signal.IsBot {
		t.Error("clean browser flagged as bot")
	}
}

func TestScore_BotUserAgents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
	}{
		{"curl", "curl/8.4.0"},
		{"wget", "Wget/1.21.4"},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"},
		{"python", "python-requests/2.31.0"},
		{"headless", "Mozilla/5.0 HeadlessChrome/120.0"},
		{"scraper", "MyScraper 1.0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			visit := fullBrowserVisit()
			visit.UserAgent = tt.ua

			if signal := Score(visit); !signal.IsBot {
				t.Errorf("UA %q not flagged as bot", tt.ua)
			}
		})
	}
}

func TestScore_Additive(t *testing.T) {
	t.Parallel()

	// Bot UA, short, no browser token, every header missing.
	visit := &model.VisitContext{UserAgent: "curl/8.4.0", IP: "198.51.100.7"}

	signal := Score(visit)
	// 40 + 15 + 10 + 10 + 20 + 15 = 110, capped.
	if signal.Score != 100 {
		t.Errorf("score = %d, want capped 100", signal.Score)
	}
}

func TestScore_MissingHeaders(t *testing.T) {
	t.Parallel()

	visit := fullBrowserVisit()
	visit.AcceptLanguage = ""
	visit.Accept = ""
	visit.AcceptEncoding = ""

	if signal := Score(visit); signal.Score != 35 {
		t.Errorf("score = %d, want 35", signal.Score)
	}
}

func TestScore_PrivateIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
		want int
	}{
		{"rfc1918", "192.168.1.50", scorePrivateIP},
		{"loopback", "127.0.0.1", scorePrivateIP},
		{"unspecified", "0.0.0.0", scorePrivateIP},
		{"public", "198.51.100.7", 0},
		{"garbage", "not-an-ip", 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			visit := fullBrowserVisit()
			visit.IP = tt.ip

			if signal := Score(visit); signal.Score != tt.want {
				t.Errorf("score = %d, want %d", signal.Score, tt.want)
			}
		})
	}
}

func TestScore_RiskyOrigin(t *testing.T) {
	t.Parallel()

	// High-risk country alone does not score.
	visit := fullBrowserVisit()
	visit.Country = "RU"
	if signal := Score(visit); signal.Score != 0 {
		t.Errorf("country alone scored %d, want 0", signal.Score)
	}

	// Hosting ASN alone does not score.
	visit = fullBrowserVisit()
	visit.ASN = "AS14061"
	if signal := Score(visit); signal.Score != 0 {
		t.Errorf("ASN alone scored %d, want 0", signal.Score)
	}

	// The combination does, including a bare ASN number.
	visit = fullBrowserVisit()
	visit.Country = "ru"
	visit.ASN = "14061"
	if signal := Score(visit); signal.Score != scoreRiskyOrigin {
		t.Errorf("combination scored %d, want %d", signal.Score, scoreRiskyOrigin)
	}
}

func TestScore_ShortUserAgent(t *testing.T) {
	t.Parallel()

	visit := fullBrowserVisit()
	visit.UserAgent = "Mozilla/5.0"

	// Short (+20) and carries a browser token, not a bot.
	if signal := Score(visit); signal.Score != scoreShortUserAgent {
		t.Errorf("score = %d, want %d", signal.Score, scoreShortUserAgent)
	}
}
