package fraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/store"
)

// Rate limit key prefixes and TTLs. TTLs outlive the bucket they
// protect so expiry is the only cleanup needed.
const (
	rateLimitIPPrefix      = "ratelimit:ip:"
	rateLimitSessionPrefix = "ratelimit:session:"

	rateLimitIPTTL      = 2 * time.Hour
	rateLimitSessionTTL = 24 * time.Hour
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed bool
	Reason  string
}

var allowed = LimitResult{Allowed: true}

// Limiter enforces per-IP and per-session click ceilings using TTL'd
// counters in the key-value store. Counters are read-then-write: a
// concurrent visit may slip past the ceiling by one, which is accepted.
type Limiter struct {
	kv  store.KV
	now func() time.Time
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(kv store.KV) *Limiter {
	return &Limiter{kv: kv, now: time.Now}
}

// NewLimiterAt creates a Limiter with a fixed clock. Test helper.
func NewLimiterAt(kv store.KV, now func() time.Time) *Limiter {
	return &Limiter{kv: kv, now: now}
}

// Check increments and checks both counters for the visit. If fraud
// protection is disabled on the project it always allows. An increment
// that tipped the counter over the ceiling is not rolled back.
func (l *Limiter) Check(ctx context.Context, project *model.Project, visit *model.VisitContext) LimitResult {
	if !project.FraudEnabled() {
		return allowed
	}
	cfg := project.FraudProtection

	if cfg.MaxClicksPerIPHour > 0 && visit.IP != "" {
		key := l.ipKey(project.ID, visit.IP)
		count := l.bump(ctx, key, rateLimitIPTTL)
		if count > int64(cfg.MaxClicksPerIPHour) {
			return LimitResult{
				Allowed: false,
				Reason:  fmt.Sprintf("IP click limit reached (%d per hour)", cfg.MaxClicksPerIPHour),
			}
		}
	}

	if cfg.MaxClicksPerSession > 0 && visit.SessionID != "" {
		key := rateLimitSessionPrefix + project.ID + ":" + visit.SessionID
		count := l.bump(ctx, key, rateLimitSessionTTL)
		if count > int64(cfg.MaxClicksPerSession) {
			return LimitResult{
				Allowed: false,
				Reason:  fmt.Sprintf("session click limit reached (%d)", cfg.MaxClicksPerSession),
			}
		}
	}

	return allowed
}

// ipKey namespaces the IP counter by project, hashed IP and the
// current hour bucket.
func (l *Limiter) ipKey(projectID, ip string) string {
	bucket := l.now().UTC().Format("2006010215")
	return rateLimitIPPrefix + projectID + ":" + hashIP(ip) + ":" + bucket
}

// bump reads, increments and writes back a counter. The store offers
// no atomic increment; concurrent bumps may lose updates. Store errors
// fail open (count 0) so Redis trouble never blocks redirects.
func (l *Limiter) bump(ctx context.Context, key string, ttl time.Duration) int64 {
	var count int64
	if raw, err := l.kv.Get(ctx, key); err == nil {
		count, _ = strconv.ParseInt(raw, 10, 64)
	}
	count++
	if err := l.kv.Put(ctx, key, strconv.FormatInt(count, 10), ttl); err != nil {
		return 0
	}
	return count
}

// hashIP creates a truncated SHA256 hash of an IP address. Keeps raw
// IPs out of store keys while preserving uniqueness.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
