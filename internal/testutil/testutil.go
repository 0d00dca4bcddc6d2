package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/splitroute/splitroute/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetProjectsSchema drops and recreates the projects schema for tests.
func ResetProjectsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", "000001_projects.down.sql")
	upPath := filepath.Join(root, "migrations", "000001_projects.up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProject creates a single-variant project with sensible defaults.
func NewTestProject(t testing.TB, code string) *model.Project {
	t.Helper()
	now := time.Now().UTC()
	return &model.Project{
		ID:   fmt.Sprintf("proj-%d", now.UnixNano()),
		Code: code,
		Variants: []model.Variant{
			{URL: "https://example.com/" + code, Label: "A"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestProjectWithVariants creates a project with the given weighted
// variants. Weights follow the order of the weights slice; a negative
// weight leaves the variant unassigned.
func NewTestProjectWithVariants(t testing.TB, code string, weights ...int) *model.Project {
	t.Helper()
	p := NewTestProject(t, code)
	p.Variants = make([]model.Variant, 0, len(weights))
	for i, w := range weights {
		v := model.Variant{
			URL:   fmt.Sprintf("https://example.com/%s/%c", code, 'a'+rune(i)),
			Label: string(rune('A' + i)),
		}
		if w >= 0 {
			weight := w
			v.Weight = &weight
		}
		p.Variants = append(p.Variants, v)
	}
	return p
}

// NewTestVisit creates a plausible desktop browser visit.
func NewTestVisit(t testing.TB) *model.VisitContext {
	t.Helper()
	return &model.VisitContext{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		IP:             "203.0.113.10",
		AcceptLanguage: "en-US,en;q=0.9",
		Accept:         "text/html,application/xhtml+xml",
		AcceptEncoding: "gzip, deflate, br",
		Country:        "US",
		SessionID:      UniqueID("sess"),
		QueryParams:    map[string]string{},
	}
}

// NewBotVisit creates a visit that should trip the bot heuristics.
func NewBotVisit(t testing.TB) *model.VisitContext {
	t.Helper()
	return &model.VisitContext{
		UserAgent:   "curl/8.4.0",
		IP:          "203.0.113.11",
		SessionID:   UniqueID("sess"),
		QueryParams: map[string]string{},
	}
}

// UniqueCode generates a unique short code for tests.
func UniqueCode(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
