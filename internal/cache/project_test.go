package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/splitroute/splitroute/internal/model"
)

func testProject(code string) *model.Project {
	return &model.Project{ID: "id-" + code, Code: code}
}

func TestProjectCache_GetSet(t *testing.T) {
	t.Parallel()

	c := New(time.Minute, 10)

	if got := c.Get("promo"); got != nil {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("promo", testProject("promo"))
	got := c.Get("promo")
	if got == nil || got.Code != "promo" {
		t.Errorf("Get = %v, want cached project", got)
	}
}

func TestProjectCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	c := New(30*time.Second, 10)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("promo", testProject("promo"))

	current = current.Add(29 * time.Second)
	if c.Get("promo") == nil {
		t.Fatal("entry expired early")
	}

	current = current.Add(2 * time.Second)
	if c.Get("promo") != nil {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, len = %d", c.Len())
	}
}

func TestProjectCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := New(time.Minute, 10)
	c.Set("promo", testProject("promo"))
	c.Invalidate("promo")

	if c.Get("promo") != nil {
		t.Error("expected miss after invalidation")
	}
}

func TestProjectCache_BoundedSize(t *testing.T) {
	t.Parallel()

	c := New(time.Minute, 3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("code-%d", i), testProject(fmt.Sprintf("code-%d", i)))
	}

	// Full, nothing expired: the new entry is dropped.
	c.Set("overflow", testProject("overflow"))
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
	if c.Get("overflow") != nil {
		t.Error("overflow entry should have been dropped")
	}

	// Updating an existing key is always allowed.
	c.Set("code-0", testProject("code-0"))
	if c.Get("code-0") == nil {
		t.Error("existing key update dropped")
	}
}

func TestProjectCache_EvictsExpiredWhenFull(t *testing.T) {
	t.Parallel()

	c := New(30*time.Second, 2)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("old", testProject("old"))
	current = current.Add(time.Minute)
	c.Set("fresh", testProject("fresh"))

	// "old" is expired; the new entry reclaims its slot.
	c.Set("new", testProject("new"))
	if c.Get("new") == nil {
		t.Error("new entry should have replaced the expired one")
	}
	if c.Get("fresh") == nil {
		t.Error("fresh entry evicted")
	}
}

func TestProjectCache_ZeroConfigDefaults(t *testing.T) {
	t.Parallel()

	c := New(0, 0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %s, want %s", c.ttl, DefaultTTL)
	}
	if c.maxEntries != DefaultMaxEntries {
		t.Errorf("maxEntries = %d, want %d", c.maxEntries, DefaultMaxEntries)
	}
}
