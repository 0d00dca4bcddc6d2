package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Ping(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db         HealthChecker
		store      HealthChecker
		wantStatus int
	}{
		{"all healthy", &fakeChecker{}, &fakeChecker{}, http.StatusOK},
		{"db down", &fakeChecker{err: errors.New("refused")}, &fakeChecker{}, http.StatusServiceUnavailable},
		{"store down", &fakeChecker{}, &fakeChecker{err: errors.New("refused")}, http.StatusServiceUnavailable},
		{"not configured is not a failure", nil, &fakeChecker{}, http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthHandler(tt.db, tt.store)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(resp.Checks) != 2 {
				t.Errorf("checks = %v, want both dependencies reported", resp.Checks)
			}
		})
	}
}
