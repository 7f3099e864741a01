package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReadiness_AllHealthy(t *testing.T) {
	c := New(time.Second)
	c.Register("rule_store", func(ctx context.Context) error { return nil })
	c.Register("audit_store", func(ctx context.Context) error { return nil })

	status := c.Readiness(context.Background())

	if status.Status != "ready" {
		t.Errorf("Status = %q, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(status.Checks))
	}
	for name, result := range status.Checks {
		if result.Status != "ok" {
			t.Errorf("check %s = %q, want ok", name, result.Status)
		}
	}
}

func TestReadiness_DegradedOnFailure(t *testing.T) {
	c := New(time.Second)
	c.Register("rule_store", func(ctx context.Context) error { return nil })
	c.Register("audit_store", func(ctx context.Context) error {
		return errors.New("database is locked")
	})

	status := c.Readiness(context.Background())

	if status.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", status.Status)
	}
	if status.Checks["audit_store"].Message != "database is locked" {
		t.Errorf("Message = %q", status.Checks["audit_store"].Message)
	}
}

func TestReadiness_Timeout(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Readiness(context.Background())

	if status.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", status.Status)
	}
}

func TestReadiness_NoChecks(t *testing.T) {
	c := New(time.Second)
	if got := c.Readiness(context.Background()).Status; got != "ready" {
		t.Errorf("Status = %q, want ready", got)
	}
}

func TestEndpoints(t *testing.T) {
	c := New(time.Second)
	c.Register("registry", func(ctx context.Context) error { return nil })

	mux := http.NewServeMux()
	Mount(mux, c, "1.2.0")

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/version", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestReadinessHandler_DegradedReturns503(t *testing.T) {
	c := New(time.Second)
	c.Register("audit_store", func(ctx context.Context) error {
		return errors.New("unreachable")
	})

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", status.Status)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.0")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if info.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should be populated")
	}
}

func TestHandlers_RejectPost(t *testing.T) {
	c := New(time.Second)
	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
