package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gilbertlabs/gilbert/internal/config"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHandleRoot(t *testing.T) {
	s := New(config.ServerConfig{}, nil)

	rec := httptest.NewRecorder()
	s.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestHandleRootUnknownPath(t *testing.T) {
	s := New(config.ServerConfig{}, nil)

	rec := httptest.NewRecorder()
	s.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealthzAllHealthy(t *testing.T) {
	s := New(config.ServerConfig{}, nil)
	s.Register("slack", &stubPinger{})
	s.Register("openai", &stubPinger{})

	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("status = %q", status.Status)
	}
	if status.Dependencies["slack"] != "ok" || status.Dependencies["openai"] != "ok" {
		t.Errorf("dependencies = %v", status.Dependencies)
	}
}

func TestHandleHealthzDegraded(t *testing.T) {
	s := New(config.ServerConfig{}, nil)
	s.Register("sheets", &stubPinger{err: errors.New("403 forbidden")})
	s.Register("openai", &stubPinger{})

	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, process is still alive", rec.Code)
	}

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if status.Dependencies["sheets"] != "403 forbidden" {
		t.Errorf("sheets = %q", status.Dependencies["sheets"])
	}
	if status.Dependencies["openai"] != "ok" {
		t.Errorf("openai = %q", status.Dependencies["openai"])
	}
}
