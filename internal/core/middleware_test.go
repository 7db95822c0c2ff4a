package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"trailwatch/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestRecoverer_CatchesPanic(t *testing.T) {
	s := newTestServer(t)

	h := s.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("panic response is not valid JSON: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected internal error code, got %s", body.Error.Code)
	}
}

func TestRequestIDMiddleware_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("request ID missing from context")
	}
	if got := w.Result().Header.Get("X-Request-Id"); got != seen {
		t.Errorf("response header %q does not match context ID %q", got, seen)
	}
	if ok, _ := regexp.MatchString(`^[0-9a-f]{32}$`, seen); !ok {
		t.Errorf("generated ID %q is not 32 hex chars", seen)
	}
}

func TestRequestIDMiddleware_PropagatesIncoming(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "client-chosen-id")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if seen != "client-chosen-id" {
		t.Errorf("expected incoming ID to be reused, got %q", seen)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	s := newTestServer(t)

	h := s.SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	headers := w.Result().Header
	if headers.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options missing")
	}
	if headers.Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options missing")
	}
}

func TestContextTimeoutMiddleware(t *testing.T) {
	var deadlineSet bool
	h := ContextTimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !deadlineSet {
		t.Error("expected a deadline on the request context")
	}
}

// --- Health ---

type fakeProbe struct {
	name string
	err  error
	slow time.Duration
}

func (p fakeProbe) Name() string { return p.name }

func (p fakeProbe) Check(ctx context.Context) error {
	if p.slow > 0 {
		select {
		case <-time.After(p.slow):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	s := newTestServer(t)
	s.HealthProbes = []HealthProbe{
		fakeProbe{name: "database"},
		fakeProbe{name: "queue"},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %s", body.Status)
	}
	if body.Components["database"].Status != "healthy" {
		t.Error("database component should be healthy")
	}
}

func TestHandleHealth_OneUnhealthy(t *testing.T) {
	s := newTestServer(t)
	s.HealthProbes = []HealthProbe{
		fakeProbe{name: "database"},
		fakeProbe{name: "queue", err: errors.New("sqs unreachable")},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Components["queue"].Message != "sqs unreachable" {
		t.Errorf("unexpected queue message: %q", body.Components["queue"].Message)
	}
}

func TestHandleHealth_NoProbes(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("expected status 200 with no probes, got %d", w.Result().StatusCode)
	}
}

func TestShutdown_RunsClosers(t *testing.T) {
	s := newTestServer(t)

	var order []string
	s.OnShutdown(func(ctx context.Context) error {
		order = append(order, "first")
		return errors.New("close failed")
	})
	s.OnShutdown(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	err := s.Shutdown(context.Background())
	if err == nil || err.Error() != "close failed" {
		t.Errorf("expected first closer error, got %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected both closers to run, got %v", order)
	}
}
