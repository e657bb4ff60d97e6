package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/rytkhs/event-pay-sub006/internal/application"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	var gotActor application.Actor
	handler := requestIDMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = actorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/payouts/history", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/payouts/history", nil)
		req.Header.Set("Authorization", "Bearer not-a-uuid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("plain user", func(t *testing.T) {
		subject := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/payouts/history", nil)
		req.Header.Set("Authorization", "Bearer "+subject.String())
		req.Header.Set("X-Request-Id", "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if gotActor.SubjectID != subject || gotActor.Role != "user" {
			t.Fatalf("actor = %+v, want user %s", gotActor, subject)
		}
		if gotActor.RequestID != "req-42" {
			t.Fatalf("request id = %q, want the forwarded header", gotActor.RequestID)
		}
	})

	t.Run("admin prefix", func(t *testing.T) {
		subject := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/payouts/history", nil)
		req.Header.Set("Authorization", "Bearer admin:"+subject.String())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if !gotActor.Admin() {
			t.Fatalf("actor = %+v, want admin", gotActor)
		}
	})

	t.Run("system prefix", func(t *testing.T) {
		subject := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/payouts/history", nil)
		req.Header.Set("Authorization", "Bearer system:"+subject.String())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if !gotActor.System() {
			t.Fatalf("actor = %+v, want system", gotActor)
		}
	})
}

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	t.Parallel()

	var gotID string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = requestIDFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if gotID == "" {
		t.Fatal("a request id must be generated when none is forwarded")
	}
	if _, err := uuid.Parse(gotID); err != nil {
		t.Fatalf("generated id %q is not a uuid", gotID)
	}
}
