package api

import (
	"cloud-doc/internal/auth"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const (
	userContextKey    = contextKey("user")
	requestContextKey = contextKey("request")
)

const requestIDHeader = "X-Request-ID"

// requestInfo is filled in while the request travels down the chain so the
// access log can report the caller.
type requestInfo struct {
	id    string
	email string
}

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		user, err := s.verifier.Verify(r.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if info, ok := r.Context().Value(requestContextKey).(*requestInfo); ok {
			info.email = user.Email
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserFromContext(ctx context.Context) *auth.Identity {
	if user, ok := ctx.Value(userContextKey).(*auth.Identity); ok {
		return user
	}
	return nil
}

// RequestLogger tags each request with an id and writes one access log line
// when it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		info := &requestInfo{id: r.Header.Get(requestIDHeader)}
		if info.id == "" {
			info.id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, info.id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := context.WithValue(r.Context(), requestContextKey, info)

		next.ServeHTTP(ww, r.WithContext(ctx))

		attrs := []any{
			"request_id", info.id,
			"method", r.Method,
			"route", routePattern(r),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if info.email != "" {
			attrs = append(attrs, "user", info.email)
		}

		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "request", attrs...)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
