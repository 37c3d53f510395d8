package api

import (
	"cloud-doc/internal/auth"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPI_AuthRequired(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/preview/a.pdf"},
		{http.MethodGet, "/download/a.pdf"},
		{http.MethodGet, "/files"},
		{http.MethodDelete, "/files/a.pdf"},
		{http.MethodPost, "/share-folder"},
		{http.MethodGet, "/shared-accesses"},
		{http.MethodDelete, "/clear-shared-accesses"},
	}

	headers := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", "Missing or invalid Authorization header"},
		{"basic scheme", "Basic YWxpY2U6c2VjcmV0", "Missing or invalid Authorization header"},
		{"empty bearer", "Bearer ", "Missing or invalid Authorization header"},
		{"unknown token", "Bearer forged", "Invalid or expired token"},
	}

	for _, route := range routes {
		for _, h := range headers {
			t.Run(route.method+" "+route.target+" "+h.name, func(t *testing.T) {
				req := httptest.NewRequest(route.method, route.target, nil)
				if h.header != "" {
					req.Header.Set("Authorization", h.header)
				}
				rr := httptest.NewRecorder()
				env.handler.ServeHTTP(rr, req)

				require.Equal(t, http.StatusUnauthorized, rr.Code)
				require.Equal(t, h.want, decode[ErrorResponse](t, rr).Error)
			})
		}
	}

	require.Zero(t, env.gateway.callCount(), "no backend call before authentication")
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	env := newTestEnv(t)

	var got *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	env.server.AuthMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	require.Equal(t, aliceEmail, got.Email)
	require.Nil(t, GetUserFromContext(context.Background()))
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", "", nil, "")
	require.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestAPI_Health(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	env.store.Close()
	rr = env.do(t, http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAPI_Metrics(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/files", aliceToken, nil, "")

	rr := env.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `clouddoc_http_requests_total{method="GET",route="/files",status="200"}`)
}

func TestAPI_CORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/files", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	require.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/files", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
