package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error" example:"File not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"All shared accesses cleared"`
}

type URLResponse struct {
	URL string `json:"url" example:"https://storage.googleapis.com/cloud-doc-bucket/alice_at_example_dot_com/report.pdf?X-Goog-Signature=..."`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// internalError logs err and answers 500 with msg. The error text is only
// sent to the client when server.expose_errors is set.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	attrs := []any{"error", err, "path", r.URL.Path}
	if user := GetUserFromContext(r.Context()); user != nil {
		attrs = append(attrs, "user", user.Email)
	}
	slog.ErrorContext(r.Context(), msg, attrs...)

	if s.config != nil && s.config.Server.ExposeErrors {
		msg = fmt.Sprintf("%s: %s", msg, err)
	}
	writeError(w, http.StatusInternalServerError, msg)
}
