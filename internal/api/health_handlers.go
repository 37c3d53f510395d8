package api

import (
	"net/http"
)

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// @Summary      Health check
// @Description  Reports whether the share registry is reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.internalError(w, r, "Database unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
