package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aification/authsvc/pkg/api"
)

// ServiceName возвращается в GET /
const ServiceName = "aification-auth"

// HealthHandler обрабатывает root и health check запросы
type HealthHandler struct {
	logger *slog.Logger
	env    string
	clock  func() time.Time
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, env string) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		env:    env,
		clock:  time.Now,
	}
}

// Root обрабатывает GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, api.RootResponse{
		Service: ServiceName,
		Env:     h.env,
		OK:      true,
	}, http.StatusOK)
}

// Health обрабатывает GET /health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, api.HealthResponse{
		OK: true,
		TS: h.clock().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}
