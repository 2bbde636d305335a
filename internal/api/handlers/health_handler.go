package handlers

import (
	"net/http"

	"github.com/scriptcycle/rxrecommender/internal/application/services"
)

// HealthHandler reports service liveness and dependency state
type HealthHandler struct {
	enhancer *services.AIEnhancementService
	version  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(enhancer *services.AIEnhancementService, version string) *HealthHandler {
	return &HealthHandler{
		enhancer: enhancer,
		version:  version,
	}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.enhancer != nil {
		payload["advisor"] = map[string]interface{}{
			"enabled":       h.enhancer.Enabled(),
			"breaker_state": string(h.enhancer.BreakerState()),
			"usage":         h.enhancer.Usage(),
		}
	}
	respondWithJSON(w, http.StatusOK, payload)
}
