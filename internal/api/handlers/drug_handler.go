package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scriptcycle/rxrecommender/internal/application/services"
)

// maxBatchSize caps a single batch normalization request
const maxBatchSize = 50

// DrugHandler handles drug name normalization HTTP requests
type DrugHandler struct {
	recommendations *services.RecommendationService
}

// NewDrugHandler creates a new drug handler
func NewDrugHandler(recommendations *services.RecommendationService) *DrugHandler {
	return &DrugHandler{
		recommendations: recommendations,
	}
}

// NormalizeDrug handles GET /api/drugs/normalize
func (h *DrugHandler) NormalizeDrug(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	result, err := h.recommendations.Normalize(r.Context(), name)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// NormalizeBatch handles POST /api/drugs/normalize/batch
func (h *DrugHandler) NormalizeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Names) == 0 {
		respondWithError(w, http.StatusBadRequest, "names must not be empty")
		return
	}
	if len(req.Names) > maxBatchSize {
		respondWithError(w, http.StatusBadRequest, "batch size exceeds the maximum of 50 names")
		return
	}

	items, err := h.recommendations.NormalizeBatch(r.Context(), req.Names)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
