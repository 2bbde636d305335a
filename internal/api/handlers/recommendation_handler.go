package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scriptcycle/rxrecommender/internal/application/services"
	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
)

// RecommendationHandler handles package recommendation HTTP requests
type RecommendationHandler struct {
	recommendations *services.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendations *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
	}
}

// CreateRecommendation handles POST /api/recommendations
func (h *RecommendationHandler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	var req entities.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recommendation, err := h.recommendations.Recommend(r.Context(), req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, recommendation)
}

// GetAdvisorUsage handles GET /api/recommendations/advisor-usage
func (h *RecommendationHandler) GetAdvisorUsage(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.recommendations.AdvisorUsage())
}
