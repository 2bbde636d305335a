package handlers

import (
	"net/http"

	"github.com/scriptcycle/rxrecommender/internal/adapters/cache"
	"github.com/scriptcycle/rxrecommender/internal/application/services"
)

// CacheHandler handles cache administration HTTP requests
type CacheHandler struct {
	store *cache.Store
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(store *cache.Store) *CacheHandler {
	return &CacheHandler{
		store: store,
	}
}

// InvalidateNamespace handles DELETE /api/cache/{namespace}
func (h *CacheHandler) InvalidateNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")
	switch namespace {
	case services.NamespaceNormalization, services.NamespacePackages:
	default:
		respondWithError(w, http.StatusNotFound, "unknown cache namespace")
		return
	}

	deleted, err := h.store.InvalidateNamespace(r.Context(), namespace)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"namespace": namespace,
		"deleted":   deleted,
	})
}
