package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps a pipeline error onto an HTTP status. Unknown
// errors are never echoed back to the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondWithJSON(w, statusForKind(appErr.Kind), map[string]string{
		"error": appErr.Message,
		"code":  string(appErr.Kind),
	})
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindNoMatch, apperrors.KindNoPackages:
		return http.StatusNotFound
	case apperrors.KindCircuitOpen, apperrors.KindCacheUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindDependencyTimeout:
		return http.StatusGatewayTimeout
	case apperrors.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
