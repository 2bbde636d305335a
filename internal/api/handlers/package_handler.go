package handlers

import (
	"net/http"
	"strconv"

	"github.com/scriptcycle/rxrecommender/internal/application/services"
)

// PackageHandler handles package fill analysis HTTP requests
type PackageHandler struct{}

// NewPackageHandler creates a new package handler
func NewPackageHandler() *PackageHandler {
	return &PackageHandler{}
}

// GetFillPrecision handles GET /api/packages/fill-precision
func (h *PackageHandler) GetFillPrecision(w http.ResponseWriter, r *http.Request) {
	packageQuantity, err := parseQuantityParam(r, "package_quantity")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	requiredQuantity, err := parseQuantityParam(r, "required_quantity")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := services.FillPrecision(packageQuantity, requiredQuantity)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

func parseQuantityParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &missingParamError{param: name}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &invalidParamError{param: name}
	}
	return value, nil
}

type missingParamError struct{ param string }

func (e *missingParamError) Error() string {
	return e.param + " query parameter is required"
}

type invalidParamError struct{ param string }

func (e *invalidParamError) Error() string {
	return e.param + " must be a number"
}
