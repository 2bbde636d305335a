package providers

import (
	"context"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
)

// AdvisorRequest carries the algorithmic selection and its drug context
// to the AI reasoning dependency.
type AdvisorRequest struct {
	Rxcui            string
	DrugName         string
	DosageForm       string
	RequiredQuantity float64
	Selection        entities.PackageSelection
	Candidates       []entities.DrugPackage
}

// AdvisorResponse is the reasoning dependency's answer. RecommendedNDC
// must refer to one of the request's candidate packages and Confidence
// must be within [0, 1]; responses violating either are discarded by the
// enhancement layer.
type AdvisorResponse struct {
	RecommendedNDC   string
	Confidence       float64
	Reasoning        string
	EstimatedCostUSD float64
}

// RecommendationAdvisor is the external AI reasoning dependency.
// Implementations enforce their own wire protocol and rate limits; the
// enhancement layer enforces the timeout and validates the response shape.
type RecommendationAdvisor interface {
	Advise(ctx context.Context, req AdvisorRequest) (*AdvisorResponse, error)
}
