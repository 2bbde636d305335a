package providers

import (
	"context"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
)

// PackageDirectoryProvider returns the orderable packages for a drug
// concept. Results may include inactive or discontinued entries; filtering
// is the caller's responsibility.
type PackageDirectoryProvider interface {
	PackagesForConcept(ctx context.Context, rxcui string) ([]entities.DrugPackage, error)
}
