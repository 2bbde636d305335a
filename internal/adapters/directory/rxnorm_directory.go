// Package directory provides package directory adapters. The engine can
// source NDC package records either from the terminology service directly
// or from a local PostgreSQL mirror of the directory.
package directory

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/rxnorm"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
)

// RxNormDirectoryAdapter sources package records from the terminology service
type RxNormDirectoryAdapter struct {
	client  *rxnorm.Client
	metrics *observability.Metrics
}

// NewRxNormDirectoryAdapter creates a new terminology-backed directory adapter
func NewRxNormDirectoryAdapter(client *rxnorm.Client, metrics *observability.Metrics) providers.PackageDirectoryProvider {
	return &RxNormDirectoryAdapter{
		client:  client,
		metrics: metrics,
	}
}

// packagingPattern matches the leading quantity and unit of a packaging
// description such as "30 TABLET in 1 BOTTLE" or "118.25 ML in 1 BOTTLE".
var packagingPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s+([A-Za-z]+)`)

// PackagesForConcept returns the package records for a concept, including
// inactive entries; filtering is left to the caller.
func (a *RxNormDirectoryAdapter) PackagesForConcept(ctx context.Context, rxcui string) ([]entities.DrugPackage, error) {
	start := time.Now()
	records, err := a.client.NDCProperties(ctx, rxcui)
	if a.metrics != nil {
		observability.RecordDirectoryMetric(ctx, a.metrics, "rxnorm", time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	packages := make([]entities.DrugPackage, 0, len(records))
	for _, record := range records {
		size, ok := parsePackaging(record.Packaging)
		if !ok {
			// Records without a parseable quantity cannot participate
			// in quantity-based selection.
			continue
		}
		packages = append(packages, entities.DrugPackage{
			NDC:             record.NDC,
			Size:            size,
			DosageForm:      record.DosageForm,
			Active:          strings.EqualFold(record.Status, "ACTIVE"),
			MarketingStatus: record.Status,
		})
	}
	return packages, nil
}

// parsePackaging extracts the dispensable quantity from the first
// packaging description that carries one.
func parsePackaging(descriptions []string) (entities.PackageSize, bool) {
	for _, description := range descriptions {
		match := packagingPattern.FindStringSubmatch(description)
		if match == nil {
			continue
		}
		quantity, err := strconv.ParseFloat(match[1], 64)
		if err != nil || quantity <= 0 {
			continue
		}
		return entities.PackageSize{
			Quantity: quantity,
			Unit:     strings.ToUpper(match[2]),
		}, true
	}
	return entities.PackageSize{}, false
}
