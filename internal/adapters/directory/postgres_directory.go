package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/postgres"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

// PostgresDirectoryAdapter sources package records from a local mirror of
// the NDC directory, refreshed out of band. It avoids a network hop per
// lookup and keeps recommendations working when the terminology service
// is degraded.
type PostgresDirectoryAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewPostgresDirectoryAdapter creates a new mirror-backed directory adapter
func NewPostgresDirectoryAdapter(client *postgres.Client, metrics *observability.Metrics) providers.PackageDirectoryProvider {
	return &PostgresDirectoryAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// PackagesForConcept returns the mirrored package records for a concept
func (a *PostgresDirectoryAdapter) PackagesForConcept(ctx context.Context, rxcui string) ([]entities.DrugPackage, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			observability.RecordDirectoryMetric(ctx, a.metrics, "postgres", time.Since(start))
		}
	}()

	query, args, err := a.db.Select(
		"ndc", "quantity", "unit", "dosage_form", "is_active", "marketing_status",
	).From("ndc_packages").
		Where(goqu.Ex{"rxcui": rxcui}).
		Order(goqu.I("quantity").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build directory query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to query directory mirror", err)
	}
	defer rows.Close()

	var packages []entities.DrugPackage
	for rows.Next() {
		var (
			pkg             entities.DrugPackage
			dosageForm      sql.NullString
			marketingStatus sql.NullString
		)
		if err := rows.Scan(
			&pkg.NDC,
			&pkg.Size.Quantity,
			&pkg.Size.Unit,
			&dosageForm,
			&pkg.Active,
			&marketingStatus,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan directory row", err)
		}
		pkg.DosageForm = dosageForm.String
		pkg.MarketingStatus = marketingStatus.String
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDependencyError("directory mirror iteration failed", err)
	}

	return packages, nil
}
