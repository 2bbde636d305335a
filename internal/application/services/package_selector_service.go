package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

// overfillWarningThresholdPct is the dispensing policy above which an
// overfill advisory is attached. Fixed policy, not configurable per call.
const overfillWarningThresholdPct = 20.0

// Advisory texts attached to package selections
const (
	warningLeftoverMedication = "leftover_medication: selected package exceeds the required quantity by more than 20%"
	warningEarlyRefill        = "early_refill: largest available package covers only part of the required quantity; an early refill will be needed"
)

// PackageSelectorService deterministically picks the best package for a
// required quantity
type PackageSelectorService struct{}

// NewPackageSelectorService creates a new package selector
func NewPackageSelectorService() *PackageSelectorService {
	return &PackageSelectorService{}
}

// ChoosePackage selects the best package for the required quantity.
// Selection is tiered: an exact-size package wins; otherwise the smallest
// package covering the requirement; otherwise the largest available one.
// Ties are broken by smallest package size, then NDC, so identical inputs
// always yield identical selections.
func (s *PackageSelectorService) ChoosePackage(packages []entities.DrugPackage, requiredQuantity float64) (*entities.PackageSelection, error) {
	if requiredQuantity <= 0 {
		return nil, apperrors.NewInvalidInputError("required quantity must be positive")
	}
	if len(packages) == 0 {
		return nil, apperrors.NewNoPackagesError("no candidate packages")
	}

	active := make([]entities.DrugPackage, 0, len(packages))
	for _, pkg := range packages {
		if pkg.Active {
			active = append(active, pkg)
		}
	}
	if len(active) == 0 {
		return nil, apperrors.NewNoPackagesError("no active candidate packages")
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Size.Quantity != active[j].Size.Quantity {
			return active[i].Size.Quantity < active[j].Size.Quantity
		}
		return active[i].NDC < active[j].NDC
	})

	// Exact tier
	for _, pkg := range active {
		if quantitiesEqual(pkg.Size.Quantity, requiredQuantity) {
			return s.describe(pkg, requiredQuantity), nil
		}
	}

	// Adequate tier: smallest package covering the requirement
	for _, pkg := range active {
		if pkg.Size.Quantity > requiredQuantity {
			return s.describe(pkg, requiredQuantity), nil
		}
	}

	// Insufficient tier: largest available package
	return s.describe(active[len(active)-1], requiredQuantity), nil
}

// DescribeSelection re-describes an already-chosen package against the
// required quantity, applying the same warning policy as ChoosePackage.
func (s *PackageSelectorService) DescribeSelection(pkg entities.DrugPackage, requiredQuantity float64) (*entities.PackageSelection, error) {
	if requiredQuantity <= 0 {
		return nil, apperrors.NewInvalidInputError("required quantity must be positive")
	}
	return s.describe(pkg, requiredQuantity), nil
}

// FillPrecision classifies a single package/quantity pair without running
// a full selection
func FillPrecision(packageQuantity, requiredQuantity float64) (*entities.FillReport, error) {
	if packageQuantity <= 0 {
		return nil, apperrors.NewInvalidInputError("package quantity must be positive")
	}
	if requiredQuantity <= 0 {
		return nil, apperrors.NewInvalidInputError("required quantity must be positive")
	}

	switch {
	case quantitiesEqual(packageQuantity, requiredQuantity):
		return &entities.FillReport{Precision: entities.FillExact}, nil
	case packageQuantity > requiredQuantity:
		return &entities.FillReport{
			Precision:          entities.FillOverfill,
			OverfillPercentage: roundPct((packageQuantity - requiredQuantity) / requiredQuantity * 100),
		}, nil
	default:
		return &entities.FillReport{
			Precision:           entities.FillUnderfill,
			UnderfillPercentage: roundPct((requiredQuantity - packageQuantity) / requiredQuantity * 100),
		}, nil
	}
}

func (s *PackageSelectorService) describe(pkg entities.DrugPackage, requiredQuantity float64) *entities.PackageSelection {
	selection := &entities.PackageSelection{Selected: pkg}

	switch {
	case quantitiesEqual(pkg.Size.Quantity, requiredQuantity):
		selection.Explanation = fmt.Sprintf(
			"package of %g %s matches the required quantity exactly",
			pkg.Size.Quantity, pkg.Size.Unit)

	case pkg.Size.Quantity > requiredQuantity:
		overfill := (pkg.Size.Quantity - requiredQuantity) / requiredQuantity * 100
		selection.OverfillPercentage = roundPct(overfill)
		selection.Explanation = fmt.Sprintf(
			"smallest package covering the required quantity: %g %s for a requirement of %g",
			pkg.Size.Quantity, pkg.Size.Unit, requiredQuantity)
		// Warn on the same rounded figure the response reports, so a reading
		// of exactly 20.0 never carries the leftover warning.
		if selection.OverfillPercentage > overfillWarningThresholdPct {
			selection.Warnings = append(selection.Warnings, warningLeftoverMedication)
		}

	default:
		underfill := (requiredQuantity - pkg.Size.Quantity) / requiredQuantity * 100
		selection.UnderfillPercentage = roundPct(underfill)
		selection.Explanation = fmt.Sprintf(
			"no package covers the required quantity; largest available is %g %s for a requirement of %g",
			pkg.Size.Quantity, pkg.Size.Unit, requiredQuantity)
		selection.Warnings = append(selection.Warnings, warningEarlyRefill)
	}

	return selection
}

func quantitiesEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func roundPct(pct float64) float64 {
	return math.Round(pct*10) / 10
}
