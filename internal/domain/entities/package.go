package entities

// PackageSize describes the dispensable quantity of a drug package
type PackageSize struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// DrugPackage is one orderable package from the package directory,
// identified by its National Drug Code. Read-only within this service.
type DrugPackage struct {
	NDC             string      `json:"ndc"`
	Size            PackageSize `json:"package_size"`
	DosageForm      string      `json:"dosage_form,omitempty"`
	Active          bool        `json:"is_active"`
	MarketingStatus string      `json:"marketing_status,omitempty"`
}

// FillPrecision classifies a package choice relative to the required quantity
type FillPrecision string

const (
	FillExact     FillPrecision = "exact"
	FillOverfill  FillPrecision = "overfill"
	FillUnderfill FillPrecision = "underfill"
)

// FillReport describes how well a single package covers a required quantity.
// At most one of the two percentages is non-zero; both are zero on an exact fill.
type FillReport struct {
	OverfillPercentage  float64       `json:"overfill_percentage"`
	UnderfillPercentage float64       `json:"underfill_percentage"`
	Precision           FillPrecision `json:"precision"`
}

// PackageSelection is the deterministic outcome of choosing a package
// for a required quantity. Warnings are ordered advisories for the caller.
type PackageSelection struct {
	Selected            DrugPackage `json:"selected"`
	OverfillPercentage  float64     `json:"overfill_percentage"`
	UnderfillPercentage float64     `json:"underfill_percentage"`
	Warnings            []string    `json:"warnings,omitempty"`
	Explanation         string      `json:"explanation"`
}

// Precision returns the fill classification of the selection
func (s *PackageSelection) Precision() FillPrecision {
	switch {
	case s.OverfillPercentage > 0:
		return FillOverfill
	case s.UnderfillPercentage > 0:
		return FillUnderfill
	default:
		return FillExact
	}
}
