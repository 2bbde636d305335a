package entities

// MatchStrategy identifies which normalization strategy produced a result
type MatchStrategy string

const (
	// StrategyExact is a literal, case-insensitive name lookup
	StrategyExact MatchStrategy = "exact"

	// StrategyFuzzy is a similarity-scored approximate lookup
	StrategyFuzzy MatchStrategy = "fuzzy"

	// StrategySpelling is a spelling-suggestion lookup, the lowest-confidence tier
	StrategySpelling MatchStrategy = "spelling"
)

// NormalizationCandidate is one drug concept a strategy resolved a name to.
// Confidence is always within [0, 1]. Immutable once created.
type NormalizationCandidate struct {
	Rxcui      string  `json:"rxcui"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	DosageForm string  `json:"dosage_form,omitempty"`
	Strength   string  `json:"strength,omitempty"`
}

// DrugNormalizationResult is the outcome of resolving a free-text drug name.
// Alternatives are ordered by descending confidence with a stable RxCUI
// tie-break. Ambiguous is set when the top two candidates are too close to
// call, so callers can prompt for disambiguation instead of silently picking.
type DrugNormalizationResult struct {
	Best         NormalizationCandidate   `json:"best"`
	Alternatives []NormalizationCandidate `json:"alternatives"`
	StrategyUsed MatchStrategy            `json:"strategy_used"`
	Ambiguous    bool                     `json:"ambiguous"`
}

// BatchNormalizationItem is one element of a batch normalization response.
// Exactly one of Result and Error is set; the batch preserves input order.
type BatchNormalizationItem struct {
	Name   string                   `json:"name"`
	Result *DrugNormalizationResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}
