package entities

import "time"

// RecommendationSource identifies what produced the final selection
type RecommendationSource string

const (
	// SourceAI means the AI advisor confirmed or re-ranked the selection
	SourceAI RecommendationSource = "ai"

	// SourceAlgorithm means the deterministic selection was used as-is
	SourceAlgorithm RecommendationSource = "algorithm"
)

// AIRecommendationResult is the outcome of the AI enhancement layer.
// Source is SourceAlgorithm whenever the circuit is open or the advisor
// call failed; the embedded selection is then the algorithmic one.
type AIRecommendationResult struct {
	Source          RecommendationSource `json:"source"`
	ConfidenceScore *float64             `json:"confidence_score,omitempty"`
	Reasoning       string               `json:"reasoning,omitempty"`
	Selection       PackageSelection     `json:"selection"`
}

// RecommendationRequest is the orchestrator input. Either DrugName or
// Rxcui must be set; Rxcui skips normalization entirely.
type RecommendationRequest struct {
	DrugName         string  `json:"drug_name,omitempty"`
	Rxcui            string  `json:"rxcui,omitempty"`
	RequiredQuantity float64 `json:"required_quantity"`
	DosageForm       string  `json:"dosage_form,omitempty"`
	// DisableAI forces the pure algorithmic path for this request
	DisableAI bool `json:"disable_ai,omitempty"`
}

// Recommendation is the fully assembled orchestrator output
type Recommendation struct {
	RequestID           string                   `json:"request_id"`
	Rxcui               string                   `json:"rxcui"`
	DrugName            string                   `json:"drug_name"`
	Normalization       *DrugNormalizationResult `json:"normalization,omitempty"`
	Selection           PackageSelection         `json:"selection"`
	Source              RecommendationSource     `json:"source"`
	ConfidenceScore     *float64                 `json:"confidence_score,omitempty"`
	Reasoning           string                   `json:"reasoning,omitempty"`
	UsedAI              bool                     `json:"used_ai"`
	AlgorithmicFallback bool                     `json:"algorithmic_fallback"`
	ExecutionTimeMS     int64                    `json:"execution_time_ms"`
	GeneratedAt         time.Time                `json:"generated_at"`
}

// AdvisorUsage is the cumulative usage accounting for the AI advisor,
// exposed for telemetry collaborators.
type AdvisorUsage struct {
	Calls            int64   `json:"calls"`
	Failures         int64   `json:"failures"`
	Rejections       int64   `json:"rejections"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}
