package providers

import "context"

// RawTermCandidate is a raw match from the terminology service, before
// confidence normalization. Score is the provider's similarity score on a
// 0-100 scale (zero when the strategy does not score); Rank is the 1-based
// position in the provider's own ordering.
type RawTermCandidate struct {
	Rxcui string
	Name  string
	Score float64
	Rank  int
}

// TermSearchProvider exposes the drug-name search operations of the
// terminology service. The provider owns the wire protocol; the normalizer
// owns strategy ordering and confidence scoring.
type TermSearchProvider interface {
	// FindExact performs a literal, case-insensitive name lookup
	FindExact(ctx context.Context, name string) ([]RawTermCandidate, error)

	// FindApproximate performs a similarity-scored lookup
	FindApproximate(ctx context.Context, name string, maxResults int) ([]RawTermCandidate, error)

	// FindSpellingSuggestions resolves likely misspellings to candidates,
	// ranked by suggestion order
	FindSpellingSuggestions(ctx context.Context, name string) ([]RawTermCandidate, error)

	// ConceptName returns the preferred name for a known concept identifier
	ConceptName(ctx context.Context, rxcui string) (string, error)
}
