package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

const (
	// maxFuzzyResults bounds the approximate lookup fan-out per request
	maxFuzzyResults = 10

	// fuzzyConfidenceCeiling keeps non-exact matches strictly below the
	// 1.0 reserved for exact lookups
	fuzzyConfidenceCeiling = 0.95

	// rankDampingFactor discounts confidence by provider rank position
	rankDampingFactor = 0.15

	// Spelling suggestions are last-resort matches and score below the
	// fuzzy range
	spellingBaseConfidence  = 0.40
	spellingRankPenalty     = 0.02
	spellingFloorConfidence = 0.30

	// ambiguityMargin is the top-two confidence gap below which a result
	// is flagged ambiguous
	ambiguityMargin = 0.05
)

// DrugNormalizerService resolves free-text drug names to concept
// identifiers with calibrated confidence scores. Strategies run in order
// of decreasing precision and the chain short-circuits on the first one
// producing a candidate at or above the configured minimum confidence.
type DrugNormalizerService struct {
	terms            providers.TermSearchProvider
	minConfidence    float64
	batchConcurrency int
}

// NewDrugNormalizerService creates a normalizer over the given terminology
// provider
func NewDrugNormalizerService(terms providers.TermSearchProvider, minConfidence float64, batchConcurrency int) *DrugNormalizerService {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &DrugNormalizerService{
		terms:            terms,
		minConfidence:    minConfidence,
		batchConcurrency: batchConcurrency,
	}
}

// Normalize resolves a free-text drug name through the strategy chain
func (s *DrugNormalizerService) Normalize(ctx context.Context, name string) (*entities.DrugNormalizationResult, error) {
	cleaned, err := validateDrugName(name)
	if err != nil {
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)

	strategies := []struct {
		strategy entities.MatchStrategy
		run      func(context.Context, string) ([]entities.NormalizationCandidate, error)
	}{
		{entities.StrategyExact, s.runExact},
		{entities.StrategyFuzzy, s.runFuzzy},
		{entities.StrategySpelling, s.runSpelling},
	}

	var lastErr error
	anyRanClean := false
	for _, st := range strategies {
		candidates, err := st.run(ctx, cleaned)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.Warn().Err(err).
				Str("strategy", string(st.strategy)).
				Msg("normalization strategy failed, trying next")
			lastErr = err
			continue
		}
		anyRanClean = true

		candidates = mergeCandidates(candidates)
		if len(candidates) == 0 || candidates[0].Confidence < s.acceptanceFloor(st.strategy) {
			continue
		}

		return buildNormalizationResult(candidates, st.strategy), nil
	}

	// NO_MATCH is only truthful when at least one strategy searched and
	// came back empty. If every strategy errored, the drug may well exist
	// and the dependency failure has to surface as such.
	if lastErr != nil && (!anyRanClean || apperrors.IsKind(lastErr, apperrors.KindDependencyTimeout)) {
		return nil, lastErr
	}
	return nil, apperrors.NewNoMatchError(fmt.Sprintf("no concept matched %q", cleaned))
}

// acceptanceFloor is the minimum top-candidate confidence a strategy must
// reach to be accepted. Spelling suggestions score below the configured
// minimum by construction, so the last tier is held only to its own base
// confidence and stays reachable at the default configuration.
func (s *DrugNormalizerService) acceptanceFloor(strategy entities.MatchStrategy) float64 {
	if strategy == entities.StrategySpelling {
		return math.Min(s.minConfidence, spellingBaseConfidence)
	}
	return s.minConfidence
}

// NormalizeByRxcui resolves a known concept identifier to a normalization
// result without running the name strategies
func (s *DrugNormalizerService) NormalizeByRxcui(ctx context.Context, rxcui string) (*entities.DrugNormalizationResult, error) {
	rxcui = strings.TrimSpace(rxcui)
	if rxcui == "" {
		return nil, apperrors.NewInvalidInputError("rxcui must not be empty")
	}

	name, err := s.terms.ConceptName(ctx, rxcui)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewNoMatchError(fmt.Sprintf("no concept found for rxcui %s", rxcui))
	}

	candidate := enrichCandidate(entities.NormalizationCandidate{
		Rxcui:      rxcui,
		Name:       name,
		Confidence: 1.0,
	})
	return buildNormalizationResult([]entities.NormalizationCandidate{candidate}, entities.StrategyExact), nil
}

// NormalizeBatch normalizes multiple names concurrently. Results preserve
// input order and a failed item never fails its siblings.
func (s *DrugNormalizerService) NormalizeBatch(ctx context.Context, names []string) ([]entities.BatchNormalizationItem, error) {
	return s.NormalizeBatchWith(ctx, names, s.Normalize)
}

// NormalizeBatchWith runs the batch through a caller-supplied resolver, so
// callers with a caching layer can route every item through it. The
// resolver is invoked with bounded concurrency.
func (s *DrugNormalizerService) NormalizeBatchWith(
	ctx context.Context,
	names []string,
	resolve func(context.Context, string) (*entities.DrugNormalizationResult, error),
) ([]entities.BatchNormalizationItem, error) {
	if len(names) == 0 {
		return nil, apperrors.NewInvalidInputError("batch must contain at least one name")
	}

	items := make([]entities.BatchNormalizationItem, len(names))
	sem := make(chan struct{}, s.batchConcurrency)
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(idx int, drugName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item := entities.BatchNormalizationItem{Name: drugName}
			result, err := resolve(ctx, drugName)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = result
			}
			items[idx] = item
		}(i, name)
	}
	wg.Wait()

	return items, nil
}

func (s *DrugNormalizerService) runExact(ctx context.Context, name string) ([]entities.NormalizationCandidate, error) {
	raw, err := s.terms.FindExact(ctx, name)
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.NormalizationCandidate, 0, len(raw))
	for _, rc := range raw {
		candidates = append(candidates, enrichCandidate(entities.NormalizationCandidate{
			Rxcui:      rc.Rxcui,
			Name:       rc.Name,
			Confidence: 1.0,
		}))
	}
	return candidates, nil
}

func (s *DrugNormalizerService) runFuzzy(ctx context.Context, name string) ([]entities.NormalizationCandidate, error) {
	raw, err := s.terms.FindApproximate(ctx, name, maxFuzzyResults)
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.NormalizationCandidate, 0, len(raw))
	for _, rc := range raw {
		candidates = append(candidates, enrichCandidate(entities.NormalizationCandidate{
			Rxcui:      rc.Rxcui,
			Name:       rc.Name,
			Confidence: fuzzyConfidence(rc.Score, rc.Rank),
		}))
	}
	return candidates, nil
}

func (s *DrugNormalizerService) runSpelling(ctx context.Context, name string) ([]entities.NormalizationCandidate, error) {
	raw, err := s.terms.FindSpellingSuggestions(ctx, name)
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.NormalizationCandidate, 0, len(raw))
	for _, rc := range raw {
		candidates = append(candidates, enrichCandidate(entities.NormalizationCandidate{
			Rxcui:      rc.Rxcui,
			Name:       rc.Name,
			Confidence: spellingConfidence(rc.Rank),
		}))
	}
	return candidates, nil
}

// fuzzyConfidence converts a 0-100 similarity score into a confidence,
// damped by the provider's rank so equal scores deeper in the list count
// for less
func fuzzyConfidence(score float64, rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	confidence := (score / 100) / (1 + rankDampingFactor*float64(rank-1))
	if confidence < 0 {
		return 0
	}
	if confidence > fuzzyConfidenceCeiling {
		return fuzzyConfidenceCeiling
	}
	return confidence
}

func spellingConfidence(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	confidence := spellingBaseConfidence - spellingRankPenalty*float64(rank-1)
	if confidence < spellingFloorConfidence {
		return spellingFloorConfidence
	}
	return confidence
}

// mergeCandidates deduplicates by rxcui keeping the highest confidence and
// unioning optional fields, then orders by descending confidence with an
// rxcui tie-break for determinism
func mergeCandidates(candidates []entities.NormalizationCandidate) []entities.NormalizationCandidate {
	byRxcui := make(map[string]entities.NormalizationCandidate, len(candidates))
	for _, c := range candidates {
		if c.Rxcui == "" {
			continue
		}
		existing, ok := byRxcui[c.Rxcui]
		if !ok {
			byRxcui[c.Rxcui] = c
			continue
		}
		if c.Confidence > existing.Confidence {
			c.DosageForm = firstNonEmpty(c.DosageForm, existing.DosageForm)
			c.Strength = firstNonEmpty(c.Strength, existing.Strength)
			byRxcui[c.Rxcui] = c
		} else {
			existing.DosageForm = firstNonEmpty(existing.DosageForm, c.DosageForm)
			existing.Strength = firstNonEmpty(existing.Strength, c.Strength)
			byRxcui[c.Rxcui] = existing
		}
	}

	merged := make([]entities.NormalizationCandidate, 0, len(byRxcui))
	for _, c := range byRxcui {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Rxcui < merged[j].Rxcui
	})
	return merged
}

func buildNormalizationResult(candidates []entities.NormalizationCandidate, strategy entities.MatchStrategy) *entities.DrugNormalizationResult {
	result := &entities.DrugNormalizationResult{
		Best:         candidates[0],
		StrategyUsed: strategy,
	}
	if len(candidates) > 1 {
		result.Alternatives = candidates[1:]
		result.Ambiguous = candidates[0].Confidence-candidates[1].Confidence < ambiguityMargin
	}
	return result
}

func enrichCandidate(c entities.NormalizationCandidate) entities.NormalizationCandidate {
	if c.DosageForm == "" {
		c.DosageForm = CanonicalDosageForm(c.Name)
	}
	if c.Strength == "" {
		c.Strength = ParseStrength(c.Name)
	}
	return c
}

// validateDrugName applies cheap heuristics that reject inputs which can
// never name a drug, before any network round trip
func validateDrugName(name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" {
		return "", apperrors.NewInvalidInputError("drug name must not be empty")
	}
	if len([]rune(cleaned)) < 2 {
		return "", apperrors.NewInvalidInputError("drug name is too short")
	}
	if isNumeric(cleaned) {
		return "", apperrors.NewInvalidInputError("drug name must not be purely numeric")
	}
	return cleaned, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
