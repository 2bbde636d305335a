package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scriptcycle/rxrecommender/internal/adapters/cache"
	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	"github.com/scriptcycle/rxrecommender/pkg/config"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
	"github.com/scriptcycle/rxrecommender/pkg/phi"
)

// Cache key namespaces owned by the recommendation pipeline
const (
	NamespaceNormalization = "normalization"
	NamespacePackages      = "packages"
)

// RecommendationService orchestrates the full pipeline: normalize the
// drug reference, fetch and filter the package directory, run the
// deterministic selection, and optionally ask the AI advisor to confirm
// or re-rank it.
type RecommendationService struct {
	normalizer          *DrugNormalizerService
	selector            *PackageSelectorService
	enhancer            *AIEnhancementService
	directory           providers.PackageDirectoryProvider
	store               *cache.Store
	cacheCfg            config.CacheConfig
	aiQuantityThreshold float64
}

// NewRecommendationService wires the pipeline together
func NewRecommendationService(
	normalizer *DrugNormalizerService,
	selector *PackageSelectorService,
	enhancer *AIEnhancementService,
	directory providers.PackageDirectoryProvider,
	store *cache.Store,
	cacheCfg config.CacheConfig,
	aiQuantityThreshold float64,
) *RecommendationService {
	return &RecommendationService{
		normalizer:          normalizer,
		selector:            selector,
		enhancer:            enhancer,
		directory:           directory,
		store:               store,
		cacheCfg:            cacheCfg,
		aiQuantityThreshold: aiQuantityThreshold,
	}
}

// Recommend produces a package recommendation for the request. The
// deterministic pipeline always completes; AI enhancement is attempted
// only when the request qualifies, and its failures degrade silently to
// the algorithmic selection.
func (s *RecommendationService) Recommend(ctx context.Context, req entities.RecommendationRequest) (*entities.Recommendation, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "recommendation.recommend")
	defer span.End()

	if err := validateRecommendationRequest(req); err != nil {
		return nil, err
	}

	normalization, err := s.resolveNormalization(ctx, req)
	if err != nil {
		return nil, err
	}

	packages, err := s.fetchPackages(ctx, normalization.Best.Rxcui)
	if err != nil {
		return nil, err
	}

	requestedForm := firstNonEmpty(req.DosageForm, normalization.Best.DosageForm)
	candidates := filterPackages(packages, requestedForm)
	if len(candidates) == 0 {
		return nil, apperrors.NewNoPackagesError(fmt.Sprintf(
			"no active packages for rxcui %s in a compatible dosage form", normalization.Best.Rxcui))
	}

	selection, err := s.selector.ChoosePackage(candidates, req.RequiredQuantity)
	if err != nil {
		return nil, err
	}

	result := &entities.AIRecommendationResult{
		Source:    entities.SourceAlgorithm,
		Selection: *selection,
	}
	aiAttempted := false
	if s.shouldEnhance(req, normalization) {
		aiAttempted = true
		result = s.enhancer.Enhance(ctx, providers.AdvisorRequest{
			Rxcui:            normalization.Best.Rxcui,
			DrugName:         normalization.Best.Name,
			DosageForm:       requestedForm,
			RequiredQuantity: req.RequiredQuantity,
			Selection:        *selection,
			Candidates:       candidates,
		})
	}

	return &entities.Recommendation{
		RequestID:           uuid.NewString(),
		Rxcui:               normalization.Best.Rxcui,
		DrugName:            normalization.Best.Name,
		Normalization:       normalization,
		Selection:           result.Selection,
		Source:              result.Source,
		ConfidenceScore:     result.ConfidenceScore,
		Reasoning:           result.Reasoning,
		UsedAI:              result.Source == entities.SourceAI,
		AlgorithmicFallback: aiAttempted && result.Source == entities.SourceAlgorithm,
		ExecutionTimeMS:     time.Since(start).Milliseconds(),
		GeneratedAt:         time.Now().UTC(),
	}, nil
}

// Normalize resolves a drug name through the cached normalization path
func (s *RecommendationService) Normalize(ctx context.Context, name string) (*entities.DrugNormalizationResult, error) {
	key := s.cacheKey(NamespaceNormalization, "name", strings.ToLower(strings.TrimSpace(name)))
	return cache.GetOrCompute(ctx, s.store, key, s.cacheCfg.NormalizationTTL,
		func(ctx context.Context) (*entities.DrugNormalizationResult, error) {
			return s.normalizer.Normalize(ctx, name)
		})
}

// NormalizeBatch resolves multiple drug names, isolating per-item failures.
// Each item goes through the same cached path as a single Normalize call.
func (s *RecommendationService) NormalizeBatch(ctx context.Context, names []string) ([]entities.BatchNormalizationItem, error) {
	return s.normalizer.NormalizeBatchWith(ctx, names, s.Normalize)
}

// AdvisorUsage reports cumulative AI advisor accounting
func (s *RecommendationService) AdvisorUsage() entities.AdvisorUsage {
	if s.enhancer == nil {
		return entities.AdvisorUsage{}
	}
	return s.enhancer.Usage()
}

func (s *RecommendationService) resolveNormalization(ctx context.Context, req entities.RecommendationRequest) (*entities.DrugNormalizationResult, error) {
	if req.Rxcui != "" {
		key := s.cacheKey(NamespaceNormalization, "rxcui", req.Rxcui)
		return cache.GetOrCompute(ctx, s.store, key, s.cacheCfg.NormalizationTTL,
			func(ctx context.Context) (*entities.DrugNormalizationResult, error) {
				return s.normalizer.NormalizeByRxcui(ctx, req.Rxcui)
			})
	}
	return s.Normalize(ctx, req.DrugName)
}

func (s *RecommendationService) fetchPackages(ctx context.Context, rxcui string) ([]entities.DrugPackage, error) {
	key := s.cacheKey(NamespacePackages, "rxcui", rxcui)
	return cache.GetOrCompute(ctx, s.store, key, s.cacheCfg.PackageDirectoryTTL,
		func(ctx context.Context) ([]entities.DrugPackage, error) {
			return s.directory.PackagesForConcept(ctx, rxcui)
		})
}

func (s *RecommendationService) shouldEnhance(req entities.RecommendationRequest, normalization *entities.DrugNormalizationResult) bool {
	if req.DisableAI || !s.enhancer.Enabled() {
		return false
	}
	return normalization.Ambiguous || req.RequiredQuantity >= s.aiQuantityThreshold
}

// cacheKey builds a derived key for the namespace. A key that cannot be
// built falls back to the zero key, which the store treats as uncacheable.
func (s *RecommendationService) cacheKey(namespace string, parts ...string) phi.Key {
	key, err := phi.BuildKey(namespace, parts...)
	if err != nil {
		return phi.Key{}
	}
	return key
}

func validateRecommendationRequest(req entities.RecommendationRequest) error {
	if req.RequiredQuantity <= 0 {
		return apperrors.NewInvalidInputError("required_quantity must be positive")
	}
	if strings.TrimSpace(req.DrugName) == "" && strings.TrimSpace(req.Rxcui) == "" {
		return apperrors.NewInvalidInputError("either drug_name or rxcui is required")
	}
	return nil
}

func filterPackages(packages []entities.DrugPackage, dosageForm string) []entities.DrugPackage {
	filtered := make([]entities.DrugPackage, 0, len(packages))
	for _, pkg := range packages {
		if !pkg.Active {
			continue
		}
		if !CompatibleDosageForm(pkg.DosageForm, dosageForm) {
			continue
		}
		filtered = append(filtered, pkg)
	}
	return filtered
}
