package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	"github.com/scriptcycle/rxrecommender/pkg/circuitbreaker"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

// AIEnhancementService asks the AI advisor to confirm or re-rank the
// algorithmic package selection. Advisor failures never propagate to the
// caller: every failure path degrades to the algorithmic selection, and a
// circuit breaker keeps a failing advisor from being called at all.
type AIEnhancementService struct {
	advisor  providers.RecommendationAdvisor
	breaker  *circuitbreaker.Breaker
	selector *PackageSelectorService
	timeout  time.Duration
	metrics  *observability.Metrics

	mu    sync.Mutex
	usage entities.AdvisorUsage
}

// NewAIEnhancementService creates the enhancement layer. A nil advisor
// disables enhancement entirely.
func NewAIEnhancementService(advisor providers.RecommendationAdvisor, breaker *circuitbreaker.Breaker, selector *PackageSelectorService, timeout time.Duration, metrics *observability.Metrics) *AIEnhancementService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AIEnhancementService{
		advisor:  advisor,
		breaker:  breaker,
		selector: selector,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Enabled reports whether an advisor is configured
func (s *AIEnhancementService) Enabled() bool {
	return s != nil && s.advisor != nil
}

// Enhance runs the advisor over the algorithmic selection. The returned
// result is never nil and never carries an error: when the advisor is
// unavailable, rejected by the breaker, times out, or answers with an
// invalid payload, the result is the algorithmic selection unchanged.
func (s *AIEnhancementService) Enhance(ctx context.Context, req providers.AdvisorRequest) *entities.AIRecommendationResult {
	algorithmic := &entities.AIRecommendationResult{
		Source:    entities.SourceAlgorithm,
		Selection: req.Selection,
	}
	if !s.Enabled() {
		return algorithmic
	}

	logger := observability.LoggerFromContext(ctx)

	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := s.advisor.Advise(callCtx, req)
		if err != nil {
			return nil, err
		}
		// An unusable answer counts as a dependency failure so a
		// misbehaving advisor trips the breaker like an unreachable one.
		if err := validateAdvisorResponse(resp, req.Candidates); err != nil {
			return nil, err
		}
		return resp, nil
	})

	if err != nil {
		s.recordFailure(err)
		logger.Warn().Err(err).
			Str("rxcui", req.Rxcui).
			Str("breaker_state", string(s.breaker.State())).
			Msg("ai enhancement unavailable, using algorithmic selection")
		observability.RecordFallback(ctx, s.metrics, fallbackCause(err))
		return algorithmic
	}

	resp := result.(*providers.AdvisorResponse)
	s.recordSuccess(resp.EstimatedCostUSD)

	selection := req.Selection
	if resp.RecommendedNDC != req.Selection.Selected.NDC {
		pkg, ok := findCandidate(req.Candidates, resp.RecommendedNDC)
		if ok {
			if described, derr := s.selector.DescribeSelection(pkg, req.RequiredQuantity); derr == nil {
				selection = *described
			}
		}
	}

	confidence := resp.Confidence
	return &entities.AIRecommendationResult{
		Source:          entities.SourceAI,
		ConfidenceScore: &confidence,
		Reasoning:       resp.Reasoning,
		Selection:       selection,
	}
}

// Usage returns a snapshot of cumulative advisor accounting
func (s *AIEnhancementService) Usage() entities.AdvisorUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// BreakerState exposes the advisor circuit state for health reporting
func (s *AIEnhancementService) BreakerState() circuitbreaker.State {
	if s == nil || s.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return s.breaker.State()
}

func (s *AIEnhancementService) recordSuccess(costUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Calls++
	s.usage.EstimatedCostUSD += costUSD
}

func (s *AIEnhancementService) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apperrors.IsKind(err, apperrors.KindCircuitOpen) {
		s.usage.Rejections++
		return
	}
	s.usage.Calls++
	s.usage.Failures++
}

func validateAdvisorResponse(resp *providers.AdvisorResponse, candidates []entities.DrugPackage) error {
	if resp == nil {
		return apperrors.NewDependencyError("advisor returned an empty response", nil)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return apperrors.NewDependencyError(
			fmt.Sprintf("advisor confidence %.3f outside [0, 1]", resp.Confidence), nil)
	}
	if _, ok := findCandidate(candidates, resp.RecommendedNDC); !ok {
		return apperrors.NewDependencyError(
			fmt.Sprintf("advisor recommended unknown ndc %s", resp.RecommendedNDC), nil)
	}
	return nil
}

func findCandidate(candidates []entities.DrugPackage, ndc string) (entities.DrugPackage, bool) {
	for _, pkg := range candidates {
		if pkg.NDC == ndc {
			return pkg, true
		}
	}
	return entities.DrugPackage{}, false
}

func fallbackCause(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindCircuitOpen:
		return "circuit_open"
	case apperrors.KindDependencyTimeout:
		return "timeout"
	default:
		return "advisor_error"
	}
}
