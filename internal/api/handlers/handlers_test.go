package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptcycle/rxrecommender/internal/application/services"
	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/pkg/circuitbreaker"
	"github.com/scriptcycle/rxrecommender/pkg/config"
)

type stubTermProvider struct {
	candidates []providers.RawTermCandidate
	name       string
}

func (s *stubTermProvider) FindExact(ctx context.Context, name string) ([]providers.RawTermCandidate, error) {
	return s.candidates, nil
}

func (s *stubTermProvider) FindApproximate(ctx context.Context, name string, maxResults int) ([]providers.RawTermCandidate, error) {
	return nil, nil
}

func (s *stubTermProvider) FindSpellingSuggestions(ctx context.Context, name string) ([]providers.RawTermCandidate, error) {
	return nil, nil
}

func (s *stubTermProvider) ConceptName(ctx context.Context, rxcui string) (string, error) {
	return s.name, nil
}

type stubDirectory struct {
	packages []entities.DrugPackage
}

func (s *stubDirectory) PackagesForConcept(ctx context.Context, rxcui string) ([]entities.DrugPackage, error) {
	return s.packages, nil
}

func newTestService() *services.RecommendationService {
	terms := &stubTermProvider{
		candidates: []providers.RawTermCandidate{
			{Rxcui: "5640", Name: "ibuprofen 200 MG Oral Tablet"},
		},
		name: "ibuprofen 200 MG Oral Tablet",
	}
	directory := &stubDirectory{
		packages: []entities.DrugPackage{
			{
				NDC:        "0001-0001-30",
				Size:       entities.PackageSize{Quantity: 30, Unit: "TABLET"},
				DosageForm: "tablet",
				Active:     true,
			},
			{
				NDC:        "0001-0001-60",
				Size:       entities.PackageSize{Quantity: 60, Unit: "TABLET"},
				DosageForm: "tablet",
				Active:     true,
			},
		},
	}

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("advisor"), zerolog.Nop())
	enhancer := services.NewAIEnhancementService(nil, breaker, services.NewPackageSelectorService(), time.Second, nil)

	return services.NewRecommendationService(
		services.NewDrugNormalizerService(terms, 0.5, 4),
		services.NewPackageSelectorService(),
		enhancer,
		directory,
		nil,
		config.CacheConfig{},
		90,
	)
}

func TestCreateRecommendation(t *testing.T) {
	handler := NewRecommendationHandler(newTestService())

	body := `{"drug_name": "ibuprofen", "required_quantity": 60}`
	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateRecommendation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rxcui":"5640"`)
	assert.Contains(t, rec.Body.String(), `"0001-0001-60"`)
	assert.Contains(t, rec.Body.String(), `"source":"algorithm"`)
}

func TestCreateRecommendation_InvalidBody(t *testing.T) {
	handler := NewRecommendationHandler(newTestService())

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.CreateRecommendation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRecommendation_ValidationErrorMapsTo400(t *testing.T) {
	handler := NewRecommendationHandler(newTestService())

	body := `{"drug_name": "ibuprofen", "required_quantity": -1}`
	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.CreateRecommendation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestNormalizeDrug(t *testing.T) {
	handler := NewDrugHandler(newTestService())

	req := httptest.NewRequest(http.MethodGet, "/api/drugs/normalize?name=ibuprofen", nil)
	rec := httptest.NewRecorder()

	handler.NormalizeDrug(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rxcui":"5640"`)
	assert.Contains(t, rec.Body.String(), `"strategy_used":"exact"`)
}

func TestNormalizeDrug_MissingName(t *testing.T) {
	handler := NewDrugHandler(newTestService())

	req := httptest.NewRequest(http.MethodGet, "/api/drugs/normalize", nil)
	rec := httptest.NewRecorder()

	handler.NormalizeDrug(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeBatch(t *testing.T) {
	handler := NewDrugHandler(newTestService())

	body := `{"names": ["ibuprofen", "9"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/drugs/normalize/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.NormalizeBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestNormalizeBatch_RejectsOversizedBatch(t *testing.T) {
	handler := NewDrugHandler(newTestService())

	names := make([]string, 0, maxBatchSize+1)
	for i := 0; i <= maxBatchSize; i++ {
		names = append(names, `"aspirin"`)
	}
	body := `{"names": [` + strings.Join(names, ",") + `]}`
	req := httptest.NewRequest(http.MethodPost, "/api/drugs/normalize/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.NormalizeBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFillPrecision(t *testing.T) {
	handler := NewPackageHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/packages/fill-precision?package_quantity=100&required_quantity=60", nil)
	rec := httptest.NewRecorder()

	handler.GetFillPrecision(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"precision":"overfill"`)
	assert.Contains(t, rec.Body.String(), `66.7`)
}

func TestGetFillPrecision_MissingParams(t *testing.T) {
	handler := NewPackageHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/packages/fill-precision?package_quantity=100", nil)
	rec := httptest.NewRecorder()

	handler.GetFillPrecision(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required_quantity")
}

func TestGetHealth(t *testing.T) {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("advisor"), zerolog.Nop())
	enhancer := services.NewAIEnhancementService(nil, breaker, services.NewPackageSelectorService(), time.Second, nil)
	handler := NewHealthHandler(enhancer, "test")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.GetHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"breaker_state":"closed"`)
}
