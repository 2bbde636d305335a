package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptcycle/rxrecommender/internal/domain/entities"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/pkg/config"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

func advisorRequest() providers.AdvisorRequest {
	selected := entities.DrugPackage{
		NDC:    "00573016440",
		Size:   entities.PackageSize{Quantity: 100, Unit: "TABLET"},
		Active: true,
	}
	return providers.AdvisorRequest{
		Rxcui:            "153010",
		DrugName:         "ibuprofen 200 MG Oral Tablet",
		RequiredQuantity: 60,
		Selection: entities.PackageSelection{
			Selected:           selected,
			OverfillPercentage: 66.7,
			Explanation:        "smallest adequate package",
		},
		Candidates: []entities.DrugPackage{
			{NDC: "00573016430", Size: entities.PackageSize{Quantity: 30, Unit: "TABLET"}, Active: true},
			selected,
		},
	}
}

func newAdvisorTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	client.baseURL = server.URL
	return client
}

func advisorEnvelope(text string) string {
	envelope := map[string]interface{}{
		"output": []map[string]interface{}{
			{"content": []map[string]string{{"type": "output_text", "text": text}}},
		},
		"usage": map[string]int{"input_tokens": 200, "output_tokens": 50},
	}
	data, _ := json.Marshal(envelope)
	return string(data)
}

func TestAdvise_Success(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(advisorEnvelope(`{"recommended_ndc":"00573016440","confidence":0.92,"reasoning":"Single bottle covers the fill."}`)))
	}))

	resp, err := client.Advise(context.Background(), advisorRequest())
	require.NoError(t, err)
	assert.Equal(t, "00573016440", resp.RecommendedNDC)
	assert.InDelta(t, 0.92, resp.Confidence, 1e-9)
	assert.Greater(t, resp.EstimatedCostUSD, 0.0)
}

func TestAdvise_StripsCodeFences(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(advisorEnvelope("```json\n{\"recommended_ndc\":\"00573016430\",\"confidence\":0.8,\"reasoning\":\"ok\"}\n```")))
	}))

	resp, err := client.Advise(context.Background(), advisorRequest())
	require.NoError(t, err)
	assert.Equal(t, "00573016430", resp.RecommendedNDC)
}

func TestAdvise_NonSuccessStatus(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Advise(context.Background(), advisorRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}

func TestAdvise_MalformedPayload(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(advisorEnvelope("not json at all")))
	}))

	_, err := client.Advise(context.Background(), advisorRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}

func TestAdvise_MissingOutputText(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[],"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))

	_, err := client.Advise(context.Background(), advisorRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}

func TestAdvise_EmptyCandidates(t *testing.T) {
	client := newAdvisorTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty candidate set")
	}))

	req := advisorRequest()
	req.Candidates = nil
	_, err := client.Advise(context.Background(), req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}
