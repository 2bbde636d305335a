package rxnorm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptcycle/rxrecommender/pkg/config"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
	"github.com/scriptcycle/rxrecommender/pkg/retry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.RxNormConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	client.retryCfg = retry.Config{
		MaxAttempts:   1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}
	return client
}

func TestFindExact(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rxcui.json", r.URL.Path)
		assert.Equal(t, "ibuprofen", r.URL.Query().Get("name"))
		w.Write([]byte(`{"idGroup":{"name":"ibuprofen","rxnormId":["5640"]}}`))
	}))

	candidates, err := client.FindExact(context.Background(), "ibuprofen")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "5640", candidates[0].Rxcui)
	assert.Equal(t, "ibuprofen", candidates[0].Name)
	assert.Equal(t, 1, candidates[0].Rank)
}

func TestFindExact_NoMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"idGroup":{"name":""}}`))
	}))

	candidates, err := client.FindExact(context.Background(), "no such drug")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindApproximate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approximateTerm.json", r.URL.Path)
		assert.Equal(t, "ibuprofin", r.URL.Query().Get("term"))
		assert.Equal(t, "5", r.URL.Query().Get("maxEntries"))
		w.Write([]byte(`{"approximateGroup":{"candidate":[
			{"rxcui":"5640","name":"ibuprofen","score":"85","rank":"1"},
			{"rxcui":"153010","name":"ibuprofen 200 MG Oral Tablet","score":"70","rank":"2"}
		]}}`))
	}))

	candidates, err := client.FindApproximate(context.Background(), "ibuprofin", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 85.0, candidates[0].Score)
	assert.Equal(t, 2, candidates[1].Rank)
}

func TestFindSpellingSuggestions_ResolvesEachSuggestion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spellingsuggestions.json":
			w.Write([]byte(`{"suggestionGroup":{"suggestionList":{"suggestion":["lipitor","lisinopril"]}}}`))
		case "/rxcui.json":
			switch r.URL.Query().Get("name") {
			case "lipitor":
				w.Write([]byte(`{"idGroup":{"name":"lipitor","rxnormId":["153165"]}}`))
			default:
				w.Write([]byte(`{"idGroup":{"name":""}}`))
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	candidates, err := client.FindSpellingSuggestions(context.Background(), "liptor")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "153165", candidates[0].Rxcui)
	assert.Equal(t, "lipitor", candidates[0].Name)
	assert.Equal(t, 1, candidates[0].Rank)
}

func TestConceptName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rxcui/5640/properties.json", r.URL.Path)
		w.Write([]byte(`{"properties":{"rxcui":"5640","name":"ibuprofen"}}`))
	}))

	name, err := client.ConceptName(context.Background(), "5640")
	require.NoError(t, err)
	assert.Equal(t, "ibuprofen", name)
}

func TestConceptName_Unknown(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":{}}`))
	}))

	_, err := client.ConceptName(context.Background(), "0")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNoMatch))
}

func TestNDCProperties(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ndcproperties.json", r.URL.Path)
		assert.Equal(t, "153010", r.URL.Query().Get("id"))
		w.Write([]byte(`{"ndcPropertyList":{"ndcProperty":[
			{"ndcItem":"00573016440","status":"ACTIVE","dosageForm":"Oral Tablet",
			 "packagingList":{"packaging":["30 TABLET in 1 BOTTLE"]}},
			{"ndcItem":"00573016450","status":"OBSOLETE","dosageForm":"Oral Tablet",
			 "packagingList":{"packaging":["100 TABLET in 1 BOTTLE"]}}
		]}}`))
	}))

	records, err := client.NDCProperties(context.Background(), "153010")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "00573016440", records[0].NDC)
	assert.Equal(t, "ACTIVE", records[0].Status)
	assert.Equal(t, []string{"30 TABLET in 1 BOTTLE"}, records[0].Packaging)
}

func TestGetJSON_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.FindExact(context.Background(), "ibuprofen")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}
