// Package rxnorm is an HTTP client for an RxNorm-compatible terminology
// service. It implements the term search operations (exact, approximate,
// spelling) and the raw NDC property lookup used by the package directory
// adapter.
package rxnorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/pkg/config"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
	"github.com/scriptcycle/rxrecommender/pkg/retry"
)

const defaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// Client talks to the terminology service
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
	retryCfg   retry.Config
}

// NewClient creates a new terminology client
func NewClient(cfg *config.RxNormConfig) *Client {
	baseURL := defaultBaseURL
	timeout := 10 * time.Second
	var limiter *tokenBucket

	if cfg != nil {
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		limiter = newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retryCfg:   retry.DefaultConfig(),
	}
}

type idGroupEnvelope struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxnormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

type approximateEnvelope struct {
	ApproximateGroup struct {
		Candidate []struct {
			Rxcui string `json:"rxcui"`
			Name  string `json:"name"`
			Score string `json:"score"`
			Rank  string `json:"rank"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

type suggestionEnvelope struct {
	SuggestionGroup struct {
		SuggestionList struct {
			Suggestion []string `json:"suggestion"`
		} `json:"suggestionList"`
	} `json:"suggestionGroup"`
}

type propertiesEnvelope struct {
	Properties struct {
		Rxcui string `json:"rxcui"`
		Name  string `json:"name"`
	} `json:"properties"`
}

// NDCProperty is a raw package record from the terminology service
type NDCProperty struct {
	NDC        string   `json:"ndcItem"`
	Status     string   `json:"status"`
	DosageForm string   `json:"dosageForm"`
	Packaging  []string `json:"packaging"`
}

type ndcPropertyEnvelope struct {
	NDCPropertyList struct {
		NDCProperty []struct {
			NDCItem       string `json:"ndcItem"`
			Status        string `json:"status"`
			DosageForm    string `json:"dosageForm"`
			PackagingList struct {
				Packaging []string `json:"packaging"`
			} `json:"packagingList"`
		} `json:"ndcProperty"`
	} `json:"ndcPropertyList"`
}

// FindExact performs a literal, case-insensitive name lookup
func (c *Client) FindExact(ctx context.Context, name string) ([]providers.RawTermCandidate, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("search", "1")

	var envelope idGroupEnvelope
	if err := c.getJSON(ctx, "/rxcui.json", query, &envelope); err != nil {
		return nil, err
	}

	candidates := make([]providers.RawTermCandidate, 0, len(envelope.IDGroup.RxnormID))
	for i, rxcui := range envelope.IDGroup.RxnormID {
		if rxcui == "" {
			continue
		}
		candidateName := envelope.IDGroup.Name
		if candidateName == "" {
			candidateName = name
		}
		candidates = append(candidates, providers.RawTermCandidate{
			Rxcui: rxcui,
			Name:  candidateName,
			Rank:  i + 1,
		})
	}
	return candidates, nil
}

// FindApproximate performs a similarity-scored lookup
func (c *Client) FindApproximate(ctx context.Context, name string, maxResults int) ([]providers.RawTermCandidate, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	query := url.Values{}
	query.Set("term", name)
	query.Set("maxEntries", strconv.Itoa(maxResults))

	var envelope approximateEnvelope
	if err := c.getJSON(ctx, "/approximateTerm.json", query, &envelope); err != nil {
		return nil, err
	}

	candidates := make([]providers.RawTermCandidate, 0, len(envelope.ApproximateGroup.Candidate))
	for _, raw := range envelope.ApproximateGroup.Candidate {
		if raw.Rxcui == "" {
			continue
		}
		score, _ := strconv.ParseFloat(raw.Score, 64)
		rank, err := strconv.Atoi(raw.Rank)
		if err != nil || rank < 1 {
			rank = len(candidates) + 1
		}
		candidates = append(candidates, providers.RawTermCandidate{
			Rxcui: raw.Rxcui,
			Name:  raw.Name,
			Score: score,
			Rank:  rank,
		})
	}
	return candidates, nil
}

// FindSpellingSuggestions resolves likely misspellings to candidates.
// The service returns plain suggestions; each is resolved to a concept
// with an exact lookup, keeping the suggestion order as rank.
func (c *Client) FindSpellingSuggestions(ctx context.Context, name string) ([]providers.RawTermCandidate, error) {
	query := url.Values{}
	query.Set("name", name)

	var envelope suggestionEnvelope
	if err := c.getJSON(ctx, "/spellingsuggestions.json", query, &envelope); err != nil {
		return nil, err
	}

	var candidates []providers.RawTermCandidate
	for _, suggestion := range envelope.SuggestionGroup.SuggestionList.Suggestion {
		resolved, err := c.FindExact(ctx, suggestion)
		if err != nil || len(resolved) == 0 {
			continue
		}
		candidates = append(candidates, providers.RawTermCandidate{
			Rxcui: resolved[0].Rxcui,
			Name:  suggestion,
			Rank:  len(candidates) + 1,
		})
	}
	return candidates, nil
}

// ConceptName returns the preferred name for a known concept identifier
func (c *Client) ConceptName(ctx context.Context, rxcui string) (string, error) {
	var envelope propertiesEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/rxcui/%s/properties.json", url.PathEscape(rxcui)), nil, &envelope); err != nil {
		return "", err
	}
	if envelope.Properties.Rxcui == "" {
		return "", apperrors.NewNoMatchError(fmt.Sprintf("unknown concept identifier %s", rxcui))
	}
	return envelope.Properties.Name, nil
}

// NDCProperties returns the raw package records for a concept
func (c *Client) NDCProperties(ctx context.Context, rxcui string) ([]NDCProperty, error) {
	query := url.Values{}
	query.Set("id", rxcui)

	var envelope ndcPropertyEnvelope
	if err := c.getJSON(ctx, "/ndcproperties.json", query, &envelope); err != nil {
		return nil, err
	}

	records := make([]NDCProperty, 0, len(envelope.NDCPropertyList.NDCProperty))
	for _, raw := range envelope.NDCPropertyList.NDCProperty {
		if raw.NDCItem == "" {
			continue
		}
		records = append(records, NDCProperty{
			NDC:        raw.NDCItem,
			Status:     raw.Status,
			DosageForm: raw.DosageForm,
			Packaging:  raw.PackagingList.Packaging,
		})
	}
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.NewDependencyError("terminology rate limiter interrupted", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return apperrors.NewDependencyTimeoutError("terminology request timed out", err)
			}
			return apperrors.NewDependencyError("terminology request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apperrors.NewDependencyError(
				fmt.Sprintf("terminology request failed with status %d", resp.StatusCode), nil)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.NewDependencyError("failed to decode terminology response", err)
		}
		return nil
	})
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{tokens: make(chan struct{}, burst)}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

type tokenBucket struct {
	tokens chan struct{}
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
