package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/pkg/config"
	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Per-million-token prices used for cost accounting. Close enough for
// telemetry; not a billing source.
const (
	inputTokenPriceUSD  = 0.15 / 1_000_000
	outputTokenPriceUSD = 0.60 / 1_000_000
)

// Client implements the AI recommendation advisor against the OpenAI API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new OpenAI advisor client
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
	Usage  responseUsage    `json:"usage"`
}

type advisorPayload struct {
	RecommendedNDC string  `json:"recommended_ndc"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Advise asks the reasoning model to confirm or re-rank a package selection
func (c *Client) Advise(ctx context.Context, req providers.AdvisorRequest) (*providers.AdvisorResponse, error) {
	if len(req.Candidates) == 0 {
		return nil, apperrors.NewInvalidInputError("advisor request has no candidate packages")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordAdvisorMetric(ctx, c.model, 0, 0, err)
			return nil, err
		}
		recordAdvisorRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	payload := map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "system", "content": advisorSystemPrompt},
			{"role": "user", "content": buildAdvisorUserPrompt(req)},
		},
		"temperature":       0.1,
		"max_output_tokens": 400,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		recordAdvisorMetric(ctx, c.model, 0, time.Since(start), err)
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, apperrors.NewDependencyTimeoutError("advisor request timed out", err)
		}
		return nil, apperrors.NewDependencyError("advisor request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordAdvisorMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, apperrors.NewDependencyError(
			fmt.Sprintf("advisor request failed with status %d", resp.StatusCode), nil)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordAdvisorMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewDependencyError("failed to decode advisor response", err)
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		recordAdvisorMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing output text"))
		return nil, apperrors.NewDependencyError("advisor response missing output text", nil)
	}

	parsed, err := parseAdvisorPayload(text)
	if err != nil {
		recordAdvisorMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewDependencyError("failed to parse advisor response", err)
	}

	recordAdvisorMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return &providers.AdvisorResponse{
		RecommendedNDC: parsed.RecommendedNDC,
		Confidence:     parsed.Confidence,
		Reasoning:      parsed.Reasoning,
		EstimatedCostUSD: float64(envelope.Usage.InputTokens)*inputTokenPriceUSD +
			float64(envelope.Usage.OutputTokens)*outputTokenPriceUSD,
	}, nil
}

// parseAdvisorPayload extracts the structured answer, tolerating
// Markdown code fences around the JSON body.
func parseAdvisorPayload(text string) (*advisorPayload, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed advisorPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, err
	}
	if parsed.RecommendedNDC == "" {
		return nil, errors.New("advisor payload missing recommended_ndc")
	}
	return &parsed, nil
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

type advisorMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var advisorMetricsInit = false
var advisorMetricsSet advisorMetrics

func ensureAdvisorMetrics() {
	if advisorMetricsInit {
		return
	}
	meter := otel.Meter("github.com/scriptcycle/rxrecommender/openai")

	requestCount, err := meter.Int64Counter(
		"ai.advisor.request.count",
		metric.WithDescription("Number of advisor requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.advisor.request.duration",
		metric.WithDescription("Advisor request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.advisor.request.errors",
		metric.WithDescription("Number of advisor request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.advisor.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the advisor rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	advisorMetricsSet = advisorMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	advisorMetricsInit = true
}

func recordAdvisorMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureAdvisorMetrics()
	if !advisorMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	advisorMetricsSet.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if duration > 0 {
		advisorMetricsSet.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if err != nil {
		advisorMetricsSet.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordAdvisorRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureAdvisorMetrics()
	if !advisorMetricsInit {
		return
	}
	advisorMetricsSet.rateLimitWait.Record(ctx, float64(wait.Milliseconds()),
		metric.WithAttributes(attribute.String("ai.model", model)))
}
