// Package anthropic implements the AIProvider interface against Anthropic's
// Claude API using plain HTTP.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jbaudry/previsk/internal/ai"
	"github.com/jbaudry/previsk/internal/metrics"
)

const (
	// APIBaseURL is the messages endpoint of the Anthropic API.
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion pins the anthropic-version request header.
	APIVersion = "2023-06-01"

	// DefaultModel is used when the config names no model.
	DefaultModel = "claude-3-5-sonnet-20241022"

	// DefaultMaxResults caps suggestion lists when the caller doesn't ask for
	// a specific count.
	DefaultMaxResults = 8

	// claude-3-5-sonnet list price, cents per million tokens.
	PricingInputCents  = 300
	PricingOutputCents = 1500
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider calls Claude over plain HTTP to generate risk and action
// suggestions.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New builds a Provider, filling in defaults for any zero retry or timeout
// settings.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	pc := &config.ProviderConfig
	if pc.MaxRetries == 0 {
		pc.MaxRetries = 3
	}
	if pc.RetryBaseDelay == 0 {
		pc.RetryBaseDelay = 1 * time.Second
	}
	if pc.RequestTimeout == 0 {
		pc.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{Timeout: pc.RequestTimeout},
		logger: logger,
	}, nil
}

// SuggestRisks proposes risks for a work unit using Claude.
func (p *Provider) SuggestRisks(ctx context.Context, params ai.SuggestRisksParams) (*ai.SuggestionResult, error) {
	if params.WorkUnitName == "" {
		return nil, ai.WrapError("suggest risks", ai.EAIInvalidInput)
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	prompt := buildSuggestRisksPrompt(params.WorkUnitName, params.WorkUnitDescription,
		params.NafCode, params.Headcount, maxResults)

	return p.complete(ctx, "suggest risks", prompt, maxResults)
}

// SuggestActions proposes prevention actions for an evaluated risk using
// Claude.
func (p *Provider) SuggestActions(ctx context.Context, params ai.SuggestActionsParams) (*ai.SuggestionResult, error) {
	if params.RiskTitle == "" {
		return nil, ai.WrapError("suggest actions", ai.EAIInvalidInput)
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	prompt := buildSuggestActionsPrompt(params.RiskTitle, params.RiskDescription,
		params.Severity, params.Probability, maxResults)

	return p.complete(ctx, "suggest actions", prompt, maxResults)
}

// complete sends a single text prompt and parses the JSON item list out of
// the response.
func (p *Provider) complete(ctx context.Context, operation, prompt string, maxResults int) (*ai.SuggestionResult, error) {
	startTime := time.Now()

	body, err := p.buildRequestBody(prompt)
	if err != nil {
		return nil, ai.WrapError(operation, err)
	}

	resp, err := p.executeWithRetry(ctx, body)
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("error").Inc()
		return nil, ai.WrapError(operation, err)
	}

	result, err := p.parseSuggestionResponse(resp, maxResults)
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("parse_error").Inc()
		return nil, ai.WrapError(operation, err)
	}

	duration := time.Since(startTime)
	result.Usage = ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostCents:    p.calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Duration:     duration,
	}

	metrics.AIAPICalls.WithLabelValues("success").Inc()
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))
	metrics.AICostCentsTotal.Add(float64(result.Usage.CostCents))

	p.logger.Debug("ai completion",
		"operation", operation,
		"model", result.Usage.Model,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"cost_cents", result.Usage.CostCents,
		"duration", duration,
	)

	return result, nil
}

// buildRequestBody marshals the messages payload for a text prompt.
func (p *Provider) buildRequestBody(prompt string) ([]byte, error) {
	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 4096,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiContent{
					{
						Type: "text",
						Text: prompt,
					},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return bodyBytes, nil
}

// executeWithRetry sends the request, backing off exponentially on
// retryable failures. The request is rebuilt each attempt because the
// transport consumes the body.
func (p *Provider) executeWithRetry(ctx context.Context, body []byte) (*apiResponse, error) {
	retries := p.config.ProviderConfig.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", APIBaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", APIVersion)

		resp, err := p.executeRequest(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !ai.IsRetryable(err) {
			return nil, err
		}
		if attempt >= retries {
			break
		}

		delay := p.config.ProviderConfig.RetryBaseDelay << (attempt - 1)
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest performs one round trip and decodes the body. Transport
// failures surface as EAIUnavailable so the retry loop picks them up.
func (p *Provider) executeRequest(req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.EAIUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError turns non-200 responses into the provider error sentinels.
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return ai.EAIUnauthorized
	case http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case http.StatusRequestTimeout:
		return ai.EAITimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "invalid_request_error" {
			return ai.EAIInvalidInput
		}
		return fmt.Errorf("bad request: %s", errResp.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ai.EAIUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// parseSuggestionResponse parses the API response into a SuggestionResult.
func (p *Provider) parseSuggestionResponse(resp *apiResponse, maxResults int) (*ai.SuggestionResult, error) {
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	var textContent string
	for _, content := range resp.Content {
		if content.Type == "text" {
			textContent = content.Text
			break
		}
	}
	if textContent == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	var output suggestionOutput
	if err := json.Unmarshal([]byte(textContent), &output); err != nil {
		return nil, fmt.Errorf("parse suggestion output: %w", err)
	}

	items := make([]ai.Item, 0, len(output.Items))
	for _, item := range output.Items {
		if item.Title == "" {
			continue
		}
		items = append(items, ai.Item{
			Title:       item.Title,
			Description: item.Description,
		})
		if len(items) >= maxResults {
			break
		}
	}

	return &ai.SuggestionResult{Items: items}, nil
}

// calculateCost prices the call in whole cents. Rounding down is fine at
// the volumes involved.
func (p *Provider) calculateCost(inputTokens, outputTokens int) int {
	return (inputTokens*PricingInputCents)/1_000_000 +
		(outputTokens*PricingOutputCents)/1_000_000
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// suggestionOutput represents the JSON structure returned by Claude
type suggestionOutput struct {
	Items []suggestionItem `json:"items"`
}

type suggestionItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
