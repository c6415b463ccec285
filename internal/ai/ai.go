// Package ai defines the provider interface for AI-assisted risk assessment.
//
// Providers turn a work unit's context into suggested risks, or an evaluated
// risk into suggested prevention actions. Results are persisted by the
// suggestion service; the stored rows double as the usage records the
// monthly AI quotas are counted from.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AIProvider defines the interface for AI-powered DUERP assistance.
type AIProvider interface {
	// SuggestRisks proposes risks for a work unit based on its description.
	SuggestRisks(ctx context.Context, params SuggestRisksParams) (*SuggestionResult, error)

	// SuggestActions proposes prevention actions for an evaluated risk.
	SuggestActions(ctx context.Context, params SuggestActionsParams) (*SuggestionResult, error)
}

// SuggestRisksParams contains parameters for risk suggestion.
type SuggestRisksParams struct {
	WorkUnitName        string // e.g. "Atelier de soudure"
	WorkUnitDescription string // free-text description of the unit's activity
	NafCode             string // company activity code, optional
	Headcount           int    // workers exposed, optional
	MaxResults          int    // maximum number of suggestions to return
}

// SuggestActionsParams contains parameters for action suggestion.
type SuggestActionsParams struct {
	RiskTitle       string // e.g. "Exposition aux fumées de soudage"
	RiskDescription string // free-text description of the risk, optional
	Severity        int32  // scored severity on the evaluation's scale
	Probability     int32  // scored probability on the evaluation's scale
	MaxResults      int    // maximum number of suggestions to return
}

// SuggestionResult contains the items proposed by the provider.
type SuggestionResult struct {
	Items []Item    // proposed risks or actions
	Usage UsageInfo // token usage and cost information
}

// Item is a single proposed risk or prevention action.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UsageInfo tracks API usage for billing and monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidInput indicates the request content is invalid
	EAIInvalidInput = errors.New("invalid suggestion input")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
