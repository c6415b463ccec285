// Package domain contains core business types and interfaces.
//
// This file defines AI suggestion records. Suggestions are persisted so that
// monthly AI quotas can be counted from the data store.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionKind distinguishes the two metered AI features.
type SuggestionKind string

const (
	SuggestionRisks   SuggestionKind = "risks"   // suggest risks for a work unit
	SuggestionActions SuggestionKind = "actions" // suggest actions for a risk
)

// Suggestion is a stored AI completion result.
type Suggestion struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Kind      SuggestionKind
	TargetID  uuid.UUID // work unit (risks) or evaluation (actions)
	Items     []SuggestionItem
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// SuggestionItem is a single proposed risk or action.
type SuggestionItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
