package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createSuggestion = `
INSERT INTO ai_suggestions (tenant_id, kind, target_id, items, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, tenant_id, kind, target_id, items, created_by, created_at
`

type CreateSuggestionParams struct {
	TenantID  uuid.UUID
	Kind      string
	TargetID  uuid.UUID
	Items     pqtype.NullRawMessage
	CreatedBy uuid.UUID
}

func (q *Queries) CreateSuggestion(ctx context.Context, arg CreateSuggestionParams) (Suggestion, error) {
	var s Suggestion
	err := q.db.QueryRowContext(ctx, createSuggestion,
		arg.TenantID, arg.Kind, arg.TargetID, arg.Items, arg.CreatedBy).
		Scan(&s.ID, &s.TenantID, &s.Kind, &s.TargetID, &s.Items, &s.CreatedBy, &s.CreatedAt)
	return s, err
}

const countSuggestionsInPeriod = `
SELECT count(*)
FROM ai_suggestions
WHERE tenant_id = $1 AND kind = $2 AND created_at >= $3 AND created_at < $4
`

func (q *Queries) CountSuggestionsInPeriod(ctx context.Context, tenantID uuid.UUID, kind string, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSuggestionsInPeriod, tenantID, kind, from, to).Scan(&count)
	return count, err
}

const listSuggestionsByTarget = `
SELECT id, tenant_id, kind, target_id, items, created_by, created_at
FROM ai_suggestions
WHERE tenant_id = $1 AND target_id = $2
ORDER BY created_at DESC
`

func (q *Queries) ListSuggestionsByTarget(ctx context.Context, tenantID, targetID uuid.UUID) ([]Suggestion, error) {
	rows, err := q.db.QueryContext(ctx, listSuggestionsByTarget, tenantID, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Kind, &s.TargetID, &s.Items, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
