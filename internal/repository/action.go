package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const actionColumns = `id, tenant_id, evaluation_id, title, description, status, assignee_id, due_date, completed_at, created_by, created_at, updated_at`

const createAction = `
INSERT INTO action_plans (tenant_id, evaluation_id, title, description, status, assignee_id, due_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + actionColumns

type CreateActionParams struct {
	TenantID     uuid.UUID
	EvaluationID uuid.UUID
	Title        string
	Description  sql.NullString
	Status       string
	AssigneeID   uuid.NullUUID
	DueDate      sql.NullTime
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateAction(ctx context.Context, arg CreateActionParams) (ActionPlan, error) {
	row := q.db.QueryRowContext(ctx, createAction,
		arg.TenantID, arg.EvaluationID, arg.Title, arg.Description, arg.Status,
		arg.AssigneeID, arg.DueDate, arg.CreatedBy)
	return scanAction(row)
}

const getActionByID = `
SELECT ` + actionColumns + `
FROM action_plans
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetActionByID(ctx context.Context, id, tenantID uuid.UUID) (ActionPlan, error) {
	return scanAction(q.db.QueryRowContext(ctx, getActionByID, id, tenantID))
}

const listActionsByEvaluation = `
SELECT ` + actionColumns + `
FROM action_plans
WHERE tenant_id = $1 AND evaluation_id = $2
ORDER BY created_at
`

func (q *Queries) ListActionsByEvaluation(ctx context.Context, tenantID, evaluationID uuid.UUID) ([]ActionPlan, error) {
	return q.queryActions(ctx, listActionsByEvaluation, tenantID, evaluationID)
}

const listActionsByCompany = `
SELECT a.id, a.tenant_id, a.evaluation_id, a.title, a.description, a.status, a.assignee_id, a.due_date, a.completed_at, a.created_by, a.created_at, a.updated_at
FROM action_plans a
JOIN risk_evaluations e ON e.id = a.evaluation_id
JOIN work_units w ON w.id = e.work_unit_id
JOIN sites s ON s.id = w.site_id
WHERE a.tenant_id = $1 AND s.company_id = $2
ORDER BY a.due_date NULLS LAST, a.created_at
`

// ListActionsByCompany feeds the PAPRIPACT rollup and the DUERP export.
func (q *Queries) ListActionsByCompany(ctx context.Context, tenantID, companyID uuid.UUID) ([]ActionPlan, error) {
	return q.queryActions(ctx, listActionsByCompany, tenantID, companyID)
}

const countActionsInPeriod = `
SELECT count(*)
FROM action_plans
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountActionsInPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActionsInPeriod, tenantID, from, to).Scan(&count)
	return count, err
}

const updateAction = `
UPDATE action_plans
SET title = $3, description = $4, status = $5, assignee_id = $6, due_date = $7,
    completed_at = CASE WHEN $5 = 'done' AND completed_at IS NULL THEN now() ELSE completed_at END,
    updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateActionParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description sql.NullString
	Status      string
	AssigneeID  uuid.NullUUID
	DueDate     sql.NullTime
}

func (q *Queries) UpdateAction(ctx context.Context, arg UpdateActionParams) error {
	_, err := q.db.ExecContext(ctx, updateAction,
		arg.ID, arg.TenantID, arg.Title, arg.Description, arg.Status, arg.AssigneeID, arg.DueDate)
	return err
}

const deleteAction = `
DELETE FROM action_plans WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteAction(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteAction, id, tenantID)
	return err
}

func (q *Queries) queryActions(ctx context.Context, query string, args ...interface{}) ([]ActionPlan, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ActionPlan
	for rows.Next() {
		var a ActionPlan
		if err := rows.Scan(&a.ID, &a.TenantID, &a.EvaluationID, &a.Title, &a.Description, &a.Status,
			&a.AssigneeID, &a.DueDate, &a.CompletedAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func scanAction(row *sql.Row) (ActionPlan, error) {
	var a ActionPlan
	err := row.Scan(&a.ID, &a.TenantID, &a.EvaluationID, &a.Title, &a.Description, &a.Status,
		&a.AssigneeID, &a.DueDate, &a.CompletedAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
