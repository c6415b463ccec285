package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const evaluationColumns = `id, tenant_id, work_unit_id, method, hazard, description, search_text, severity, probability, score, priority, created_by, created_at, updated_at`

const createEvaluation = `
INSERT INTO risk_evaluations (tenant_id, work_unit_id, method, hazard, description, search_text, severity, probability, score, priority, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + evaluationColumns

type CreateEvaluationParams struct {
	TenantID    uuid.UUID
	WorkUnitID  uuid.UUID
	Method      string
	Hazard      string
	Description sql.NullString
	SearchText  string
	Severity    int32
	Probability int32
	Score       int32
	Priority    string
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateEvaluation(ctx context.Context, arg CreateEvaluationParams) (RiskEvaluation, error) {
	row := q.db.QueryRowContext(ctx, createEvaluation,
		arg.TenantID, arg.WorkUnitID, arg.Method, arg.Hazard, arg.Description, arg.SearchText,
		arg.Severity, arg.Probability, arg.Score, arg.Priority, arg.CreatedBy)
	return scanEvaluation(row)
}

const getEvaluationByID = `
SELECT ` + evaluationColumns + `
FROM risk_evaluations
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetEvaluationByID(ctx context.Context, id, tenantID uuid.UUID) (RiskEvaluation, error) {
	return scanEvaluation(q.db.QueryRowContext(ctx, getEvaluationByID, id, tenantID))
}

const listEvaluations = `
SELECT ` + evaluationColumns + `
FROM risk_evaluations
WHERE tenant_id = $1
  AND ($2::uuid IS NULL OR work_unit_id = $2)
  AND ($3 = '' OR search_text LIKE '%' || $3 || '%')
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListEvaluationsParams struct {
	TenantID   uuid.UUID
	WorkUnitID uuid.NullUUID
	Search     string
	Limit      int32
	Offset     int32
}

func (q *Queries) ListEvaluations(ctx context.Context, arg ListEvaluationsParams) ([]RiskEvaluation, error) {
	rows, err := q.db.QueryContext(ctx, listEvaluations,
		arg.TenantID, arg.WorkUnitID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []RiskEvaluation
	for rows.Next() {
		var e RiskEvaluation
		if err := rows.Scan(&e.ID, &e.TenantID, &e.WorkUnitID, &e.Method, &e.Hazard, &e.Description, &e.SearchText,
			&e.Severity, &e.Probability, &e.Score, &e.Priority, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

const countEvaluations = `
SELECT count(*)
FROM risk_evaluations
WHERE tenant_id = $1
  AND ($2::uuid IS NULL OR work_unit_id = $2)
  AND ($3 = '' OR search_text LIKE '%' || $3 || '%')
`

type CountEvaluationsParams struct {
	TenantID   uuid.UUID
	WorkUnitID uuid.NullUUID
	Search     string
}

func (q *Queries) CountEvaluations(ctx context.Context, arg CountEvaluationsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEvaluations, arg.TenantID, arg.WorkUnitID, arg.Search).Scan(&count)
	return count, err
}

const countEvaluationsInPeriod = `
SELECT count(*)
FROM risk_evaluations
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountEvaluationsInPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEvaluationsInPeriod, tenantID, from, to).Scan(&count)
	return count, err
}

const updateEvaluation = `
UPDATE risk_evaluations
SET hazard = $3, description = $4, search_text = $5, severity = $6, probability = $7, score = $8, priority = $9, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateEvaluationParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Hazard      string
	Description sql.NullString
	SearchText  string
	Severity    int32
	Probability int32
	Score       int32
	Priority    string
}

func (q *Queries) UpdateEvaluation(ctx context.Context, arg UpdateEvaluationParams) error {
	_, err := q.db.ExecContext(ctx, updateEvaluation,
		arg.ID, arg.TenantID, arg.Hazard, arg.Description, arg.SearchText,
		arg.Severity, arg.Probability, arg.Score, arg.Priority)
	return err
}

const updateEvaluationWorkUnit = `
UPDATE risk_evaluations
SET work_unit_id = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) UpdateEvaluationWorkUnit(ctx context.Context, id, tenantID, workUnitID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateEvaluationWorkUnit, id, tenantID, workUnitID)
	return err
}

const deleteEvaluation = `
DELETE FROM risk_evaluations WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteEvaluation(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteEvaluation, id, tenantID)
	return err
}

const listEvaluationsByCompany = `
SELECT e.id, e.tenant_id, e.work_unit_id, e.method, e.hazard, e.description, e.search_text, e.severity, e.probability, e.score, e.priority, e.created_by, e.created_at, e.updated_at
FROM risk_evaluations e
JOIN work_units w ON w.id = e.work_unit_id
JOIN sites s ON s.id = w.site_id
WHERE e.tenant_id = $1 AND s.company_id = $2
ORDER BY w.name, e.score DESC
`

// ListEvaluationsByCompany returns every evaluation under a company,
// ordered for the DUERP export.
func (q *Queries) ListEvaluationsByCompany(ctx context.Context, tenantID, companyID uuid.UUID) ([]RiskEvaluation, error) {
	rows, err := q.db.QueryContext(ctx, listEvaluationsByCompany, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []RiskEvaluation
	for rows.Next() {
		var e RiskEvaluation
		if err := rows.Scan(&e.ID, &e.TenantID, &e.WorkUnitID, &e.Method, &e.Hazard, &e.Description, &e.SearchText,
			&e.Severity, &e.Probability, &e.Score, &e.Priority, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

func scanEvaluation(row *sql.Row) (RiskEvaluation, error) {
	var e RiskEvaluation
	err := row.Scan(&e.ID, &e.TenantID, &e.WorkUnitID, &e.Method, &e.Hazard, &e.Description, &e.SearchText,
		&e.Severity, &e.Probability, &e.Score, &e.Priority, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
