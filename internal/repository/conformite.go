package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const papripactColumns = `id, tenant_id, company_id, year, status, summary, published_at, created_by, created_at, updated_at`

const createPapripact = `
INSERT INTO papripacts (tenant_id, company_id, year, status, summary, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + papripactColumns

type CreatePapripactParams struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Year      int32
	Status    string
	Summary   sql.NullString
	CreatedBy uuid.UUID
}

func (q *Queries) CreatePapripact(ctx context.Context, arg CreatePapripactParams) (Papripact, error) {
	row := q.db.QueryRowContext(ctx, createPapripact,
		arg.TenantID, arg.CompanyID, arg.Year, arg.Status, arg.Summary, arg.CreatedBy)
	return scanPapripact(row)
}

const getPapripactByCompanyYear = `
SELECT ` + papripactColumns + `
FROM papripacts
WHERE tenant_id = $1 AND company_id = $2 AND year = $3
`

func (q *Queries) GetPapripactByCompanyYear(ctx context.Context, tenantID, companyID uuid.UUID, year int32) (Papripact, error) {
	return scanPapripact(q.db.QueryRowContext(ctx, getPapripactByCompanyYear, tenantID, companyID, year))
}

const getPapripactByID = `
SELECT ` + papripactColumns + `
FROM papripacts
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetPapripactByID(ctx context.Context, id, tenantID uuid.UUID) (Papripact, error) {
	return scanPapripact(q.db.QueryRowContext(ctx, getPapripactByID, id, tenantID))
}

const listPapripactsByCompany = `
SELECT ` + papripactColumns + `
FROM papripacts
WHERE tenant_id = $1 AND company_id = $2
ORDER BY year DESC
`

func (q *Queries) ListPapripactsByCompany(ctx context.Context, tenantID, companyID uuid.UUID) ([]Papripact, error) {
	rows, err := q.db.QueryContext(ctx, listPapripactsByCompany, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Papripact
	for rows.Next() {
		var p Papripact
		if err := rows.Scan(&p.ID, &p.TenantID, &p.CompanyID, &p.Year, &p.Status, &p.Summary,
			&p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

const updatePapripactSummary = `
UPDATE papripacts
SET summary = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = 'draft'
`

// UpdatePapripactSummary only touches drafts; published plans are immutable.
func (q *Queries) UpdatePapripactSummary(ctx context.Context, id, tenantID uuid.UUID, summary sql.NullString) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePapripactSummary, id, tenantID, summary)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const publishPapripact = `
UPDATE papripacts
SET status = 'published', published_at = now(), updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = 'draft'
`

func (q *Queries) PublishPapripact(ctx context.Context, id, tenantID uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, publishPapripact, id, tenantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createParticipationEntry = `
INSERT INTO participation_entries (tenant_id, company_id, kind, description, occurred_on, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, tenant_id, company_id, kind, description, occurred_on, recorded_by, created_at
`

type CreateParticipationEntryParams struct {
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Kind        string
	Description string
	OccurredOn  time.Time
	RecordedBy  uuid.UUID
}

func (q *Queries) CreateParticipationEntry(ctx context.Context, arg CreateParticipationEntryParams) (ParticipationEntry, error) {
	var e ParticipationEntry
	err := q.db.QueryRowContext(ctx, createParticipationEntry,
		arg.TenantID, arg.CompanyID, arg.Kind, arg.Description, arg.OccurredOn, arg.RecordedBy).
		Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.Kind, &e.Description, &e.OccurredOn, &e.RecordedBy, &e.CreatedAt)
	return e, err
}

const listParticipationByCompany = `
SELECT id, tenant_id, company_id, kind, description, occurred_on, recorded_by, created_at
FROM participation_entries
WHERE tenant_id = $1 AND company_id = $2
ORDER BY occurred_on DESC
`

func (q *Queries) ListParticipationByCompany(ctx context.Context, tenantID, companyID uuid.UUID) ([]ParticipationEntry, error) {
	rows, err := q.db.QueryContext(ctx, listParticipationByCompany, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ParticipationEntry
	for rows.Next() {
		var e ParticipationEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.Kind, &e.Description,
			&e.OccurredOn, &e.RecordedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanPapripact(row *sql.Row) (Papripact, error) {
	var p Papripact
	err := row.Scan(&p.ID, &p.TenantID, &p.CompanyID, &p.Year, &p.Status, &p.Summary,
		&p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
