package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const observationColumns = `id, tenant_id, site_id, work_unit_id, description, photo_key, thumb_key, created_by, created_at, updated_at`

const createObservation = `
INSERT INTO observations (tenant_id, site_id, work_unit_id, description, photo_key, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + observationColumns

type CreateObservationParams struct {
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	WorkUnitID  uuid.NullUUID
	Description string
	PhotoKey    sql.NullString
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateObservation(ctx context.Context, arg CreateObservationParams) (Observation, error) {
	row := q.db.QueryRowContext(ctx, createObservation,
		arg.TenantID, arg.SiteID, arg.WorkUnitID, arg.Description, arg.PhotoKey, arg.CreatedBy)
	return scanObservation(row)
}

const getObservationByID = `
SELECT ` + observationColumns + `
FROM observations
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetObservationByID(ctx context.Context, id, tenantID uuid.UUID) (Observation, error) {
	return scanObservation(q.db.QueryRowContext(ctx, getObservationByID, id, tenantID))
}

const listObservationsBySite = `
SELECT ` + observationColumns + `
FROM observations
WHERE tenant_id = $1 AND site_id = $2
ORDER BY created_at DESC
`

func (q *Queries) ListObservationsBySite(ctx context.Context, tenantID, siteID uuid.UUID) ([]Observation, error) {
	rows, err := q.db.QueryContext(ctx, listObservationsBySite, tenantID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.TenantID, &o.SiteID, &o.WorkUnitID, &o.Description,
			&o.PhotoKey, &o.ThumbKey, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

const countObservationsInPeriod = `
SELECT count(*)
FROM observations
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountObservationsInPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countObservationsInPeriod, tenantID, from, to).Scan(&count)
	return count, err
}

const updateObservation = `
UPDATE observations
SET description = $3, work_unit_id = $4, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateObservationParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Description string
	WorkUnitID  uuid.NullUUID
}

func (q *Queries) UpdateObservation(ctx context.Context, arg UpdateObservationParams) error {
	_, err := q.db.ExecContext(ctx, updateObservation, arg.ID, arg.TenantID, arg.Description, arg.WorkUnitID)
	return err
}

const setObservationThumb = `
UPDATE observations
SET thumb_key = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) SetObservationThumb(ctx context.Context, id, tenantID uuid.UUID, thumbKey string) error {
	_, err := q.db.ExecContext(ctx, setObservationThumb, id, tenantID, thumbKey)
	return err
}

const deleteObservation = `
DELETE FROM observations WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteObservation(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteObservation, id, tenantID)
	return err
}

func scanObservation(row *sql.Row) (Observation, error) {
	var o Observation
	err := row.Scan(&o.ID, &o.TenantID, &o.SiteID, &o.WorkUnitID, &o.Description,
		&o.PhotoKey, &o.ThumbKey, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
