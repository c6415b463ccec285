package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const exportColumns = `id, tenant_id, company_id, format, status, storage_key, error_message, requested_by, created_at, completed_at`

const createExport = `
INSERT INTO exports (tenant_id, company_id, format, status, requested_by)
VALUES ($1, $2, $3, 'pending', $4)
RETURNING ` + exportColumns

type CreateExportParams struct {
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Format      string
	RequestedBy uuid.UUID
}

func (q *Queries) CreateExport(ctx context.Context, arg CreateExportParams) (Export, error) {
	row := q.db.QueryRowContext(ctx, createExport,
		arg.TenantID, arg.CompanyID, arg.Format, arg.RequestedBy)
	return scanExport(row)
}

const getExportByID = `
SELECT ` + exportColumns + `
FROM exports
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetExportByID(ctx context.Context, id, tenantID uuid.UUID) (Export, error) {
	return scanExport(q.db.QueryRowContext(ctx, getExportByID, id, tenantID))
}

const listExportsByTenant = `
SELECT ` + exportColumns + `
FROM exports
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (q *Queries) ListExportsByTenant(ctx context.Context, tenantID uuid.UUID, limit int32) ([]Export, error) {
	rows, err := q.db.QueryContext(ctx, listExportsByTenant, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.Format, &e.Status,
			&e.StorageKey, &e.ErrorMessage, &e.RequestedBy, &e.CreatedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

const countExportsInPeriod = `
SELECT count(*)
FROM exports
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountExportsInPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countExportsInPeriod, tenantID, from, to).Scan(&count)
	return count, err
}

const markExportRunning = `
UPDATE exports
SET status = 'running'
WHERE id = $1 AND status = 'pending'
`

func (q *Queries) MarkExportRunning(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markExportRunning, id)
	return err
}

const markExportCompleted = `
UPDATE exports
SET status = 'completed', storage_key = $2, completed_at = now()
WHERE id = $1
`

func (q *Queries) MarkExportCompleted(ctx context.Context, id uuid.UUID, storageKey string) error {
	_, err := q.db.ExecContext(ctx, markExportCompleted, id, storageKey)
	return err
}

const markExportFailed = `
UPDATE exports
SET status = 'failed', error_message = $2, completed_at = now()
WHERE id = $1
`

func (q *Queries) MarkExportFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := q.db.ExecContext(ctx, markExportFailed, id, sql.NullString{String: errorMessage, Valid: errorMessage != ""})
	return err
}

const createImportRecord = `
INSERT INTO import_records (tenant_id, company_id, filename, row_count, imported_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, tenant_id, company_id, filename, row_count, imported_by, created_at
`

type CreateImportRecordParams struct {
	TenantID   uuid.UUID
	CompanyID  uuid.UUID
	Filename   string
	RowCount   int32
	ImportedBy uuid.UUID
}

func (q *Queries) CreateImportRecord(ctx context.Context, arg CreateImportRecordParams) (ImportRecord, error) {
	var r ImportRecord
	err := q.db.QueryRowContext(ctx, createImportRecord,
		arg.TenantID, arg.CompanyID, arg.Filename, arg.RowCount, arg.ImportedBy).
		Scan(&r.ID, &r.TenantID, &r.CompanyID, &r.Filename, &r.RowCount, &r.ImportedBy, &r.CreatedAt)
	return r, err
}

const countImportsInPeriod = `
SELECT count(*)
FROM import_records
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountImportsInPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countImportsInPeriod, tenantID, from, to).Scan(&count)
	return count, err
}

const listImportsByTenant = `
SELECT id, tenant_id, company_id, filename, row_count, imported_by, created_at
FROM import_records
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (q *Queries) ListImportsByTenant(ctx context.Context, tenantID uuid.UUID, limit int32) ([]ImportRecord, error) {
	rows, err := q.db.QueryContext(ctx, listImportsByTenant, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.ID, &r.TenantID, &r.CompanyID, &r.Filename, &r.RowCount, &r.ImportedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanExport(row *sql.Row) (Export, error) {
	var e Export
	err := row.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.Format, &e.Status,
		&e.StorageKey, &e.ErrorMessage, &e.RequestedBy, &e.CreatedAt, &e.CompletedAt)
	return e, err
}
