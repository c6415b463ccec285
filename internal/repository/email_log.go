package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertEmailLog = `
INSERT INTO email_log (tenant_id, recipient, template_id, feature, params)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, tenant_id, recipient, template_id, feature, params, sent_at
`

type InsertEmailLogParams struct {
	TenantID   uuid.UUID
	Recipient  string
	TemplateID string
	Feature    sql.NullString
	Params     pqtype.NullRawMessage
}

func (q *Queries) InsertEmailLog(ctx context.Context, arg InsertEmailLogParams) (EmailLog, error) {
	var l EmailLog
	err := q.db.QueryRowContext(ctx, insertEmailLog,
		arg.TenantID, arg.Recipient, arg.TemplateID, arg.Feature, arg.Params).
		Scan(&l.ID, &l.TenantID, &l.Recipient, &l.TemplateID, &l.Feature, &l.Params, &l.SentAt)
	return l, err
}

const hasRecentEmail = `
SELECT EXISTS (
	SELECT 1
	FROM email_log
	WHERE tenant_id = $1 AND template_id = $2 AND feature = $3 AND sent_at >= $4
)
`

type HasRecentEmailParams struct {
	TenantID   uuid.UUID
	TemplateID string
	Feature    sql.NullString
	Since      time.Time
}

// HasRecentEmail reports whether an alert with the same template and feature
// was already sent to this tenant since the given time. Used to suppress
// duplicate quota alerts.
func (q *Queries) HasRecentEmail(ctx context.Context, arg HasRecentEmailParams) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, hasRecentEmail,
		arg.TenantID, arg.TemplateID, arg.Feature, arg.Since).Scan(&exists)
	return exists, err
}
