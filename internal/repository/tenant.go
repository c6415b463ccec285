package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const createTenant = `
INSERT INTO tenants (name, siren, plan, subscription_status)
VALUES ($1, $2, $3, $4)
RETURNING id, name, siren, plan, stripe_customer_id, subscription_id, subscription_status, created_at, updated_at
`

type CreateTenantParams struct {
	Name               string
	Siren              sql.NullString
	Plan               string
	SubscriptionStatus string
}

func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRowContext(ctx, createTenant, arg.Name, arg.Siren, arg.Plan, arg.SubscriptionStatus)
	return scanTenant(row)
}

const getTenantByID = `
SELECT id, name, siren, plan, stripe_customer_id, subscription_id, subscription_status, created_at, updated_at
FROM tenants
WHERE id = $1
`

func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantByID, id))
}

const getTenantByStripeCustomerID = `
SELECT id, name, siren, plan, stripe_customer_id, subscription_id, subscription_status, created_at, updated_at
FROM tenants
WHERE stripe_customer_id = $1
`

func (q *Queries) GetTenantByStripeCustomerID(ctx context.Context, customerID string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantByStripeCustomerID, customerID))
}

const listTenants = `
SELECT id, name, siren, plan, stripe_customer_id, subscription_id, subscription_status, created_at, updated_at
FROM tenants
ORDER BY created_at
`

func (q *Queries) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.QueryContext(ctx, listTenants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenantRows(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

const updateTenantPlan = `
UPDATE tenants
SET plan = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateTenantPlan(ctx context.Context, id uuid.UUID, plan string) error {
	_, err := q.db.ExecContext(ctx, updateTenantPlan, id, plan)
	return err
}

const updateTenantSubscription = `
UPDATE tenants
SET plan = $2, stripe_customer_id = $3, subscription_id = $4, subscription_status = $5, updated_at = now()
WHERE id = $1
`

type UpdateTenantSubscriptionParams struct {
	ID                 uuid.UUID
	Plan               string
	StripeCustomerID   sql.NullString
	SubscriptionID     sql.NullString
	SubscriptionStatus string
}

func (q *Queries) UpdateTenantSubscription(ctx context.Context, arg UpdateTenantSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, updateTenantSubscription,
		arg.ID, arg.Plan, arg.StripeCustomerID, arg.SubscriptionID, arg.SubscriptionStatus)
	return err
}

func scanTenant(row *sql.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Siren, &t.Plan, &t.StripeCustomerID,
		&t.SubscriptionID, &t.SubscriptionStatus, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanTenantRows(rows *sql.Rows) (Tenant, error) {
	var t Tenant
	err := rows.Scan(&t.ID, &t.Name, &t.Siren, &t.Plan, &t.StripeCustomerID,
		&t.SubscriptionID, &t.SubscriptionStatus, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
