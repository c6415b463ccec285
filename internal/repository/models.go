package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Row types mirror the table layout; nullable columns use sql.Null* and are
// converted to plain Go types at the domain boundary.

type Tenant struct {
	ID                 uuid.UUID
	Name               string
	Siren              sql.NullString
	Plan               string
	StripeCustomerID   sql.NullString
	SubscriptionID     sql.NullString
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type User struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Email           string
	PasswordHash    string
	Name            sql.NullString
	Phone           sql.NullString
	Roles           []string
	IsOwner         bool
	SiteID          uuid.NullUUID
	EmailVerifiedAt sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Company struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Siret     sql.NullString
	NafCode   sql.NullString
	Headcount int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Site struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Address   sql.NullString
	City      sql.NullString
	PostCode  sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WorkUnit struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	Name        string
	Description sql.NullString
	SearchText  string
	Headcount   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RiskEvaluation struct {
	ID          uuid.UUID
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
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ActionPlan struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EvaluationID uuid.UUID
	Title        string
	Description  sql.NullString
	Status       string
	AssigneeID   uuid.NullUUID
	DueDate      sql.NullTime
	CompletedAt  sql.NullTime
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Observation struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	WorkUnitID  uuid.NullUUID
	Description string
	PhotoKey    sql.NullString
	ThumbKey    sql.NullString
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Papripact struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Year        int32
	Status      string
	Summary     sql.NullString
	PublishedAt sql.NullTime
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ParticipationEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Kind        string
	Description string
	OccurredOn  time.Time
	RecordedBy  uuid.UUID
	CreatedAt   time.Time
}

type Suggestion struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Kind      string
	TargetID  uuid.UUID
	Items     pqtype.NullRawMessage
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

type Export struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	CompanyID    uuid.UUID
	Format       string
	Status       string
	StorageKey   sql.NullString
	ErrorMessage sql.NullString
	RequestedBy  uuid.UUID
	CreatedAt    time.Time
	CompletedAt  sql.NullTime
}

type ImportRecord struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CompanyID  uuid.UUID
	Filename   string
	RowCount   int32
	ImportedBy uuid.UUID
	CreatedAt  time.Time
}

type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Priority     int32
	Status       string
	Attempts     int32
	MaxAttempts  int32
	RunAfter     time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	ErrorMessage sql.NullString
	CreatedAt    time.Time
}

type EmailVerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type EmailLog struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Recipient  string
	TemplateID string
	Feature    sql.NullString
	Params     pqtype.NullRawMessage
	SentAt     time.Time
}
