// Package domain contains core business types and interfaces.
//
// This file defines compliance records: PAPRIPACT annual prevention plans
// and the worker-participation log the labour code requires alongside the
// DUERP.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PapripactStatus is the lifecycle state of an annual prevention plan.
type PapripactStatus string

const (
	PapripactDraft     PapripactStatus = "draft"
	PapripactPublished PapripactStatus = "published"
	PapripactArchived  PapripactStatus = "archived"
)

// Papripact is the annual prevention-action programme for a company
// (mandatory above 50 staff).
type Papripact struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Year        int
	Status      PapripactStatus
	Summary     string
	PublishedAt *time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePapripactParams contains the validated parameters for creating a
// PAPRIPACT.
type CreatePapripactParams struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Year      int
	Summary   string
	CreatedBy uuid.UUID
}

// ParticipationEntry is an append-only record of worker consultation around
// the DUERP (CSE meetings, work-unit interviews, signature rounds).
type ParticipationEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Kind        ParticipationKind
	Description string
	OccurredOn  time.Time
	RecordedBy  uuid.UUID
	CreatedAt   time.Time
}

// ParticipationKind categorizes a participation log entry.
type ParticipationKind string

const (
	ParticipationCSEMeeting ParticipationKind = "cse_meeting"
	ParticipationInterview  ParticipationKind = "interview"
	ParticipationSignature  ParticipationKind = "signature"
	ParticipationOther      ParticipationKind = "other"
)

// CreateParticipationParams contains the validated parameters for appending
// a participation entry.
type CreateParticipationParams struct {
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Kind        ParticipationKind
	Description string
	OccurredOn  time.Time
	RecordedBy  uuid.UUID
}
