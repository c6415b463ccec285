// Package domain contains core business types and interfaces.
//
// This file defines field observations, optionally carrying photos.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Thumbnail generation settings for observation photos.
const (
	ThumbnailMaxWidth    = 480
	ThumbnailMaxHeight   = 480
	ThumbnailJPEGQuality = 85
)

// Observation is a field note raised against a site, usually feeding a later
// risk evaluation.
type Observation struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	WorkUnitID  *uuid.UUID
	Description string
	PhotoKey    string // storage key of the original photo, empty if none
	ThumbKey    string // storage key of the generated thumbnail
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPhoto reports whether a photo is attached.
func (o *Observation) HasPhoto() bool {
	return o.PhotoKey != ""
}

// CreateObservationParams contains the validated parameters for creating an
// observation.
type CreateObservationParams struct {
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	WorkUnitID  *uuid.UUID
	Description string
	PhotoKey    string
	CreatedBy   uuid.UUID
}

// UpdateObservationParams contains the parameters for updating an
// observation.
type UpdateObservationParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Description string
	WorkUnitID  *uuid.UUID
}
