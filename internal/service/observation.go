// Package service contains the business logic layer.
//
// This file implements the field observation service. Observations may carry
// a photo, stored through the storage backend; a thumbnail is generated
// asynchronously by the worker.
package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/storage"
	"github.com/jbaudry/previsk/internal/worker"
)

// MaxPhotoSize is the upload limit for observation photos (10 MB).
const MaxPhotoSize = 10 * 1024 * 1024

// =============================================================================
// Interface Definition
// =============================================================================

// ObservationService manages field observations and their photos.
type ObservationService interface {
	Create(ctx context.Context, actor *domain.User, params domain.CreateObservationParams) (*domain.Observation, error)

	// CreateWithPhoto stores the photo first, then the observation row, and
	// enqueues thumbnail generation.
	CreateWithPhoto(ctx context.Context, actor *domain.User, params domain.CreateObservationParams, photo io.Reader, filename string) (*domain.Observation, error)

	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Observation, error)
	ListBySite(ctx context.Context, actor *domain.User, siteID uuid.UUID) ([]*domain.Observation, error)
	Update(ctx context.Context, actor *domain.User, params domain.UpdateObservationParams) error
	Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error

	// PhotoURL returns a short-lived URL for the observation's photo, or the
	// thumbnail when thumb is true.
	PhotoURL(ctx context.Context, actor *domain.User, id uuid.UUID, thumb bool) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type observationService struct {
	queries *repository.Queries
	quota   QuotaService
	files   storage.Storage
	logger  *slog.Logger
}

// NewObservationService creates a new ObservationService.
func NewObservationService(queries *repository.Queries, quota QuotaService, files storage.Storage, logger *slog.Logger) ObservationService {
	return &observationService{
		queries: queries,
		quota:   quota,
		files:   files,
		logger:  logger,
	}
}

// Create stores a new observation without a photo.
func (s *observationService) Create(ctx context.Context, actor *domain.User, params domain.CreateObservationParams) (*domain.Observation, error) {
	const op = "observation.create"
	return s.create(ctx, op, actor, params, "")
}

// CreateWithPhoto stores the photo, then the observation, then enqueues the
// thumbnail job. A failed enqueue does not fail the request.
func (s *observationService) CreateWithPhoto(ctx context.Context, actor *domain.User, params domain.CreateObservationParams, photo io.Reader, filename string) (*domain.Observation, error) {
	const op = "observation.create_with_photo"

	contentType := storage.DetectContentType("", filename, nil)
	if !storage.IsAllowedImageType(contentType) {
		return nil, domain.Invalid(op, "photo must be a JPEG, PNG, WebP or HEIC image")
	}

	key := storage.ObservationPhotoKey(params.SiteID, filename)
	err := s.files.Put(ctx, key, photo, storage.PutOptions{
		ContentType: contentType,
		MaxSize:     MaxPhotoSize,
	})
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.Invalid(op, "photo exceeds the 10 MB limit")
		}
		if errors.Is(err, storage.ErrInvalidContentType) {
			return nil, domain.Invalid(op, "photo must be a JPEG, PNG, WebP or HEIC image")
		}
		return nil, domain.Internal(err, op, "failed to store photo")
	}

	observation, err := s.create(ctx, op, actor, params, key)
	if err != nil {
		// Best-effort cleanup of the orphaned upload.
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete orphaned photo", "key", key, "error", delErr)
		}
		return nil, err
	}

	_, err = worker.EnqueueGenerateThumbnail(ctx, s.queries, worker.GenerateThumbnailPayload{
		ObservationID: observation.ID,
		TenantID:      actor.TenantID,
		PhotoKey:      key,
	})
	if err != nil {
		s.logger.Error("failed to enqueue thumbnail job", "observation_id", observation.ID, "error", err)
	}

	return observation, nil
}

func (s *observationService) create(ctx context.Context, op string, actor *domain.User, params domain.CreateObservationParams, photoKey string) (*domain.Observation, error) {
	if params.Description == "" {
		return nil, domain.Invalid(op, "observation description is required")
	}

	site, err := s.queries.GetSiteByID(ctx, params.SiteID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "site", params.SiteID.String())
		}
		return nil, domain.Internal(err, op, "failed to check site")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceObservations, domain.ActionCreate, siteScope(actor, site.ID)) {
		return nil, domain.Forbidden(op, "you cannot create observations for this site")
	}

	if params.WorkUnitID != nil {
		workUnit, err := s.queries.GetWorkUnitByID(ctx, *params.WorkUnitID, actor.TenantID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFound(op, "work unit", params.WorkUnitID.String())
			}
			return nil, domain.Internal(err, op, "failed to check work unit")
		}
		if workUnit.SiteID != params.SiteID {
			return nil, domain.Invalid(op, "work unit does not belong to this site")
		}
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, domain.Plan(tenant.Plan), domain.FeatureObservationsPerMonth); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateObservation(ctx, repository.CreateObservationParams{
		TenantID:    actor.TenantID,
		SiteID:      params.SiteID,
		WorkUnitID:  domain.ToNullUUID(params.WorkUnitID),
		Description: params.Description,
		PhotoKey:    domain.ToNullString(photoKey),
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create observation")
	}

	s.logger.Info("observation created", "tenant_id", actor.TenantID, "observation_id", row.ID, "site_id", params.SiteID)
	return mapObservation(row), nil
}

// Get retrieves an observation.
func (s *observationService) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Observation, error) {
	const op = "observation.get"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceObservations, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view observations")
	}

	row, err := s.queries.GetObservationByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "observation", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get observation")
	}
	return mapObservation(row), nil
}

// ListBySite returns the observations raised against one site, newest first.
func (s *observationService) ListBySite(ctx context.Context, actor *domain.User, siteID uuid.UUID) ([]*domain.Observation, error) {
	const op = "observation.list_by_site"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceObservations, domain.ActionView, siteScope(actor, siteID)) {
		return nil, domain.Forbidden(op, "you cannot view observations for this site")
	}

	rows, err := s.queries.ListObservationsBySite(ctx, actor.TenantID, siteID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list observations")
	}

	observations := make([]*domain.Observation, len(rows))
	for i, row := range rows {
		observations[i] = mapObservation(row)
	}
	return observations, nil
}

// Update rewrites an observation's description and work unit link.
func (s *observationService) Update(ctx context.Context, actor *domain.User, params domain.UpdateObservationParams) error {
	const op = "observation.update"

	if params.Description == "" {
		return domain.Invalid(op, "observation description is required")
	}

	row, err := s.queries.GetObservationByID(ctx, params.ID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "observation", params.ID.String())
		}
		return domain.Internal(err, op, "failed to get observation")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceObservations, domain.ActionUpdate, siteScope(actor, row.SiteID)) {
		return domain.Forbidden(op, "you cannot update this observation")
	}

	err = s.queries.UpdateObservation(ctx, repository.UpdateObservationParams{
		ID:          params.ID,
		TenantID:    actor.TenantID,
		Description: params.Description,
		WorkUnitID:  domain.ToNullUUID(params.WorkUnitID),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update observation")
	}
	return nil
}

// Delete removes an observation and its stored photo files.
func (s *observationService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "observation.delete"

	row, err := s.queries.GetObservationByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "observation", id.String())
		}
		return domain.Internal(err, op, "failed to get observation")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceObservations, domain.ActionDelete, siteScope(actor, row.SiteID)) {
		return domain.Forbidden(op, "you cannot delete this observation")
	}

	if err := s.queries.DeleteObservation(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete observation")
	}

	for _, key := range []string{domain.NullStringValue(row.PhotoKey), domain.NullStringValue(row.ThumbKey)} {
		if key == "" {
			continue
		}
		if err := s.files.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete observation file", "key", key, "error", err)
		}
	}

	s.logger.Info("observation deleted", "tenant_id", actor.TenantID, "observation_id", id)
	return nil
}

// PhotoURL returns a short-lived URL for the photo or thumbnail.
func (s *observationService) PhotoURL(ctx context.Context, actor *domain.User, id uuid.UUID, thumb bool) (string, error) {
	const op = "observation.photo_url"

	observation, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}

	key := observation.PhotoKey
	if thumb {
		key = observation.ThumbKey
	}
	if key == "" {
		return "", domain.NotFound(op, "photo", id.String())
	}

	url, err := s.files.URL(ctx, key, storage.DefaultURLExpiry)
	if err != nil {
		return "", domain.Internal(err, op, "failed to sign photo URL")
	}
	return url, nil
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapObservation(row repository.Observation) *domain.Observation {
	return &domain.Observation{
		ID:          row.ID,
		TenantID:    row.TenantID,
		SiteID:      row.SiteID,
		WorkUnitID:  domain.NullUUIDValue(row.WorkUnitID),
		Description: row.Description,
		PhotoKey:    domain.NullStringValue(row.PhotoKey),
		ThumbKey:    domain.NullStringValue(row.ThumbKey),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
