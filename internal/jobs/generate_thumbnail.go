package jobs

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/service"
	"github.com/jbaudry/previsk/internal/storage"
	"github.com/jbaudry/previsk/internal/worker"
)

// GenerateThumbnailHandler processes jobs that generate thumbnails for
// observation photos. Thumbnails are stored next to the original photo and
// referenced from the observation row.
type GenerateThumbnailHandler struct {
	queries   *repository.Queries
	storage   storage.Storage
	processor service.ThumbnailProcessor
	logger    *slog.Logger
}

// NewGenerateThumbnailHandler creates a new handler for thumbnail jobs.
func NewGenerateThumbnailHandler(
	queries *repository.Queries,
	storage storage.Storage,
	processor service.ThumbnailProcessor,
	logger *slog.Logger,
) *GenerateThumbnailHandler {
	return &GenerateThumbnailHandler{
		queries:   queries,
		storage:   storage,
		processor: processor,
		logger:    logger,
	}
}

// Type returns the job type identifier.
func (h *GenerateThumbnailHandler) Type() string {
	return worker.JobTypeGenerateThumbnail
}

// Handle executes the thumbnail generation job.
func (h *GenerateThumbnailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateThumbnailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	observation, err := h.queries.GetObservationByID(ctx, p.ObservationID, p.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Observation deleted before the job ran.
			return worker.NewPermanentError(fmt.Errorf("observation not found: %s", p.ObservationID))
		}
		return fmt.Errorf("fetch observation: %w", err)
	}
	if observation.ThumbKey.Valid && observation.ThumbKey.String != "" {
		// Already processed.
		return nil
	}

	photo, _, err := h.storage.Get(ctx, p.PhotoKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return worker.NewPermanentError(fmt.Errorf("photo missing from storage: %s", p.PhotoKey))
		}
		return fmt.Errorf("fetch photo: %w", err)
	}
	defer photo.Close()

	thumbBytes, width, height, err := h.processor.GenerateThumbnail(photo, domain.ThumbnailMaxWidth, domain.ThumbnailMaxHeight)
	if err != nil {
		// A photo that cannot be decoded will not decode on retry either.
		return worker.NewPermanentError(fmt.Errorf("generate thumbnail: %w", err))
	}

	thumbKey := storage.ObservationThumbKey(p.PhotoKey)
	err = h.storage.Put(ctx, thumbKey, bytes.NewReader(thumbBytes), storage.PutOptions{
		ContentType: "image/jpeg",
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	if err := h.queries.SetObservationThumb(ctx, p.ObservationID, p.TenantID, thumbKey); err != nil {
		return fmt.Errorf("set observation thumbnail: %w", err)
	}

	h.logger.Info("Thumbnail generated",
		"observation_id", p.ObservationID,
		"thumb_key", thumbKey,
		"original_size", fmt.Sprintf("%dx%d", width, height),
		"thumb_bytes", len(thumbBytes),
	)

	return nil
}
