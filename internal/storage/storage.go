// Package storage abstracts where uploaded files live. LocalStorage keeps
// them on disk for development; R2Storage talks to a Cloudflare R2 bucket in
// production. It holds observation photos, their thumbnails and generated
// DUERP exports.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultURLExpiry is the lifetime of presigned URLs handed to clients.
const DefaultURLExpiry = 15 * time.Minute

// Storage is the backend-neutral file store. All methods honor context
// cancellation.
type Storage interface {
	// Put stores data under key. It fails with ErrKeyExists when the key
	// is taken and opts.Overwrite is false, and with ErrTooLarge when the
	// data exceeds opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object's content and metadata, or ErrNotFound.
	// The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns an address a client can fetch the object from: a
	// permanent URL for public objects, a presigned one bounded by
	// expires otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions controls a single Put.
type PutOptions struct {
	// ContentType is the object's MIME type; when empty it is detected
	// from the filename extension or the leading bytes.
	ContentType string

	// MaxSize caps the object size in bytes. Zero means unbounded.
	MaxSize int64

	// Overwrite permits replacing an existing object.
	Overwrite bool

	// Public marks the object world-readable. Only R2 acts on it; local
	// storage serves everything through the same file server anyway.
	Public bool
}

// ObjectInfo is the metadata returned alongside an object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // empty when the backend has none
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the directory all keys resolve under.
	BasePath string

	// BaseURL is the prefix files are served from, e.g.
	// "http://localhost:8080/files".
	BaseURL string
}

// R2Config configures Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is a custom domain in front of the bucket, e.g.
	// "https://files.previsk.fr". When empty every URL is presigned.
	PublicURL string

	// Region satisfies the AWS SDK; R2 accepts "auto", the default.
	Region string
}

// ObservationPhotoKey builds the key for an uploaded observation photo:
// observations/{siteID}/photos/{uuid}{ext}.
func ObservationPhotoKey(siteID uuid.UUID, filename string) string {
	return fmt.Sprintf("observations/%s/photos/%s%s", siteID, uuid.New(), filepath.Ext(filename))
}

// ObservationThumbKey derives the thumbnail key from a photo key so the pair
// stays adjacent: observations/{siteID}/thumbs/{photo-basename}.
func ObservationThumbKey(photoKey string) string {
	dir := filepath.Dir(filepath.Dir(photoKey))
	return fmt.Sprintf("%s/thumbs/%s", dir, filepath.Base(photoKey))
}

// ExportKey builds the key for a generated DUERP export:
// exports/{tenantID}/{uuid}.{format}.
func ExportKey(tenantID uuid.UUID, format string) string {
	return fmt.Sprintf("exports/%s/%s.%s", tenantID, uuid.New(), format)
}
