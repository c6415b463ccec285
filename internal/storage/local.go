package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps objects as plain files under a base directory. It exists
// for development; the server mounts the directory under /files/ so the URLs
// it hands out resolve.
type LocalStorage struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocalStorage creates the base directory if needed and returns a backend
// rooted there.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	base, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	ls := &LocalStorage{
		basePath: base,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger,
	}
	logger.Info("initialized local storage", "base_path", base, "base_url", ls.baseURL)
	return ls, nil
}

// Put writes data to the file backing key, creating parent directories as
// needed. With opts.MaxSize set, an oversized upload is removed and
// ErrTooLarge returned.
func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return opError("Put", key, err)
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return opError("Put", key, ErrKeyExists)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return opError("Put", key, fmt.Errorf("create directory: %w", err))
	}

	written, err := writeBounded(path, data, opts.MaxSize)
	if err != nil {
		return opError("Put", key, err)
	}

	s.logger.Debug("stored file", "key", key, "size", written, "content_type", opts.ContentType)
	return nil
}

// Get opens the file backing key. The caller owns the returned ReadCloser.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return nil, ObjectInfo{}, opError("Get", key, err)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, opError("Get", key, ErrNotFound)
		}
		return nil, ObjectInfo{}, opError("Get", key, fmt.Errorf("open file: %w", err))
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, opError("Get", key, fmt.Errorf("stat file: %w", err))
	}

	info := ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key, nil),
		LastModified: stat.ModTime(),
	}
	return file, info, nil
}

// Delete removes the file backing key. A missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return opError("Delete", key, err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return opError("Delete", key, fmt.Errorf("remove file: %w", err))
	}
	s.logger.Debug("deleted file", "key", key)
	return nil
}

// URL returns the public URL for key. Local files are always served publicly,
// so expires is ignored.
func (s *LocalStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.pathFor(key); err != nil {
		return "", opError("URL", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// Exists reports whether a file backs key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return false, opError("Exists", key, err)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, opError("Exists", key, fmt.Errorf("stat file: %w", err))
	}
	return true, nil
}

// pathFor maps a storage key onto the base directory. Keys with traversal
// segments, and cleaned paths that land outside the base, are rejected.
func (s *LocalStorage) pathFor(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	path := filepath.Join(s.basePath, filepath.Clean(key))
	if !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return path, nil
}

// writeBounded copies data into a new file at path, enforcing maxSize when
// positive. The partial file is removed on any failure.
func writeBounded(path string, data io.Reader, maxSize int64) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	src := data
	if maxSize > 0 {
		src = io.LimitReader(data, maxSize+1)
	}

	written, err := io.Copy(file, src)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write file: %w", err)
	}
	if maxSize > 0 && written > maxSize {
		os.Remove(path)
		return 0, ErrTooLarge
	}
	return written, nil
}
