package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// sniffLen is the number of leading bytes http.DetectContentType inspects.
const sniffLen = 512

// DetectContentType resolves the MIME type of an upload. A non-empty
// providedType wins; otherwise the filename extension is consulted, then the
// leading bytes of data are sniffed, and finally application/octet-stream is
// returned.
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	if data != nil {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(data, head)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(head[:n])
		}
	}

	return "application/octet-stream"
}

// AllowedImageTypes lists the MIME types accepted for observation photos.
// HEIC/HEIF are included because most field photos come from phones.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// IsAllowedImageType reports whether contentType is an accepted photo format.
// Media type parameters ("; charset=...") are ignored.
func IsAllowedImageType(contentType string) bool {
	return AllowedImageTypes[mediaType(contentType)]
}

// mediaType strips parameters and normalizes case.
func mediaType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
