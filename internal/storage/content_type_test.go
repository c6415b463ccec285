package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	// PNG magic bytes for the sniffing path.
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	tests := []struct {
		name     string
		provided string
		filename string
		data     []byte
		want     string
	}{
		{"provided type wins", "image/webp", "photo.jpg", nil, "image/webp"},
		{"by extension", "", "report.pdf", nil, "application/pdf"},
		{"extension case-insensitive", "", "PHOTO.JPG", nil, "image/jpeg"},
		{"sniffed from content", "", "upload", pngHeader, "image/png"},
		{"no signal at all", "", "blob", nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data io.Reader
			if tt.data != nil {
				data = bytes.NewReader(tt.data)
			}
			assert.Equal(t, tt.want, DetectContentType(tt.provided, tt.filename, data))
		})
	}
}

func TestIsAllowedImageType(t *testing.T) {
	assert.True(t, IsAllowedImageType("image/jpeg"))
	assert.True(t, IsAllowedImageType("image/heic"))
	assert.True(t, IsAllowedImageType("IMAGE/PNG"))
	assert.True(t, IsAllowedImageType("image/jpeg; charset=binary"))

	assert.False(t, IsAllowedImageType("application/pdf"))
	assert.False(t, IsAllowedImageType("image/svg+xml"))
	assert.False(t, IsAllowedImageType(""))
}
