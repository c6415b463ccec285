package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files/",
	}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	return ls
}

func TestLocalStoragePutGet(t *testing.T) {
	ls := newTestStorage(t)
	ctx := context.Background()

	err := ls.Put(ctx, "observations/site-1/photos/a.jpg", strings.NewReader("photo bytes"), PutOptions{})
	require.NoError(t, err)

	body, info, err := ls.Get(ctx, "observations/site-1/photos/a.jpg")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "photo bytes", string(data))
	assert.Equal(t, int64(len("photo bytes")), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)
}

func TestLocalStoragePutNoOverwrite(t *testing.T) {
	ls := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, ls.Put(ctx, "exports/t/1.pdf", strings.NewReader("v1"), PutOptions{}))

	err := ls.Put(ctx, "exports/t/1.pdf", strings.NewReader("v2"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)

	err = ls.Put(ctx, "exports/t/1.pdf", strings.NewReader("v2"), PutOptions{Overwrite: true})
	assert.NoError(t, err)
}

func TestLocalStoragePutMaxSize(t *testing.T) {
	ls := newTestStorage(t)
	ctx := context.Background()

	err := ls.Put(ctx, "big.bin", strings.NewReader("0123456789"), PutOptions{MaxSize: 4})
	require.ErrorIs(t, err, ErrTooLarge)

	// The oversized partial write must not linger.
	exists, err := ls.Exists(ctx, "big.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageGetMissing(t *testing.T) {
	ls := newTestStorage(t)

	_, _, err := ls.Get(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Get", serr.Op)
	assert.Equal(t, "nope.txt", serr.Key)
}

func TestLocalStorageDeleteIdempotent(t *testing.T) {
	ls := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, ls.Put(ctx, "tmp/x.txt", strings.NewReader("x"), PutOptions{}))
	require.NoError(t, ls.Delete(ctx, "tmp/x.txt"))
	require.NoError(t, ls.Delete(ctx, "tmp/x.txt"))

	exists, err := ls.Exists(ctx, "tmp/x.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ls := newTestStorage(t)
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a/../../b", ".."} {
		err := ls.Put(ctx, key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestLocalStorageURL(t *testing.T) {
	ls := newTestStorage(t)

	url, err := ls.URL(context.Background(), "exports/t/1.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/exports/t/1.pdf", url)
}
