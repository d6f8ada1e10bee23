package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestLocalBackendStoreRetrieve(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	content := "fake image bytes"
	err := b.Store(ctx, "uploads/2024/01/15/a.jpg", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	reader, err := b.Retrieve(ctx, "uploads/2024/01/15/a.jpg")
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, content, string(got))
}

func TestLocalBackendRetrieveMissing(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Retrieve(context.Background(), "uploads/nope.jpg")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestLocalBackendExists(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	exists, err := b.Exists(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, b.Store(ctx, "uploads/a.jpg", strings.NewReader("x"), 1))

	exists, err = b.Exists(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestLocalBackendDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Store(ctx, "uploads/a.jpg", strings.NewReader("x"), 1))

	removed, err := b.Delete(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, removed)

	// Deleting an already-missing path is a no-op, not an error.
	removed, err = b.Delete(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestLocalBackendStoreOverwrites(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Store(ctx, "uploads/a.jpg", strings.NewReader("v1"), 2))
	require.NoError(t, b.Store(ctx, "uploads/a.jpg", strings.NewReader("v2"), 2))

	reader, err := b.Retrieve(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))
}

func TestLocalBackendList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Store(ctx, "uploads/2024/a.jpg", strings.NewReader("aa"), 2))
	require.NoError(t, b.Store(ctx, "uploads/2024/b.jpg", strings.NewReader("bbb"), 3))
	require.NoError(t, b.Store(ctx, "other/c.jpg", strings.NewReader("c"), 1))

	objects, err := b.List(ctx, UploadsPrefix)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	paths := make([]string, len(objects))
	for i, obj := range objects {
		paths[i] = obj.Path
	}
	require.ElementsMatch(t, []string{"uploads/2024/a.jpg", "uploads/2024/b.jpg"}, paths)
}

func TestLocalBackendRejectsEscapingPaths(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	err := b.Store(ctx, "../outside.jpg", strings.NewReader("x"), 1)
	require.Error(t, err)

	_, err = b.Delete(ctx, "/etc/passwd")
	require.Error(t, err)
}
