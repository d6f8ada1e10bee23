package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonartis/panelshop/internal/cache/memory"
	"github.com/sonartis/panelshop/internal/storage"
)

func newTestUploadService(t *testing.T, ledger *fakeLedger, backend *fakeBackend) (*UploadService, *memory.Cache) {
	t.Helper()
	cache := memory.NewCache(time.Minute)
	t.Cleanup(func() { cache.Close() })
	return NewUploadService(backend, ledger, cache, zerolog.Nop()), cache
}

func TestStoreUpload(t *testing.T) {
	ledger := newFakeLedger()
	backend := newFakeBackend()
	svc, _ := newTestUploadService(t, ledger, backend)

	userID := int64(12)
	content := "fake image bytes"
	out, err := svc.StoreUpload(context.Background(), StoreUploadInput{
		SessionID:  "sess-1",
		Filename:   "photo.jpg",
		Reader:     strings.NewReader(content),
		Size:       int64(len(content)),
		UploadedBy: &userID,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.Path, storage.UploadsPrefix))
	require.True(t, strings.HasSuffix(out.Path, ".jpg"))

	require.True(t, backend.has(out.Path))

	row, err := ledger.Get(context.Background(), out.Path)
	require.NoError(t, err)
	require.False(t, row.IsUsed)
	require.NotNil(t, row.UploadedBy)
	require.Equal(t, userID, *row.UploadedBy)

	require.Equal(t, []string{out.Path}, svc.SessionUploads(context.Background(), "sess-1"))
}

func TestStoreUploadSessionScopeAccumulates(t *testing.T) {
	ledger := newFakeLedger()
	backend := newFakeBackend()
	svc, _ := newTestUploadService(t, ledger, backend)

	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		out, err := svc.StoreUpload(context.Background(), StoreUploadInput{
			SessionID: "sess-1",
			Filename:  name,
			Reader:    strings.NewReader("x"),
			Size:      1,
		})
		require.NoError(t, err)
		paths = append(paths, out.Path)
	}

	require.Equal(t, paths, svc.SessionUploads(context.Background(), "sess-1"))

	// Sessions are isolated.
	require.Nil(t, svc.SessionUploads(context.Background(), "sess-2"))
}

func TestStoreUploadWithoutSession(t *testing.T) {
	ledger := newFakeLedger()
	backend := newFakeBackend()
	svc, _ := newTestUploadService(t, ledger, backend)

	out, err := svc.StoreUpload(context.Background(), StoreUploadInput{
		Filename: "anon.gif",
		Reader:   strings.NewReader("x"),
		Size:     1,
	})
	require.NoError(t, err)
	require.True(t, backend.has(out.Path))
	require.Nil(t, svc.SessionUploads(context.Background(), ""))
}

func TestStoreUploadLedgerFailureRemovesBlob(t *testing.T) {
	// A blob the ledger never saw would be invisible to reconciliation
	// and leak forever, so intake rolls the blob back.
	ledger := newFakeLedger()
	ledger.recordErr = errors.New("database is locked")
	backend := newFakeBackend()
	svc, _ := newTestUploadService(t, ledger, backend)

	_, err := svc.StoreUpload(context.Background(), StoreUploadInput{
		SessionID: "sess-1",
		Filename:  "doomed.jpg",
		Reader:    strings.NewReader("x"),
		Size:      1,
	})
	require.Error(t, err)

	blobs, err := backend.List(context.Background(), storage.UploadsPrefix)
	require.NoError(t, err)
	require.Empty(t, blobs)
	require.Nil(t, svc.SessionUploads(context.Background(), "sess-1"))
}

func TestClearSessionUploads(t *testing.T) {
	ledger := newFakeLedger()
	backend := newFakeBackend()
	svc, _ := newTestUploadService(t, ledger, backend)

	_, err := svc.StoreUpload(context.Background(), StoreUploadInput{
		SessionID: "sess-1",
		Filename:  "a.jpg",
		Reader:    strings.NewReader("x"),
		Size:      1,
	})
	require.NoError(t, err)
	require.Len(t, svc.SessionUploads(context.Background(), "sess-1"), 1)

	svc.ClearSessionUploads(context.Background(), "sess-1")
	require.Nil(t, svc.SessionUploads(context.Background(), "sess-1"))
}

func TestSessionUploadsNilCache(t *testing.T) {
	svc := NewUploadService(newFakeBackend(), newFakeLedger(), nil, zerolog.Nop())

	out, err := svc.StoreUpload(context.Background(), StoreUploadInput{
		SessionID: "sess-1",
		Filename:  "a.jpg",
		Reader:    strings.NewReader("x"),
		Size:      1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Path)

	// Without a cache the scope is always unknown.
	require.Nil(t, svc.SessionUploads(context.Background(), "sess-1"))
	svc.ClearSessionUploads(context.Background(), "sess-1")
}

func TestSessionUploadsCorruptScope(t *testing.T) {
	ledger := newFakeLedger()
	backend := newFakeBackend()
	svc, cache := newTestUploadService(t, ledger, backend)

	require.NoError(t, cache.Set(context.Background(), "session:sess-1:uploads", []byte("not json"), time.Minute))

	require.Nil(t, svc.SessionUploads(context.Background(), "sess-1"))
}
