package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

func TestLocalStore_Documents(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	record := domain.DocumentRecord{
		ID:        "d1",
		Title:     "First",
		Content:   "body",
		UpdatedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.PutDocument(ctx, record))

	got, err := store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, record, *got)

	all, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteDocument(ctx, "d1"))
	_, err = store.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing document is not an error.
	assert.NoError(t, store.DeleteDocument(ctx, "d1"))
}

func TestLocalStore_AttachmentMergePreservesBlobs(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	require.NoError(t, store.PutAttachmentCache(ctx, domain.AttachmentCacheRecord{
		ID:         "a1",
		DocumentID: "d1",
		Filename:   "photo.png",
	}))
	require.NoError(t, store.UpsertAttachmentBlob(ctx, "a1", "preview", []byte("preview-bytes")))

	// A metadata-only refresh must not drop the cached blob.
	require.NoError(t, store.PutAttachmentCaches(ctx, []domain.AttachmentCacheRecord{{
		ID:         "a1",
		DocumentID: "d1",
		Filename:   "photo-renamed.png",
	}}))

	record, err := store.GetAttachmentCache(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "photo-renamed.png", record.Filename)
	assert.Equal(t, []byte("preview-bytes"), record.Blobs["preview"])

	blob, err := store.GetAttachmentBlob(ctx, "a1", "preview")
	require.NoError(t, err)
	assert.Equal(t, []byte("preview-bytes"), blob)
}

func TestLocalStore_BlobWithoutRecordIsDropped(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	require.NoError(t, store.UpsertAttachmentBlob(ctx, "missing", "original", []byte("data")))

	blob, err := store.GetAttachmentBlob(ctx, "missing", "original")
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestLocalStore_ListAndPurgeByDocument(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	for _, record := range []domain.AttachmentCacheRecord{
		{ID: "a1", DocumentID: "d1"},
		{ID: "a2", DocumentID: "d1"},
		{ID: "b1", DocumentID: "d2"},
	} {
		require.NoError(t, store.PutAttachmentCache(ctx, record))
	}

	records, err := store.ListAttachmentCaches(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, store.DeleteAttachmentCachesByDocument(ctx, "d1"))
	records, err = store.ListAttachmentCaches(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// The other document's cache is untouched.
	records, err = store.ListAttachmentCaches(ctx, "d2")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLocalStore_CachedAtStamped(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	require.NoError(t, store.PutAttachmentCache(ctx, domain.AttachmentCacheRecord{ID: "a1", DocumentID: "d1"}))

	record, err := store.GetAttachmentCache(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, record.CachedAt.IsZero())
}
