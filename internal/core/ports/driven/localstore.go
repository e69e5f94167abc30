package driven

import (
	"context"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

// LocalStore is the offline persistence layer: document records plus the
// attachment cache, including binary blob storage. Backed by SQLite in
// production and an in-memory map in tests.
type LocalStore interface {
	// PutDocument stores or updates a document record.
	PutDocument(ctx context.Context, record domain.DocumentRecord) error

	// GetDocument retrieves a document record by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// ListDocuments returns all locally persisted document records.
	ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error)

	// DeleteDocument removes a document record. Missing ids are not an error.
	DeleteDocument(ctx context.Context, id string) error

	// PutAttachmentCache stores or updates a single attachment cache
	// record with merge semantics: already-cached blobs survive a
	// metadata-only update.
	PutAttachmentCache(ctx context.Context, record domain.AttachmentCacheRecord) error

	// PutAttachmentCaches stores a batch of records, each with the same
	// merge semantics as PutAttachmentCache.
	PutAttachmentCaches(ctx context.Context, records []domain.AttachmentCacheRecord) error

	// GetAttachmentCache retrieves a cache record by attachment ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetAttachmentCache(ctx context.Context, id string) (*domain.AttachmentCacheRecord, error)

	// ListAttachmentCaches returns all cache records for a document.
	ListAttachmentCaches(ctx context.Context, documentID string) ([]domain.AttachmentCacheRecord, error)

	// DeleteAttachmentCache removes one cache record and its blobs.
	DeleteAttachmentCache(ctx context.Context, id string) error

	// DeleteAttachmentCachesByDocument removes every cache record for a
	// document.
	DeleteAttachmentCachesByDocument(ctx context.Context, documentID string) error

	// UpsertAttachmentBlob stores the bytes for one variant of a cached
	// attachment and refreshes CachedAt. A blob for an attachment with
	// no cache record is silently dropped.
	UpsertAttachmentBlob(ctx context.Context, id, variant string, blob []byte) error

	// GetAttachmentBlob returns the cached bytes for a variant, or nil
	// when not cached. A missing blob is not an error.
	GetAttachmentBlob(ctx context.Context, id, variant string) ([]byte, error)
}
