// Package memory provides an in-memory LocalStore used by tests and by
// ephemeral sessions that should leave no trace on disk.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
)

// Ensure LocalStore implements the interface.
var _ driven.LocalStore = (*LocalStore)(nil)

// LocalStore is an in-memory implementation of driven.LocalStore.
type LocalStore struct {
	mu          sync.RWMutex
	documents   map[string]domain.DocumentRecord
	attachments map[string]domain.AttachmentCacheRecord
}

// NewLocalStore creates a new in-memory local store.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		documents:   make(map[string]domain.DocumentRecord),
		attachments: make(map[string]domain.AttachmentCacheRecord),
	}
}

// PutDocument stores or updates a document record.
func (s *LocalStore) PutDocument(_ context.Context, record domain.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[record.ID] = record
	return nil
}

// GetDocument retrieves a document record by ID.
func (s *LocalStore) GetDocument(_ context.Context, id string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListDocuments returns all locally persisted document records.
func (s *LocalStore) ListDocuments(_ context.Context) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.DocumentRecord, 0, len(s.documents))
	for _, record := range s.documents {
		records = append(records, record)
	}
	return records, nil
}

// DeleteDocument removes a document record.
func (s *LocalStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

// PutAttachmentCache stores or updates a cache record with merge
// semantics: existing blobs survive a metadata-only update.
func (s *LocalStore) PutAttachmentCache(_ context.Context, record domain.AttachmentCacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putAttachmentLocked(record)
	return nil
}

// PutAttachmentCaches stores a batch of records with merge semantics.
func (s *LocalStore) PutAttachmentCaches(_ context.Context, records []domain.AttachmentCacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.putAttachmentLocked(record)
	}
	return nil
}

func (s *LocalStore) putAttachmentLocked(record domain.AttachmentCacheRecord) {
	var existing *domain.AttachmentCacheRecord
	if current, ok := s.attachments[record.ID]; ok {
		existing = &current
	}
	merged := record.Merge(existing)
	if merged.CachedAt.IsZero() {
		merged.CachedAt = time.Now()
	}
	s.attachments[record.ID] = merged
}

// GetAttachmentCache retrieves a cache record by attachment ID.
func (s *LocalStore) GetAttachmentCache(_ context.Context, id string) (*domain.AttachmentCacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.attachments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListAttachmentCaches returns all cache records for a document.
func (s *LocalStore) ListAttachmentCaches(_ context.Context, documentID string) ([]domain.AttachmentCacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []domain.AttachmentCacheRecord
	for _, record := range s.attachments {
		if record.DocumentID == documentID {
			records = append(records, record)
		}
	}
	return records, nil
}

// DeleteAttachmentCache removes one cache record and its blobs.
func (s *LocalStore) DeleteAttachmentCache(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attachments, id)
	return nil
}

// DeleteAttachmentCachesByDocument removes every cache record for a document.
func (s *LocalStore) DeleteAttachmentCachesByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.attachments {
		if record.DocumentID == documentID {
			delete(s.attachments, id)
		}
	}
	return nil
}

// UpsertAttachmentBlob stores the bytes for one variant. A blob for an
// attachment with no cache record is silently dropped.
func (s *LocalStore) UpsertAttachmentBlob(_ context.Context, id, variant string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.attachments[id]
	if !ok {
		return nil
	}
	blobs := make(map[string][]byte, len(record.Blobs)+1)
	for name, data := range record.Blobs {
		blobs[name] = data
	}
	blobs[variant] = blob
	record.Blobs = blobs
	record.CachedAt = time.Now()
	s.attachments[id] = record
	return nil
}

// GetAttachmentBlob returns the cached bytes for a variant, or nil when
// not cached.
func (s *LocalStore) GetAttachmentBlob(_ context.Context, id, variant string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.attachments[id]
	if !ok {
		return nil, nil
	}
	return record.Blobs[variant], nil
}
