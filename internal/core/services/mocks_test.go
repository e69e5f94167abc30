package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

// mockLocalStore implements driven.LocalStore for testing.
type mockLocalStore struct {
	mu      sync.RWMutex
	docs    map[string]domain.DocumentRecord
	caches  map[string]domain.AttachmentCacheRecord
	putErr  error
	listErr error
}

func newMockLocalStore() *mockLocalStore {
	return &mockLocalStore{
		docs:   make(map[string]domain.DocumentRecord),
		caches: make(map[string]domain.AttachmentCacheRecord),
	}
}

func (m *mockLocalStore) PutDocument(_ context.Context, record domain.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[record.ID] = record
	return nil
}

func (m *mockLocalStore) GetDocument(_ context.Context, id string) (*domain.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.docs[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	recordCopy := record
	return &recordCopy, nil
}

func (m *mockLocalStore) ListDocuments(_ context.Context) ([]domain.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	records := make([]domain.DocumentRecord, 0, len(m.docs))
	for _, record := range m.docs {
		records = append(records, record)
	}
	return records, nil
}

func (m *mockLocalStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *mockLocalStore) PutAttachmentCache(ctx context.Context, record domain.AttachmentCacheRecord) error {
	return m.PutAttachmentCaches(ctx, []domain.AttachmentCacheRecord{record})
}

func (m *mockLocalStore) PutAttachmentCaches(_ context.Context, records []domain.AttachmentCacheRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	for _, record := range records {
		if existing, ok := m.caches[record.ID]; ok {
			record = record.Merge(&existing)
		}
		if record.CachedAt.IsZero() {
			record.CachedAt = time.Now()
		}
		m.caches[record.ID] = record
	}
	return nil
}

func (m *mockLocalStore) GetAttachmentCache(_ context.Context, id string) (*domain.AttachmentCacheRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.caches[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	recordCopy := record
	return &recordCopy, nil
}

func (m *mockLocalStore) ListAttachmentCaches(_ context.Context, documentID string) ([]domain.AttachmentCacheRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var records []domain.AttachmentCacheRecord
	for _, record := range m.caches {
		if record.DocumentID == documentID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *mockLocalStore) DeleteAttachmentCache(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caches, id)
	return nil
}

func (m *mockLocalStore) DeleteAttachmentCachesByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, record := range m.caches {
		if record.DocumentID == documentID {
			delete(m.caches, id)
		}
	}
	return nil
}

func (m *mockLocalStore) UpsertAttachmentBlob(_ context.Context, id, variant string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, exists := m.caches[id]
	if !exists {
		return nil
	}
	if record.Blobs == nil {
		record.Blobs = make(map[string][]byte)
	}
	record.Blobs[variant] = blob
	record.CachedAt = time.Now()
	m.caches[id] = record
	return nil
}

func (m *mockLocalStore) GetAttachmentBlob(_ context.Context, id, variant string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.caches[id]
	if !exists {
		return nil, nil
	}
	return record.Blobs[variant], nil
}

func (m *mockLocalStore) hasDocument(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[id]
	return ok
}

func (m *mockLocalStore) cacheCount(documentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, record := range m.caches {
		if record.DocumentID == documentID {
			n++
		}
	}
	return n
}

func (m *mockLocalStore) blob(id, variant string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.caches[id]
	if !exists {
		return nil
	}
	return record.Blobs[variant]
}

// mockRemoteStore implements driven.RemoteStore for testing. Every call
// is appended to calls so tests can assert ordering.
type mockRemoteStore struct {
	mu       sync.Mutex
	docs     []driven.DocumentPayload
	archived []domain.ArchivedDocumentEntry

	attachments map[string][]domain.AttachmentCacheRecord
	downloads   map[string][]byte

	calls []string

	listErr     error
	upsertErr   error
	upsertHook  func(payload driven.DocumentPayload)
	archiveErr  error
	restoreErr  error
	deleteErr   error
	listAttErr  error
	listAttGate chan struct{}
	uploadErr   error
	uploadAfter int
	downloadErr error
	delAttErr   error

	removedAttachments int
	uploadSeq          int
}

func newMockRemoteStore() *mockRemoteStore {
	return &mockRemoteStore{
		attachments: make(map[string][]domain.AttachmentCacheRecord),
		downloads:   make(map[string][]byte),
	}
}

func (m *mockRemoteStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockRemoteStore) callCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockRemoteStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockRemoteStore) UpsertDocument(_ context.Context, payload driven.DocumentPayload) error {
	m.record("upsert:" + payload.ID)
	m.mu.Lock()
	hook := m.upsertHook
	err := m.upsertErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == payload.ID {
			m.docs[i] = payload
			return nil
		}
	}
	m.docs = append(m.docs, payload)
	return nil
}

func (m *mockRemoteStore) ListDocuments(_ context.Context) ([]driven.DocumentPayload, error) {
	m.record("list")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]driven.DocumentPayload, len(m.docs))
	copy(out, m.docs)
	return out, nil
}

func (m *mockRemoteStore) ListArchivedDocuments(_ context.Context) ([]domain.ArchivedDocumentEntry, error) {
	m.record("list-archived")
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ArchivedDocumentEntry, len(m.archived))
	copy(out, m.archived)
	return out, nil
}

func (m *mockRemoteStore) ArchiveDocument(_ context.Context, id string) (time.Time, error) {
	m.record("archive:" + id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.archiveErr != nil {
		return time.Time{}, m.archiveErr
	}
	archivedAt := time.Now()
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.archived = append(m.archived, domain.ArchivedDocumentEntry{
				ID:         id,
				Title:      m.docs[i].Title,
				UpdatedAt:  m.docs[i].UpdatedAt,
				ArchivedAt: archivedAt,
			})
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			break
		}
	}
	return archivedAt, nil
}

func (m *mockRemoteStore) RestoreDocument(_ context.Context, id string) error {
	m.record("restore:" + id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restoreErr != nil {
		return m.restoreErr
	}
	for i := range m.archived {
		if m.archived[i].ID == id {
			m.docs = append(m.docs, driven.DocumentPayload{
				ID:        id,
				Title:     m.archived[i].Title,
				UpdatedAt: m.archived[i].UpdatedAt,
			})
			m.archived = append(m.archived[:i], m.archived[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRemoteStore) DeleteDocument(_ context.Context, id string) (int, error) {
	m.record("delete:" + id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	for i := range m.archived {
		if m.archived[i].ID == id {
			m.archived = append(m.archived[:i], m.archived[i+1:]...)
			break
		}
	}
	return m.removedAttachments, nil
}

func (m *mockRemoteStore) ListAttachments(_ context.Context, documentID string) ([]domain.AttachmentCacheRecord, error) {
	m.record("list-att:" + documentID)
	m.mu.Lock()
	gate := m.listAttGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listAttErr != nil {
		return nil, m.listAttErr
	}
	records := m.attachments[documentID]
	out := make([]domain.AttachmentCacheRecord, len(records))
	copy(out, records)
	return out, nil
}

func (m *mockRemoteStore) UploadAttachment(
	_ context.Context, documentID, filename, contentType string, body io.Reader,
) (*domain.AttachmentCacheRecord, error) {
	m.record("upload:" + filename)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadSeq++
	if m.uploadErr != nil && m.uploadSeq > m.uploadAfter {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	record := domain.AttachmentCacheRecord{
		ID:          "att-" + filename,
		DocumentID:  documentID,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
		DownloadURL: "/files/att-" + filename,
	}
	m.attachments[documentID] = append(m.attachments[documentID], record)
	return &record, nil
}

func (m *mockRemoteStore) DeleteAttachment(_ context.Context, documentID, attachmentID string) error {
	m.record("delete-att:" + attachmentID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delAttErr != nil {
		return m.delAttErr
	}
	records := m.attachments[documentID]
	for i := range records {
		if records[i].ID == attachmentID {
			m.attachments[documentID] = append(records[:i], records[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRemoteStore) Download(_ context.Context, url string) ([]byte, error) {
	m.record("download:" + url)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	data, ok := m.downloads[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockRemoteStore) ExportDocuments(_ context.Context) (string, error) {
	m.record("export")
	return "/exports/backup.zip", nil
}

func (m *mockRemoteStore) ImportArchive(_ context.Context, filename string, _ io.Reader) error {
	m.record("import:" + filename)
	return nil
}
