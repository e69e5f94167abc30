package cli

import (
	"context"
	"io"
	"time"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driving"
)

// --- Fakes wired behind the package globals during command tests ---

type fakeWorkspace struct {
	docs     []domain.DocumentEntry
	archived []domain.ArchivedDocumentEntry
	activeID string

	created     []string
	renamed     map[string]string
	edited      map[string]string
	archivedIDs []string
	restored    []string
	deleted     []string
	flushed     bool

	archiveErr error
	removed    int
}

func (f *fakeWorkspace) Bootstrap(context.Context) error { return nil }

func (f *fakeWorkspace) Documents() []domain.DocumentEntry { return f.docs }

func (f *fakeWorkspace) Active() *domain.DocumentEntry {
	for i := range f.docs {
		if f.docs[i].ID == f.activeID {
			return &f.docs[i]
		}
	}
	return nil
}

func (f *fakeWorkspace) SetActive(id string) { f.activeID = id }

func (f *fakeWorkspace) Archived() []domain.ArchivedDocumentEntry { return f.archived }

func (f *fakeWorkspace) Create(_ context.Context, title string) (*domain.DocumentEntry, error) {
	f.created = append(f.created, title)
	entry := domain.DocumentEntry{ID: "doc-new", Title: title, UpdatedAt: time.Now(), IsDirty: true}
	f.docs = append([]domain.DocumentEntry{entry}, f.docs...)
	return &entry, nil
}

func (f *fakeWorkspace) Rename(_ context.Context, id, title string) error {
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[id] = title
	return nil
}

func (f *fakeWorkspace) UpdateContent(_ context.Context, id, content string) error {
	if f.edited == nil {
		f.edited = make(map[string]string)
	}
	f.edited[id] = content
	return nil
}

func (f *fakeWorkspace) Archive(_ context.Context, id string) error {
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.archivedIDs = append(f.archivedIDs, id)
	return nil
}

func (f *fakeWorkspace) Restore(_ context.Context, id string) error {
	f.restored = append(f.restored, id)
	return nil
}

func (f *fakeWorkspace) DeleteForever(_ context.Context, id string) (int, error) {
	f.deleted = append(f.deleted, id)
	return f.removed, nil
}

func (f *fakeWorkspace) Flush(context.Context) error {
	f.flushed = true
	for i := range f.docs {
		f.docs[i].IsDirty = false
	}
	return nil
}

func (f *fakeWorkspace) Close() {}

type fakeLibrary struct {
	entries []domain.AttachmentEntry
	lastErr error

	loaded  []string
	added   map[string][]string
	removed []string
}

func (f *fakeLibrary) Load(_ context.Context, documentID string) error {
	f.loaded = append(f.loaded, documentID)
	return nil
}

func (f *fakeLibrary) Wait() {}

func (f *fakeLibrary) Entries() []domain.AttachmentEntry { return f.entries }

func (f *fakeLibrary) Loading() bool { return false }

func (f *fakeLibrary) Err() error { return f.lastErr }

func (f *fakeLibrary) Add(_ context.Context, documentID string, files []driving.AttachmentUpload) error {
	if f.added == nil {
		f.added = make(map[string][]string)
	}
	for _, file := range files {
		f.added[documentID] = append(f.added[documentID], file.Filename)
	}
	return nil
}

func (f *fakeLibrary) Remove(_ context.Context, _, attachmentID string) error {
	f.removed = append(f.removed, attachmentID)
	return nil
}

func (f *fakeLibrary) Reset() {}

type fakeRemote struct {
	exportURL string
	exportErr error
	downloads map[string][]byte
	imported  []string
}

func (f *fakeRemote) UpsertDocument(context.Context, driven.DocumentPayload) error { return nil }

func (f *fakeRemote) ListDocuments(context.Context) ([]driven.DocumentPayload, error) {
	return nil, nil
}

func (f *fakeRemote) ListArchivedDocuments(context.Context) ([]domain.ArchivedDocumentEntry, error) {
	return nil, nil
}

func (f *fakeRemote) ArchiveDocument(context.Context, string) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeRemote) RestoreDocument(context.Context, string) error { return nil }

func (f *fakeRemote) DeleteDocument(context.Context, string) (int, error) { return 0, nil }

func (f *fakeRemote) ListAttachments(context.Context, string) ([]domain.AttachmentCacheRecord, error) {
	return nil, nil
}

func (f *fakeRemote) UploadAttachment(context.Context, string, string, string, io.Reader) (*domain.AttachmentCacheRecord, error) {
	return nil, nil
}

func (f *fakeRemote) DeleteAttachment(context.Context, string, string) error { return nil }

func (f *fakeRemote) Download(_ context.Context, url string) ([]byte, error) {
	return f.downloads[url], nil
}

func (f *fakeRemote) ExportDocuments(context.Context) (string, error) {
	return f.exportURL, f.exportErr
}

func (f *fakeRemote) ImportArchive(_ context.Context, filename string, _ io.Reader) error {
	f.imported = append(f.imported, filename)
	return nil
}

// setupTestServices wires fresh fakes behind the package globals and
// returns them alongside a cleanup that restores the previous wiring.
func setupTestServices() (*fakeWorkspace, *fakeLibrary, *fakeRemote, func()) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ws := &fakeWorkspace{
		docs: []domain.DocumentEntry{
			{ID: "doc-1", Title: "Groceries", Content: "milk", UpdatedAt: base.Add(time.Hour)},
			{ID: "doc-2", Title: "Ideas", Content: "...", UpdatedAt: base, IsDirty: true},
		},
		archived: []domain.ArchivedDocumentEntry{
			{ID: "doc-9", Title: "Old plans", UpdatedAt: base.Add(-time.Hour), ArchivedAt: base},
		},
		activeID: "doc-1",
	}
	lib := &fakeLibrary{
		entries: []domain.AttachmentEntry{
			{
				ID: "att-1", DocumentID: "doc-1", Filename: "photo.jpg",
				ContentType: "image/jpeg", Size: 2048,
				DisplayURL: "handle://att-1/preview#1", DisplayVariant: "preview", FromCache: true,
			},
		},
	}
	remote := &fakeRemote{exportURL: "http://backend/exports/backup.zip"}

	prevWS, prevLib, prevRemote := workspace, attachmentLib, remoteStore
	SetServices(ws, lib, remote)
	return ws, lib, remote, func() {
		workspace, attachmentLib, remoteStore = prevWS, prevLib, prevRemote
	}
}
