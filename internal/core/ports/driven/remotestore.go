package driven

import (
	"context"
	"io"
	"time"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

// DocumentPayload is the wire form of a document exchanged with the
// remote store.
type DocumentPayload struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text body.
	Content string

	// UpdatedAt is the client-side edit timestamp.
	UpdatedAt time.Time
}

// RemoteStore is the HTTP contract of the authoritative notes backend.
// All methods return an error wrapping domain.ErrRemoteUnavailable when
// the backend cannot be reached.
type RemoteStore interface {
	// UpsertDocument pushes the full current state of a document.
	UpsertDocument(ctx context.Context, payload DocumentPayload) error

	// ListDocuments returns the full active document set.
	ListDocuments(ctx context.Context) ([]DocumentPayload, error)

	// ListArchivedDocuments returns the archived document set.
	ListArchivedDocuments(ctx context.Context) ([]domain.ArchivedDocumentEntry, error)

	// ArchiveDocument moves a document into the archive and returns the
	// server-side archive timestamp.
	ArchiveDocument(ctx context.Context, id string) (time.Time, error)

	// RestoreDocument moves an archived document back into the active set.
	RestoreDocument(ctx context.Context, id string) error

	// DeleteDocument permanently removes an archived document and
	// returns the number of attachments removed with it.
	DeleteDocument(ctx context.Context, id string) (int, error)

	// ListAttachments returns attachment metadata for a document,
	// including variant descriptors with remote URLs.
	ListAttachments(ctx context.Context, documentID string) ([]domain.AttachmentCacheRecord, error)

	// UploadAttachment uploads one file and returns the resulting
	// metadata, variant list included.
	UploadAttachment(ctx context.Context, documentID, filename, contentType string, body io.Reader) (*domain.AttachmentCacheRecord, error)

	// DeleteAttachment removes one attachment.
	DeleteAttachment(ctx context.Context, documentID, attachmentID string) error

	// Download fetches raw bytes from a variant download URL.
	Download(ctx context.Context, url string) ([]byte, error)

	// ExportDocuments asks the backend to build a backup archive and
	// returns its download URL.
	ExportDocuments(ctx context.Context) (string, error)

	// ImportArchive uploads a previously exported backup archive.
	ImportArchive(ctx context.Context, filename string, body io.Reader) error
}
