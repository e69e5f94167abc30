package driving

import (
	"context"
	"io"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

// AttachmentUpload is one file handed to AttachmentLibrary.Add.
type AttachmentUpload struct {
	// Filename is the name presented to the remote store.
	Filename string

	// ContentType is the MIME type of the upload.
	ContentType string

	// Body supplies the file bytes.
	Body io.Reader
}

// AttachmentLibrary builds and maintains the display list of attachments
// for one document at a time, cache first, network second.
type AttachmentLibrary interface {
	// Load switches the library to a document: cached entries show
	// immediately, the authoritative list and missing blobs arrive in
	// the background. A newer Load supersedes an older one.
	Load(ctx context.Context, documentID string) error

	// Wait blocks until background refresh and backfill for the most
	// recent Load have drained.
	Wait()

	// Entries returns the current display list.
	Entries() []domain.AttachmentEntry

	// Loading reports whether a background refresh is still running.
	Loading() bool

	// Err returns the last user-visible attachment error, or nil.
	Err() error

	// Add uploads files sequentially and prepends the new entries.
	Add(ctx context.Context, documentID string, files []AttachmentUpload) error

	// Remove deletes an attachment remotely, then purges its cache and
	// display entry. A failed remote delete changes nothing.
	Remove(ctx context.Context, documentID, attachmentID string) error

	// Reset clears the display list and releases every live handle.
	Reset()
}
