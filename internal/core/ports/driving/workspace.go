package driving

import (
	"context"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

// DocumentWorkspace is the reactive working set of documents plus the
// imperative operations the presentation layer drives.
//
// Bootstrap must run once per session before anything else. Every
// mutation persists locally right away and schedules a debounced remote
// write; only explicit user actions (create, archive, restore, delete)
// surface remote failures.
type DocumentWorkspace interface {
	// Bootstrap merges the local and remote document sets into the
	// working set and seeds resync for every dirty document.
	Bootstrap(ctx context.Context) error

	// Documents returns the working set, newest first.
	Documents() []domain.DocumentEntry

	// Active returns the currently selected document, or nil.
	Active() *domain.DocumentEntry

	// SetActive selects a document. Unknown ids are ignored.
	SetActive(id string)

	// Archived returns the archived set, newest first.
	Archived() []domain.ArchivedDocumentEntry

	// Create allocates a new empty document, persists it locally and
	// schedules its first remote write.
	Create(ctx context.Context, title string) (*domain.DocumentEntry, error)

	// Rename changes a document's title. Unknown ids are ignored.
	Rename(ctx context.Context, id, title string) error

	// UpdateContent replaces a document's body. Unknown ids are ignored.
	UpdateContent(ctx context.Context, id, content string) error

	// Archive flushes pending edits to the remote store, archives the
	// document there and purges it locally.
	Archive(ctx context.Context, id string) error

	// Restore brings an archived document back into the working set.
	Restore(ctx context.Context, id string) error

	// DeleteForever permanently removes an archived document and
	// returns the number of attachments removed with it.
	DeleteForever(ctx context.Context, id string) (int, error)

	// Flush synchronously persists every dirty document, cancelling
	// their pending timers. Used before process exit.
	Flush(ctx context.Context) error

	// Close cancels all pending timers and ends the session.
	Close()
}
