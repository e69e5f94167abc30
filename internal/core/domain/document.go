package domain

import "time"

// DocumentEntry represents a note in the working set.
// It is the in-memory canonical form produced by reconciliation.
type DocumentEntry struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text body.
	Content string

	// UpdatedAt is when the document was last edited, on either side.
	UpdatedAt time.Time

	// SyncedAt is when the document was last confirmed written to the
	// remote store. Zero if never synced.
	SyncedAt time.Time

	// IsDirty reports that local state has diverged from the last
	// confirmed remote write.
	IsDirty bool

	// ArchivedAt is set only while the document is in the archived
	// lifecycle. Nil for working-set documents.
	ArchivedAt *time.Time
}

// ArchivedDocumentEntry represents a document that has been moved out of
// the working set. Archived documents have no local-only lifecycle; the
// remote store is authoritative for them.
type ArchivedDocumentEntry struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the title at archive time.
	Title string

	// UpdatedAt is the last edit time before archiving.
	UpdatedAt time.Time

	// ArchivedAt is when the document was archived.
	ArchivedAt time.Time
}

// DocumentRecord is the locally persisted projection of a document.
// Sync bookkeeping (IsDirty, SyncedAt) is in-memory state and is
// deliberately not persisted.
type DocumentRecord struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text body.
	Content string

	// UpdatedAt is when the document was last edited.
	UpdatedAt time.Time
}

// Record returns the persistable projection of the entry.
func (d *DocumentEntry) Record() DocumentRecord {
	return DocumentRecord{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		UpdatedAt: d.UpdatedAt,
	}
}
