package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driving"
	"github.com/amanami-takumi/aquarius/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentWorkspace = (*DocumentService)(nil)

// DefaultSyncDebounce is the quiet period between the last local edit
// and the corresponding remote write.
const DefaultSyncDebounce = time.Second

// DefaultDocumentTitle is used for the document synthesized when the
// merged working set would otherwise be empty.
const DefaultDocumentTitle = "Untitled note"

// DocumentService owns the working document set. It reconciles local and
// remote state at startup with a last-write-wins policy, then debounces
// outbound writes per document so bursts of edits collapse into a single
// remote write.
//
// All mutation of the working set happens under one mutex; remote calls
// run outside it and rendezvous by re-locking before committing results.
type DocumentService struct {
	local    driven.LocalStore
	remote   driven.RemoteStore
	debounce time.Duration

	mu       sync.Mutex
	docs     []domain.DocumentEntry
	archived []domain.ArchivedDocumentEntry
	activeID string
	timers   map[string]*time.Timer
	closed   bool
}

// NewDocumentService creates a document service. A non-positive debounce
// falls back to DefaultSyncDebounce.
func NewDocumentService(local driven.LocalStore, remote driven.RemoteStore, debounce time.Duration) *DocumentService {
	if debounce <= 0 {
		debounce = DefaultSyncDebounce
	}
	return &DocumentService{
		local:    local,
		remote:   remote,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Bootstrap merges the locally persisted document set with the remote
// set. Remote fetch failures are transient: the session continues on
// local state alone. The working set is never left empty.
func (s *DocumentService) Bootstrap(ctx context.Context) error {
	localRecords, err := s.local.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list local documents: %w", err)
	}

	remoteRecords, err := s.remote.ListDocuments(ctx)
	if err != nil {
		logger.Warn("Remote document fetch failed, continuing offline: %v", err)
		remoteRecords = nil
	}

	localByID := make(map[string]domain.DocumentRecord, len(localRecords))
	for _, record := range localRecords {
		localByID[record.ID] = record
	}

	merged := make([]domain.DocumentEntry, 0, len(localRecords)+len(remoteRecords))
	var dirtyIDs []string

	for _, remote := range remoteRecords {
		local, exists := localByID[remote.ID]
		if !exists || !remote.UpdatedAt.Before(local.UpdatedAt) {
			// Remote wins, ties included. Adopt it verbatim and
			// persist it locally.
			merged = append(merged, domain.DocumentEntry{
				ID:        remote.ID,
				Title:     remote.Title,
				Content:   remote.Content,
				UpdatedAt: remote.UpdatedAt,
				SyncedAt:  remote.UpdatedAt,
			})
			record := domain.DocumentRecord{
				ID:        remote.ID,
				Title:     remote.Title,
				Content:   remote.Content,
				UpdatedAt: remote.UpdatedAt,
			}
			if err := s.local.PutDocument(ctx, record); err != nil {
				return fmt.Errorf("persist remote document %s: %w", remote.ID, err)
			}
		} else {
			// Local is strictly newer: keep it, mark it dirty and
			// resync later. The remote copy is not overwritten here
			// so it survives if the resync fails.
			merged = append(merged, domain.DocumentEntry{
				ID:        local.ID,
				Title:     local.Title,
				Content:   local.Content,
				UpdatedAt: local.UpdatedAt,
				IsDirty:   true,
			})
			dirtyIDs = append(dirtyIDs, local.ID)
		}
		delete(localByID, remote.ID)
	}

	// Records that never matched a remote id exist only locally, e.g.
	// created while offline. Adopt them dirty.
	for _, local := range localByID {
		merged = append(merged, domain.DocumentEntry{
			ID:        local.ID,
			Title:     local.Title,
			Content:   local.Content,
			UpdatedAt: local.UpdatedAt,
			IsDirty:   true,
		})
		dirtyIDs = append(dirtyIDs, local.ID)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})

	archived, err := s.remote.ListArchivedDocuments(ctx)
	if err != nil {
		logger.Warn("Archived document fetch failed: %v", err)
		archived = nil
	}

	s.mu.Lock()
	s.docs = merged
	s.archived = archived
	if len(merged) > 0 {
		s.activeID = merged[0].ID
	}
	s.mu.Unlock()

	if len(merged) == 0 {
		if _, err := s.Create(ctx, DefaultDocumentTitle); err != nil {
			return err
		}
		return nil
	}

	for _, id := range dirtyIDs {
		s.ScheduleSync(id)
	}
	return nil
}

// Documents returns the working set, newest first.
func (s *DocumentService) Documents() []domain.DocumentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DocumentEntry, len(s.docs))
	copy(out, s.docs)
	return out
}

// Active returns the currently selected document, or nil.
func (s *DocumentService) Active() *domain.DocumentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry := s.findLocked(s.activeID); entry != nil {
		clone := *entry
		return &clone
	}
	return nil
}

// SetActive selects a document. Unknown ids are ignored.
func (s *DocumentService) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(id) != nil {
		s.activeID = id
	}
}

// Archived returns the archived set, newest first.
func (s *DocumentService) Archived() []domain.ArchivedDocumentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ArchivedDocumentEntry, len(s.archived))
	copy(out, s.archived)
	return out
}

// Create allocates a new empty document, persists it locally and arms
// its sync timer.
func (s *DocumentService) Create(ctx context.Context, title string) (*domain.DocumentEntry, error) {
	entry := domain.DocumentEntry{
		ID:        uuid.NewString(),
		Title:     title,
		UpdatedAt: time.Now(),
		IsDirty:   true,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	s.docs = append([]domain.DocumentEntry{entry}, s.docs...)
	s.activeID = entry.ID
	s.mu.Unlock()

	if err := s.local.PutDocument(ctx, entry.Record()); err != nil {
		return nil, fmt.Errorf("persist new document: %w", err)
	}

	s.ScheduleSync(entry.ID)
	clone := entry
	return &clone, nil
}

// Rename changes a document's title. Unknown ids are ignored.
func (s *DocumentService) Rename(ctx context.Context, id, title string) error {
	return s.mutate(ctx, id, func(entry *domain.DocumentEntry) {
		entry.Title = title
	})
}

// UpdateContent replaces a document's body. Unknown ids are ignored.
func (s *DocumentService) UpdateContent(ctx context.Context, id, content string) error {
	return s.mutate(ctx, id, func(entry *domain.DocumentEntry) {
		entry.Content = content
	})
}

// mutate applies an edit, persists it locally and schedules the remote
// write. Local persistence always precedes scheduling.
func (s *DocumentService) mutate(ctx context.Context, id string, apply func(*domain.DocumentEntry)) error {
	s.mu.Lock()
	entry := s.findLocked(id)
	if entry == nil {
		s.mu.Unlock()
		return nil
	}
	apply(entry)
	entry.UpdatedAt = time.Now()
	entry.IsDirty = true
	record := entry.Record()
	s.mu.Unlock()

	if err := s.local.PutDocument(ctx, record); err != nil {
		return fmt.Errorf("persist document %s: %w", id, err)
	}

	s.ScheduleSync(id)
	return nil
}

// ScheduleSync arms or re-arms the debounce timer for a document. A call
// while a timer is already armed cancels and replaces it, so a burst of
// edits produces exactly one remote write.
func (s *DocumentService) ScheduleSync(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		// A re-arm may have replaced this timer while it was firing.
		if s.timers[id] == timer {
			delete(s.timers, id)
		}
		s.mu.Unlock()

		if err := s.PersistToBackend(context.Background(), id); err != nil {
			logger.Warn("Background sync of %s failed: %v", id, err)
		}
	})
	s.timers[id] = timer
}

// PersistToBackend pushes the full current entry to the remote store.
// A clean entry is a no-op, so the call is safe to make speculatively.
// On success the dirty flag clears only if no newer edit landed during
// the flight; failure leaves it set for a later retry.
func (s *DocumentService) PersistToBackend(ctx context.Context, id string) error {
	s.mu.Lock()
	entry := s.findLocked(id)
	if entry == nil || !entry.IsDirty {
		s.mu.Unlock()
		return nil
	}
	payload := driven.DocumentPayload{
		ID:        entry.ID,
		Title:     entry.Title,
		Content:   entry.Content,
		UpdatedAt: entry.UpdatedAt,
	}
	s.mu.Unlock()

	if err := s.remote.UpsertDocument(ctx, payload); err != nil {
		return fmt.Errorf("sync document %s: %w", id, err)
	}

	s.mu.Lock()
	if entry := s.findLocked(id); entry != nil && entry.UpdatedAt.Equal(payload.UpdatedAt) {
		entry.IsDirty = false
		entry.SyncedAt = time.Now()
	}
	s.mu.Unlock()
	return nil
}

// Archive flushes pending edits, archives the document remotely and
// purges it locally. The forced persist guarantees the remote holds the
// latest content before the document leaves the active set. On failure
// the document stays in the working set with its timer re-armed.
func (s *DocumentService) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	entry := s.findLocked(id)
	if entry == nil {
		s.mu.Unlock()
		return nil
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	archivedAt, err := s.archiveRemote(ctx, id)
	if err != nil {
		s.rearmIfDirty(id)
		return err
	}

	if err := s.local.DeleteDocument(ctx, id); err != nil {
		logger.Warn("Local delete of %s failed: %v", id, err)
	}
	if err := s.local.DeleteAttachmentCachesByDocument(ctx, id); err != nil {
		logger.Warn("Attachment cache purge for %s failed: %v", id, err)
	}

	s.mu.Lock()
	for i := range s.docs {
		if s.docs[i].ID != id {
			continue
		}
		s.archived = append([]domain.ArchivedDocumentEntry{{
			ID:         id,
			Title:      s.docs[i].Title,
			UpdatedAt:  s.docs[i].UpdatedAt,
			ArchivedAt: archivedAt,
		}}, s.archived...)
		s.docs = append(s.docs[:i], s.docs[i+1:]...)
		break
	}
	if s.activeID == id {
		s.activeID = ""
		if len(s.docs) > 0 {
			s.activeID = s.docs[0].ID
		}
	}
	s.mu.Unlock()
	return nil
}

// archiveRemote performs the forced persist followed by the archive
// request. Ordering matters: the persist must land first.
func (s *DocumentService) archiveRemote(ctx context.Context, id string) (time.Time, error) {
	if err := s.PersistToBackend(ctx, id); err != nil {
		return time.Time{}, err
	}
	archivedAt, err := s.remote.ArchiveDocument(ctx, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive document %s: %w", id, err)
	}
	if archivedAt.IsZero() {
		archivedAt = time.Now()
	}
	return archivedAt, nil
}

// rearmIfDirty re-arms the sync timer after a failed archive so the
// document keeps a path back to a consistent remote state.
func (s *DocumentService) rearmIfDirty(id string) {
	s.mu.Lock()
	entry := s.findLocked(id)
	dirty := entry != nil && entry.IsDirty
	s.mu.Unlock()
	if dirty {
		s.ScheduleSync(id)
	}
}

// Restore brings an archived document back into the working set by
// re-running reconciliation against the updated remote state.
func (s *DocumentService) Restore(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for _, record := range s.archived {
		if record.ID == id {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil
	}

	if err := s.remote.RestoreDocument(ctx, id); err != nil {
		return fmt.Errorf("restore document %s: %w", id, err)
	}

	s.mu.Lock()
	s.archived = removeArchived(s.archived, id)
	s.mu.Unlock()

	if err := s.Bootstrap(ctx); err != nil {
		return err
	}
	s.SetActive(id)
	return nil
}

// DeleteForever permanently removes an archived document. Returns the
// number of attachments the remote store removed with it.
func (s *DocumentService) DeleteForever(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	found := false
	for _, record := range s.archived {
		if record.ID == id {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return 0, nil
	}

	removed, err := s.remote.DeleteDocument(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", id, err)
	}

	s.mu.Lock()
	s.archived = removeArchived(s.archived, id)
	s.mu.Unlock()

	if err := s.local.DeleteAttachmentCachesByDocument(ctx, id); err != nil {
		logger.Warn("Attachment cache purge for %s failed: %v", id, err)
	}
	if err := s.local.DeleteDocument(ctx, id); err != nil {
		logger.Warn("Local delete of %s failed: %v", id, err)
	}
	return removed, nil
}

// Flush synchronously persists every dirty document, cancelling their
// pending timers first. Used before process exit.
func (s *DocumentService) Flush(ctx context.Context) error {
	s.mu.Lock()
	var dirtyIDs []string
	for i := range s.docs {
		if s.docs[i].IsDirty {
			dirtyIDs = append(dirtyIDs, s.docs[i].ID)
		}
	}
	for _, id := range dirtyIDs {
		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range dirtyIDs {
		if err := s.PersistToBackend(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cancels all pending timers and ends the session.
func (s *DocumentService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// findLocked returns a pointer into the working set. Caller holds s.mu.
func (s *DocumentService) findLocked(id string) *domain.DocumentEntry {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i]
		}
	}
	return nil
}

// removeArchived filters one id out of the archived list.
func removeArchived(archived []domain.ArchivedDocumentEntry, id string) []domain.ArchivedDocumentEntry {
	out := archived[:0]
	for _, record := range archived {
		if record.ID != id {
			out = append(out, record)
		}
	}
	return out
}
