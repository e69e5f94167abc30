package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driving"
	"github.com/amanami-takumi/aquarius/internal/logger"
)

// Ensure AttachmentService implements the interface.
var _ driving.AttachmentLibrary = (*AttachmentService)(nil)

// AttachmentService builds displayable attachment entries for one
// document at a time, preferring locally cached blobs over remote URLs
// and backfilling missing blobs without blocking the first paint.
//
// Supersession uses a generation token: every Load bumps it, and every
// asynchronous stage compares its captured token against the current one
// before committing results. A superseded stage runs to completion but
// its output is discarded.
type AttachmentService struct {
	local   driven.LocalStore
	remote  driven.RemoteStore
	handles *HandleRegistry

	mu      sync.Mutex
	gen     uint64
	docID   string
	entries []domain.AttachmentEntry
	loading bool
	lastErr error

	wg sync.WaitGroup
}

// NewAttachmentService creates an attachment service with its own
// handle registry.
func NewAttachmentService(local driven.LocalStore, remote driven.RemoteStore) *AttachmentService {
	return &AttachmentService{
		local:   local,
		remote:  remote,
		handles: NewHandleRegistry(),
	}
}

// Handles exposes the registry, mainly for leak assertions in tests.
func (s *AttachmentService) Handles() *HandleRegistry { return s.handles }

// Load switches the library to a document. Cached entries are projected
// synchronously; the authoritative list and any missing preferred-variant
// blobs arrive in the background and refresh the display in place.
func (s *AttachmentService) Load(ctx context.Context, documentID string) error {
	s.mu.Lock()
	s.gen++
	token := s.gen
	s.docID = documentID
	s.lastErr = nil
	if documentID == "" {
		s.setEntriesLocked(nil)
		s.loading = false
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	cached, err := s.local.ListAttachmentCaches(ctx, documentID)
	if err != nil {
		logger.Warn("Attachment cache read for %s failed: %v", documentID, err)
		cached = nil
	}

	cachedByID := make(map[string]domain.AttachmentCacheRecord, len(cached))
	entries := make([]domain.AttachmentEntry, 0, len(cached))
	s.mu.Lock()
	if s.gen == token {
		for _, record := range cached {
			cachedByID[record.ID] = record
			variant := domain.PreferredVariant(record.Variants)
			entries = append(entries, s.makeEntryLocked(record, variant, record.Blobs[variant]))
		}
		s.setEntriesLocked(entries)
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refresh(ctx, token, documentID, cachedByID)
	return nil
}

// Wait blocks until background refresh and backfill goroutines drain.
func (s *AttachmentService) Wait() {
	s.wg.Wait()
}

// Entries returns the current display list.
func (s *AttachmentService) Entries() []domain.AttachmentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AttachmentEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Loading reports whether a background refresh is still running.
func (s *AttachmentService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last user-visible attachment error, or nil.
func (s *AttachmentService) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// stale reports whether a newer Load has superseded the given token.
func (s *AttachmentService) stale(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != token
}

// refresh fetches the authoritative attachment list, merges it into the
// cache and replaces the display list, then kicks off blob backfill for
// entries still displaying a remote URL.
func (s *AttachmentService) refresh(ctx context.Context, token uint64, documentID string, cachedByID map[string]domain.AttachmentCacheRecord) {
	defer s.wg.Done()

	items, err := s.remote.ListAttachments(ctx, documentID)
	if err != nil {
		logger.Warn("Attachment list fetch for %s failed: %v", documentID, err)
		s.mu.Lock()
		if s.gen == token {
			s.loading = false
			s.lastErr = err
		}
		s.mu.Unlock()
		return
	}

	if s.stale(token) {
		return
	}

	// Merge fetched metadata into the cache without dropping blobs.
	if err := s.local.PutAttachmentCaches(ctx, items); err != nil {
		logger.Warn("Attachment cache write for %s failed: %v", documentID, err)
	}

	type backfillItem struct {
		record  domain.AttachmentCacheRecord
		variant string
	}
	var missing []backfillItem

	entries := make([]domain.AttachmentEntry, 0, len(items))
	s.mu.Lock()
	if s.gen != token {
		s.mu.Unlock()
		return
	}
	for _, item := range items {
		variant := domain.PreferredVariant(item.Variants)
		blob := cachedByID[item.ID].Blobs[variant]
		entries = append(entries, s.makeEntryLocked(item, variant, blob))
		if blob == nil {
			missing = append(missing, backfillItem{record: item, variant: variant})
		}
	}
	s.setEntriesLocked(entries)
	s.loading = false
	s.mu.Unlock()

	for _, item := range missing {
		s.wg.Add(1)
		go s.backfill(ctx, token, item.record, item.variant)
	}
}

// backfill fetches the preferred-variant bytes for one attachment,
// persists them into the cache and refreshes its display entry in place.
// Failures are logged and never disturb what is already displayed.
func (s *AttachmentService) backfill(ctx context.Context, token uint64, record domain.AttachmentCacheRecord, variant string) {
	defer s.wg.Done()

	url := record.VariantDownloadURL(variant)
	if url == "" {
		return
	}

	blob, err := s.remote.Download(ctx, url)
	if err != nil {
		logger.Warn("Attachment backfill of %s (%s) failed: %v", record.ID, variant, err)
		return
	}

	// The cache is monotonic, so the blob is persisted even if a newer
	// Load has superseded this one.
	if err := s.local.UpsertAttachmentBlob(ctx, record.ID, variant, blob); err != nil {
		logger.Warn("Attachment blob write of %s (%s) failed: %v", record.ID, variant, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != token {
		return
	}
	for i := range s.entries {
		if s.entries[i].ID != record.ID {
			continue
		}
		next := s.makeEntryLocked(record, variant, blob)
		if s.entries[i].DisplayURL != next.DisplayURL {
			replaced := make([]domain.AttachmentEntry, len(s.entries))
			copy(replaced, s.entries)
			replaced[i] = next
			s.setEntriesLocked(replaced)
		}
		return
	}
}

// Add uploads files one at a time, caches each result's metadata and
// original bytes, and prepends the new entries. Sequential uploads keep
// user-visible ordering and bound memory to one file at a time.
func (s *AttachmentService) Add(ctx context.Context, documentID string, files []driving.AttachmentUpload) error {
	if documentID == "" || len(files) == 0 {
		return nil
	}
	s.mu.Lock()
	if s.docID != documentID {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.mu.Unlock()

	var created []domain.AttachmentEntry
	for _, file := range files {
		data, err := io.ReadAll(file.Body)
		if err != nil {
			return s.fail(fmt.Errorf("read upload %s: %w", file.Filename, err))
		}

		record, err := s.remote.UploadAttachment(ctx, documentID, file.Filename, file.ContentType, bytes.NewReader(data))
		if err != nil {
			return s.fail(fmt.Errorf("upload %s: %w", file.Filename, err))
		}

		if err := s.local.PutAttachmentCache(ctx, *record); err != nil {
			logger.Warn("Attachment cache write of %s failed: %v", record.ID, err)
		}
		if err := s.local.UpsertAttachmentBlob(ctx, record.ID, domain.VariantOriginal, data); err != nil {
			logger.Warn("Attachment blob write of %s failed: %v", record.ID, err)
		}

		s.mu.Lock()
		created = append(created, s.makeEntryLocked(*record, domain.VariantOriginal, data))
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docID == documentID {
		s.setEntriesLocked(append(created, s.entries...))
	}
	return nil
}

// Remove deletes an attachment remotely, then purges the cache record,
// then updates the display list. Ordering guarantees a failed remote
// delete never leaves a record purged.
func (s *AttachmentService) Remove(ctx context.Context, documentID, attachmentID string) error {
	if documentID == "" {
		return nil
	}
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.remote.DeleteAttachment(ctx, documentID, attachmentID); err != nil {
		return s.fail(fmt.Errorf("delete attachment %s: %w", attachmentID, err))
	}

	if err := s.local.DeleteAttachmentCache(ctx, attachmentID); err != nil {
		logger.Warn("Attachment cache purge of %s failed: %v", attachmentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := make([]domain.AttachmentEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.ID != attachmentID {
			remaining = append(remaining, entry)
		}
	}
	s.setEntriesLocked(remaining)
	return nil
}

// Reset clears the display list, supersedes any in-flight loads and
// releases every live handle.
func (s *AttachmentService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.docID = ""
	s.loading = false
	s.lastErr = nil
	s.setEntriesLocked(nil)
}

// fail records a user-visible error and returns it.
func (s *AttachmentService) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// makeEntryLocked projects a cache record into a display entry. A cached
// blob yields a live handle reference; otherwise the entry falls back to
// the remote URL for the chosen variant. Caller holds s.mu.
func (s *AttachmentService) makeEntryLocked(record domain.AttachmentCacheRecord, variant string, blob []byte) domain.AttachmentEntry {
	entry := domain.AttachmentEntry{
		ID:             record.ID,
		DocumentID:     record.DocumentID,
		Filename:       record.Filename,
		ContentType:    record.ContentType,
		Size:           record.Size,
		CreatedAt:      record.CreatedAt,
		DownloadURL:    record.DownloadURL,
		Variants:       record.Variants,
		DisplayVariant: variant,
	}
	if handle := s.handles.Acquire(record.ID, variant, blob); handle != nil {
		entry.DisplayURL = handle.URL()
		entry.FromCache = true
		return entry
	}
	entry.DisplayURL = record.VariantDownloadURL(variant)
	return entry
}

// setEntriesLocked replaces the display list wholesale and sweeps every
// handle the new list no longer references. Caller holds s.mu.
func (s *AttachmentService) setEntriesLocked(entries []domain.AttachmentEntry) {
	active := make(map[HandleKey]struct{}, len(entries))
	for _, entry := range entries {
		if entry.FromCache {
			active[HandleKey{ID: entry.ID, Variant: entry.DisplayVariant}] = struct{}{}
		}
	}
	s.handles.ReleaseAllExcept(active)
	s.entries = entries
}
