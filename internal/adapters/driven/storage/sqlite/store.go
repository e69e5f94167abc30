// Package sqlite implements the LocalStore port on a single SQLite
// database file. Attachment blobs live in their own table keyed by
// (attachment id, variant), which gives metadata upserts merge semantics
// for free: refreshing a record never touches the cached bytes.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/amanami-takumi/aquarius/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.LocalStore = (*Store)(nil)

// Store is the SQLite-backed local store for document records and the
// attachment cache.
type Store struct {
	db   *sql.DB
	path string
}

// variantJSON is the serialised form of a variant descriptor.
type variantJSON struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.aquarius/data/notes.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".aquarius", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "notes.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// PutDocument stores or updates a document record.
func (s *Store) PutDocument(ctx context.Context, record domain.DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, record.ID, record.Title, record.Content, record.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document record by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, updated_at
		FROM documents WHERE id = ?
	`, id)

	var record domain.DocumentRecord
	if err := row.Scan(&record.ID, &record.Title, &record.Content, &record.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &record, nil
}

// ListDocuments returns all locally persisted document records.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, updated_at
		FROM documents
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.DocumentRecord
		if err := rows.Scan(&record.ID, &record.Title, &record.Content, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return records, nil
}

// DeleteDocument removes a document record. Missing ids are not an error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Attachment cache ====================

// PutAttachmentCache stores or updates a single cache record.
func (s *Store) PutAttachmentCache(ctx context.Context, record domain.AttachmentCacheRecord) error {
	return s.PutAttachmentCaches(ctx, []domain.AttachmentCacheRecord{record})
}

// PutAttachmentCaches stores a batch of records in one transaction.
// Metadata fields take the incoming values; blob rows are only ever
// added; a zero incoming CachedAt keeps the existing stamp.
func (s *Store) PutAttachmentCaches(ctx context.Context, records []domain.AttachmentCacheRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attachment_caches
			(id, document_id, filename, content_type, size, created_at, download_url, variants, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			filename = excluded.filename,
			content_type = excluded.content_type,
			size = excluded.size,
			created_at = excluded.created_at,
			download_url = excluded.download_url,
			variants = excluded.variants,
			cached_at = COALESCE(?, attachment_caches.cached_at)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		variantsJSON, err := marshalVariants(record.Variants)
		if err != nil {
			return err
		}

		var cachedAt any
		if !record.CachedAt.IsZero() {
			cachedAt = record.CachedAt
		}

		if _, err := stmt.ExecContext(ctx, record.ID, record.DocumentID, record.Filename,
			record.ContentType, record.Size, nullTime(record.CreatedAt), record.DownloadURL,
			variantsJSON, cachedAt, cachedAt); err != nil {
			return fmt.Errorf("saving attachment cache: %w", err)
		}

		for variant, blob := range record.Blobs {
			if err := upsertBlobTx(ctx, tx, record.ID, variant, blob); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetAttachmentCache retrieves a cache record, blobs included.
func (s *Store) GetAttachmentCache(ctx context.Context, id string) (*domain.AttachmentCacheRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, filename, content_type, size, created_at, download_url, variants, cached_at
		FROM attachment_caches WHERE id = ?
	`, id)

	record, err := scanAttachmentCache(row)
	if err != nil {
		return nil, err
	}

	if err := s.loadBlobs(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListAttachmentCaches returns all cache records for a document, blobs
// included.
func (s *Store) ListAttachmentCaches(ctx context.Context, documentID string) ([]domain.AttachmentCacheRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, filename, content_type, size, created_at, download_url, variants, cached_at
		FROM attachment_caches WHERE document_id = ?
		ORDER BY created_at DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying attachment caches: %w", err)
	}
	defer rows.Close()

	var records []domain.AttachmentCacheRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanAttachmentCacheRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachment caches: %w", err)
	}

	for i := range records {
		if err := s.loadBlobs(ctx, &records[i]); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// DeleteAttachmentCache removes one cache record; its blob rows cascade.
func (s *Store) DeleteAttachmentCache(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM attachment_caches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting attachment cache: %w", err)
	}
	return nil
}

// DeleteAttachmentCachesByDocument removes every cache record for a document.
func (s *Store) DeleteAttachmentCachesByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM attachment_caches WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting attachment caches: %w", err)
	}
	return nil
}

// UpsertAttachmentBlob stores the bytes for one variant and refreshes
// CachedAt. A blob for an attachment with no cache record is silently
// dropped.
func (s *Store) UpsertAttachmentBlob(ctx context.Context, id, variant string, blob []byte) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attachment_caches WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking attachment cache: %w", err)
	}
	if exists == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertBlobTx(ctx, tx, id, variant, blob); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE attachment_caches SET cached_at = ? WHERE id = ?", time.Now(), id); err != nil {
		return fmt.Errorf("stamping attachment cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetAttachmentBlob returns the cached bytes for a variant, or nil when
// not cached.
func (s *Store) GetAttachmentBlob(ctx context.Context, id, variant string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM attachment_blobs WHERE attachment_id = ? AND variant = ?
	`, id, variant).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying attachment blob: %w", err)
	}
	return blob, nil
}

// ==================== Helper Functions ====================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertBlobTx(ctx context.Context, tx execer, id, variant string, blob []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO attachment_blobs (attachment_id, variant, data)
		VALUES (?, ?, ?)
		ON CONFLICT(attachment_id, variant) DO UPDATE SET
			data = excluded.data
	`, id, variant, blob)
	if err != nil {
		return fmt.Errorf("saving attachment blob: %w", err)
	}
	return nil
}

// loadBlobs attaches all cached blob rows to a record.
func (s *Store) loadBlobs(ctx context.Context, record *domain.AttachmentCacheRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, data FROM attachment_blobs WHERE attachment_id = ?
	`, record.ID)
	if err != nil {
		return fmt.Errorf("querying attachment blobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var variant string
		var data []byte
		if err := rows.Scan(&variant, &data); err != nil {
			return fmt.Errorf("scanning attachment blob: %w", err)
		}
		if record.Blobs == nil {
			record.Blobs = make(map[string][]byte)
		}
		record.Blobs[variant] = data
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating attachment blobs: %w", err)
	}
	return nil
}

func marshalVariants(variants []domain.AttachmentVariant) (string, error) {
	out := make([]variantJSON, 0, len(variants))
	for _, v := range variants {
		out = append(out, variantJSON{
			Name:        v.Name,
			ContentType: v.ContentType,
			Size:        v.Size,
			Width:       v.Width,
			Height:      v.Height,
			DownloadURL: v.DownloadURL,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshalling variants: %w", err)
	}
	return string(data), nil
}

func unmarshalVariants(data string) ([]domain.AttachmentVariant, error) {
	if data == "" {
		return nil, nil
	}
	var raw []variantJSON
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling variants: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	variants := make([]domain.AttachmentVariant, 0, len(raw))
	for _, v := range raw {
		variants = append(variants, domain.AttachmentVariant{
			Name:        v.Name,
			ContentType: v.ContentType,
			Size:        v.Size,
			Width:       v.Width,
			Height:      v.Height,
			DownloadURL: v.DownloadURL,
		})
	}
	return variants, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCacheColumns(scanner rowScanner) (*domain.AttachmentCacheRecord, error) {
	var record domain.AttachmentCacheRecord
	var createdAt, cachedAt sql.NullTime
	var variantsJSON string

	if err := scanner.Scan(&record.ID, &record.DocumentID, &record.Filename,
		&record.ContentType, &record.Size, &createdAt, &record.DownloadURL,
		&variantsJSON, &cachedAt); err != nil {
		return nil, err
	}

	if createdAt.Valid {
		record.CreatedAt = createdAt.Time
	}
	if cachedAt.Valid {
		record.CachedAt = cachedAt.Time
	}

	variants, err := unmarshalVariants(variantsJSON)
	if err != nil {
		return nil, err
	}
	record.Variants = variants

	return &record, nil
}

// scanAttachmentCache scans a single cache row.
func scanAttachmentCache(row *sql.Row) (*domain.AttachmentCacheRecord, error) {
	record, err := scanCacheColumns(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning attachment cache: %w", err)
	}
	return record, nil
}

// scanAttachmentCacheRows scans a cache record from *sql.Rows.
func scanAttachmentCacheRows(rows *sql.Rows) (*domain.AttachmentCacheRecord, error) {
	record, err := scanCacheColumns(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning attachment cache: %w", err)
	}
	return record, nil
}
