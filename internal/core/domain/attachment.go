package domain

import "time"

// VariantOriginal is the variant name of the upload as received,
// before any server-side resizing.
const VariantOriginal = "original"

// variantPreference is the fixed display priority order for attachment
// variants. Earlier entries are preferred.
var variantPreference = []string{"preview", "medium", "small", VariantOriginal}

// AttachmentVariant describes one encoded rendition of an attachment.
type AttachmentVariant struct {
	// Name identifies the rendition (e.g. "preview", "original").
	Name string

	// ContentType is the MIME type of this rendition.
	ContentType string

	// Size is the rendition size in bytes.
	Size int64

	// Width and Height are pixel dimensions for image renditions.
	// Zero when not applicable.
	Width  int
	Height int

	// DownloadURL is the canonical remote URL for this rendition.
	DownloadURL string
}

// AttachmentCacheRecord is the locally cached state of an attachment:
// the remote metadata plus any variant blobs fetched so far.
type AttachmentCacheRecord struct {
	// ID is the unique identifier for the attachment.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// Filename is the original upload filename.
	Filename string

	// ContentType is the MIME type of the original upload.
	ContentType string

	// Size is the original upload size in bytes.
	Size int64

	// CreatedAt is when the attachment was uploaded.
	CreatedAt time.Time

	// DownloadURL is the canonical remote URL of the original.
	DownloadURL string

	// Variants lists the renditions the remote store offers, in the
	// order the remote declared them.
	Variants []AttachmentVariant

	// Blobs maps variant name to locally cached bytes. Sparse: only
	// variants fetched so far are present.
	Blobs map[string][]byte

	// CachedAt is when the record was last written to the cache.
	CachedAt time.Time
}

// Merge folds freshly fetched metadata into an existing cache record.
// Metadata fields take the incoming values; cached blobs are preserved
// unless the incoming record carries its own, and a zero incoming
// CachedAt keeps the existing stamp.
func (r AttachmentCacheRecord) Merge(existing *AttachmentCacheRecord) AttachmentCacheRecord {
	if existing == nil {
		return r
	}
	merged := r
	if merged.Blobs == nil {
		merged.Blobs = existing.Blobs
	} else if existing.Blobs != nil {
		blobs := make(map[string][]byte, len(existing.Blobs)+len(merged.Blobs))
		for variant, blob := range existing.Blobs {
			blobs[variant] = blob
		}
		for variant, blob := range merged.Blobs {
			blobs[variant] = blob
		}
		merged.Blobs = blobs
	}
	if merged.CachedAt.IsZero() {
		merged.CachedAt = existing.CachedAt
	}
	return merged
}

// PreferredVariant resolves which rendition to display: preview, then
// medium, then small, then original, falling back to the first variant
// actually offered, or "original" when none are.
func PreferredVariant(variants []AttachmentVariant) string {
	for _, candidate := range variantPreference {
		for _, v := range variants {
			if v.Name == candidate {
				return candidate
			}
		}
	}
	if len(variants) > 0 {
		return variants[0].Name
	}
	return VariantOriginal
}

// VariantDownloadURL returns the remote URL for the named variant,
// falling back to the canonical original URL.
func (r *AttachmentCacheRecord) VariantDownloadURL(variant string) string {
	if variant != VariantOriginal {
		for _, v := range r.Variants {
			if v.Name == variant {
				return v.DownloadURL
			}
		}
	}
	return r.DownloadURL
}

// AttachmentEntry is the display-facing projection of an attachment.
// Derived from a cache record and a handle, never persisted.
type AttachmentEntry struct {
	// ID is the unique identifier for the attachment.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// Filename is the original upload filename.
	Filename string

	// ContentType is the MIME type of the original upload.
	ContentType string

	// Size is the original upload size in bytes.
	Size int64

	// CreatedAt is when the attachment was uploaded.
	CreatedAt time.Time

	// DownloadURL is the canonical remote URL of the original.
	DownloadURL string

	// Variants lists the renditions the remote store offers.
	Variants []AttachmentVariant

	// DisplayURL is what the presentation layer should render: a live
	// handle reference when the blob is cached, a remote URL otherwise.
	DisplayURL string

	// DisplayVariant is the rendition DisplayURL points at.
	DisplayVariant string

	// FromCache reports whether DisplayURL is backed by a local blob.
	FromCache bool
}
