// Package domain defines the core business entities for Aquarius.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentEntry: A note in the working set, with sync bookkeeping
//   - ArchivedDocumentEntry: A note moved out of the working set
//   - AttachmentCacheRecord: Locally cached attachment metadata and blobs
//   - AttachmentEntry: The display-facing attachment projection
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
