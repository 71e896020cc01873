// Package domain defines the core business entities for Raggy.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested unit of content, unique per source and content hash
//   - Chunk: An embedded window of a document's normalised text
//   - SearchFilters: Typed retrieval constraints plus ad hoc metadata equality
//   - Candidate / Citation / Answer: Ephemeral read-path results
//   - IngestJob: Bookkeeping for batch ingestion runs
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
