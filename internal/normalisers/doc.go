// Package normalisers turns raw connector bytes into ingestion requests.
//
// Each sub-package handles a family of MIME types. The Registry picks the
// highest-priority normaliser for a document's MIME type; NewDefaultRegistry
// registers every built-in normaliser.
package normalisers
