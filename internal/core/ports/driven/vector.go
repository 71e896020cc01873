package driven

// VectorIndex provides approximate nearest-neighbour search over chunk vectors.
// Distances are cosine distances in [0,2].
type VectorIndex interface {
	// Add inserts or replaces the vector for a chunk ID.
	Add(chunkID string, embedding []float32) error

	// Delete removes a vector from the index. Missing IDs are ignored.
	Delete(chunkID string)

	// Search finds up to k nearest neighbours to the query vector.
	// When allow is non-nil only chunk IDs for which it returns true are considered.
	Search(query []float32, k int, allow func(chunkID string) bool) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimensions returns the vector size the index accepts.
	Dimensions() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Distance is the cosine distance to the query.
	Distance float64
}
