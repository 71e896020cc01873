package ivf

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Defaults.
const (
	DefaultLists     = domain.DefaultLists
	DefaultProbes    = domain.DefaultProbes
	kmeansIterations = 10
	pointsPerList    = 4
)

type entry struct {
	vec  []float32
	norm float64
	list int
}

// Index is a thread-safe IVF-flat index keyed by chunk ID.
type Index struct {
	mu sync.RWMutex

	dims   int
	lists  int
	probes int

	// trainAt is the size at which the next (re)training happens.
	trainAt int

	entries   map[string]*entry
	centroids [][]float32
	members   []map[string]struct{}
}

// Option configures the index.
type Option func(*Index)

// WithLists sets the number of partitions.
func WithLists(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.lists = n
		}
	}
}

// WithProbes sets how many partitions a query scans.
func WithProbes(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.probes = n
		}
	}
}

// New creates an empty index for vectors of the given dimension.
func New(dims int, opts ...Option) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", domain.ErrInvalidInput)
	}
	idx := &Index{
		dims:    dims,
		lists:   DefaultLists,
		probes:  DefaultProbes,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.trainAt = idx.lists * pointsPerList
	return idx, nil
}

// Dimensions returns the vector size the index accepts.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Trained reports whether the index is partitioned.
func (idx *Index) Trained() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.centroids != nil
}

// Add inserts or replaces the vector for a chunk ID.
func (idx *Index) Add(chunkID string, embedding []float32) error {
	if len(embedding) != idx.dims {
		return fmt.Errorf("%w: got %d, index expects %d",
			domain.ErrDimensionMismatch, len(embedding), idx.dims)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)
	e := &entry{vec: vec, norm: norm(vec), list: -1}
	idx.entries[chunkID] = e

	if idx.centroids != nil {
		e.list = nearestCentroid(idx.centroids, vec, e.norm)
		idx.members[e.list][chunkID] = struct{}{}
	}
	if len(idx.entries) >= idx.trainAt {
		idx.trainLocked()
		idx.trainAt = len(idx.entries) * 2
	}
	return nil
}

// Delete removes a vector from the index. Missing IDs are ignored.
func (idx *Index) Delete(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

func (idx *Index) removeLocked(chunkID string) {
	e, ok := idx.entries[chunkID]
	if !ok {
		return
	}
	if e.list >= 0 {
		delete(idx.members[e.list], chunkID)
	}
	delete(idx.entries, chunkID)
}

// Search finds up to k nearest neighbours to the query vector.
// If the probed lists yield fewer than k allowed hits the remaining
// lists are scanned too, so restrictive filters do not starve results.
func (idx *Index) Search(query []float32, k int, allow func(string) bool) ([]driven.VectorHit, error) {
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d, index expects %d",
			domain.ErrDimensionMismatch, len(query), idx.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	qn := norm(query)

	if idx.centroids == nil || idx.probes >= len(idx.centroids) {
		hits := make([]driven.VectorHit, 0, len(idx.entries))
		for id, e := range idx.entries {
			if allow != nil && !allow(id) {
				continue
			}
			hits = append(hits, driven.VectorHit{ChunkID: id, Distance: cosineDistance(query, qn, e.vec, e.norm)})
		}
		return topK(hits, k), nil
	}

	order := rankCentroids(idx.centroids, query, qn)
	var hits []driven.VectorHit
	for i, list := range order {
		if i >= idx.probes && len(hits) >= k {
			break
		}
		for id := range idx.members[list] {
			if allow != nil && !allow(id) {
				continue
			}
			e := idx.entries[id]
			hits = append(hits, driven.VectorHit{ChunkID: id, Distance: cosineDistance(query, qn, e.vec, e.norm)})
		}
	}
	return topK(hits, k), nil
}

// trainLocked runs spherical k-means over all vectors and reassigns lists.
// Initial centroids are taken at even strides over sorted IDs so training
// is deterministic for a given set of vectors.
func (idx *Index) trainLocked() {
	n := len(idx.entries)
	k := idx.lists
	if k > n {
		k = n
	}
	if k == 0 {
		return
	}

	ids := make([]string, 0, n)
	for id := range idx.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	centroids := make([][]float32, k)
	for c := 0; c < k; c++ {
		centroids[c] = unit(idx.entries[ids[c*n/k]].vec)
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, id := range ids {
			e := idx.entries[id]
			c := nearestCentroid(centroids, e.vec, e.norm)
			if iter == 0 || c != assign[i] {
				changed = true
			}
			assign[i] = c
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, idx.dims)
		}
		counts := make([]int, k)
		for i, id := range ids {
			e := idx.entries[id]
			if e.norm == 0 {
				continue
			}
			c := assign[i]
			counts[c]++
			for d, v := range e.vec {
				sums[c][d] += float64(v) / e.norm
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			next := make([]float32, idx.dims)
			for d := range next {
				next[d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = unit(next)
		}
	}

	for i, id := range ids {
		e := idx.entries[id]
		assign[i] = nearestCentroid(centroids, e.vec, e.norm)
	}

	idx.centroids = centroids
	idx.members = make([]map[string]struct{}, k)
	for c := range idx.members {
		idx.members[c] = make(map[string]struct{})
	}
	for i, id := range ids {
		idx.entries[id].list = assign[i]
		idx.members[assign[i]][id] = struct{}{}
	}
}

func topK(hits []driven.VectorHit, k int) []driven.VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func rankCentroids(centroids [][]float32, q []float32, qn float64) []int {
	dist := make([]float64, len(centroids))
	order := make([]int, len(centroids))
	for c, centroid := range centroids {
		order[c] = c
		dist[c] = cosineDistance(q, qn, centroid, 1)
	}
	sort.SliceStable(order, func(i, j int) bool { return dist[order[i]] < dist[order[j]] })
	return order
}

func nearestCentroid(centroids [][]float32, v []float32, vn float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := cosineDistance(v, vn, centroid, 1); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	return cosineDistance(a, norm(a), b, norm(b))
}

func cosineDistance(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(an*bn)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func unit(v []float32) []float32 {
	n := norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}
