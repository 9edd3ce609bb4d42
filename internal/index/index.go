// Package index implements an exact, in-memory nearest-neighbor index over
// task embeddings. Search is brute force over every stored vector; at
// personal scale (hundreds to low thousands of tasks) this is fast, exact
// and trivially correct, so no approximate structure is used.
//
// The index supports no selective removal. The only way to drop an entry is
// Rebuild, fed from an authoritative record list maintained by the caller.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ldi/tally/pkg/models"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// dimension fixed by the first insertion. It indicates the embedder's
// configuration changed underneath a live index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Metadata identifies the task an indexed vector belongs to.
type Metadata struct {
	TaskID   string
	Snapshot models.Snapshot
}

// Record pairs a vector with its metadata. Callers keep a slice of records
// as the source of truth for rebuilds.
type Record struct {
	Vector []float32
	Meta   Metadata
}

type Index struct {
	mu   sync.RWMutex
	dim  int
	vecs [][]float32
	meta []Metadata
}

func New() *Index {
	return &Index{}
}

// Insert adds a vector and its metadata. The first insertion into an empty
// index fixes the dimension; any later vector of a different length fails
// with ErrDimensionMismatch and leaves the index unchanged.
func (ix *Index) Insert(vec []float32, m Metadata) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.insert(vec, m)
}

func (ix *Index) insert(vec []float32, m Metadata) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if ix.dim == 0 {
		ix.dim = len(vec)
	} else if len(vec) != ix.dim {
		return fmt.Errorf("%w: index dimension %d, got %d", ErrDimensionMismatch, ix.dim, len(vec))
	}

	ix.vecs = append(ix.vecs, append([]float32(nil), vec...))
	ix.meta = append(ix.meta, m)
	return nil
}

// Search returns the metadata of the k entries nearest to the query by
// squared Euclidean distance, nearest first. Ties keep insertion order.
// k larger than the entry count is clamped.
func (ix *Index) Search(query []float32, k int) ([]Metadata, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.vecs) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: index dimension %d, got query %d", ErrDimensionMismatch, ix.dim, len(query))
	}

	order := make([]int, len(ix.vecs))
	dists := make([]float32, len(ix.vecs))
	for i, vec := range ix.vecs {
		order[i] = i
		dists[i] = squaredDistance(query, vec)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dists[order[a]] < dists[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Metadata, k)
	for i := 0; i < k; i++ {
		results[i] = ix.meta[order[i]]
	}
	return results, nil
}

// Rebuild discards the current contents and reinserts every record in the
// supplied order. An index starting empty re-derives its dimension from the
// first record. New contents are staged so a failed rebuild leaves the
// previous entries intact.
func (ix *Index) Rebuild(records []Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	// The fixed dimension survives a rebuild; it is only derived anew when
	// the index never held a vector.
	dim := ix.dim
	vecs := make([][]float32, 0, len(records))
	meta := make([]Metadata, 0, len(records))
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("rebuild failed at task %s: %w: empty vector", r.Meta.TaskID, ErrDimensionMismatch)
		}
		if dim == 0 {
			dim = len(r.Vector)
		} else if len(r.Vector) != dim {
			return fmt.Errorf("rebuild failed at task %s: %w: index dimension %d, got %d",
				r.Meta.TaskID, ErrDimensionMismatch, dim, len(r.Vector))
		}
		vecs = append(vecs, append([]float32(nil), r.Vector...))
		meta = append(meta, r.Meta)
	}

	ix.dim = dim
	ix.vecs = vecs
	ix.meta = meta
	return nil
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vecs)
}

// Dimension returns the fixed vector length, or 0 if nothing was inserted yet.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
