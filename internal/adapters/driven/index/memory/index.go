// Package memory provides an exact, brute-force in-memory vector index.
//
// Search computes cosine similarity against every stored vector. For the
// corpus sizes this tool targets (thousands of chunks) a linear scan is
// fast and, unlike approximate structures, exactly reproducible. The
// index is immutable after construction: rebuilds create a fresh index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index holds one corpus snapshot's embedded chunks.
type Index struct {
	chunks []domain.Chunk
	norms  []float64
	dim    int
}

// NewIndex builds an index from a complete embedded chunk set, in one
// shot. All chunks must carry embeddings of the same dimensionality.
// The input slice is copied; the caller may discard it.
func NewIndex(chunks []domain.Chunk) (*Index, error) {
	idx := &Index{}
	if len(chunks) == 0 {
		return idx, nil
	}

	idx.dim = len(chunks[0].Embedding)
	if idx.dim == 0 {
		return nil, fmt.Errorf("%w: chunk %q has no embedding", domain.ErrInvalidInput, chunks[0].ID)
	}

	idx.chunks = make([]domain.Chunk, len(chunks))
	idx.norms = make([]float64, len(chunks))
	copy(idx.chunks, chunks)

	for i, c := range idx.chunks {
		if len(c.Embedding) != idx.dim {
			return nil, fmt.Errorf("%w: chunk %q has dimension %d, want %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), idx.dim)
		}
		idx.norms[i] = norm(c.Embedding)
	}

	return idx, nil
}

// Search returns the k chunks most similar to the query vector, sorted by
// descending cosine similarity with ties broken by insertion order. k is
// clamped to the index size; an empty index yields an empty result for
// any k.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]domain.RetrievedChunk, error) {
	if len(idx.chunks) == 0 || k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrInvalidInput, len(query), idx.dim)
	}

	qn := norm(query)

	scores := make([]float64, len(idx.chunks))
	for i, c := range idx.chunks {
		scores[i] = cosine(query, qn, c.Embedding, idx.norms[i])
	}

	order := make([]int, len(idx.chunks))
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	hits := make([]domain.RetrievedChunk, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = domain.RetrievedChunk{Chunk: idx.chunks[j], Score: scores[j]}
	}
	return hits, nil
}

// Size returns the number of chunks in the index.
func (idx *Index) Size() int {
	return len(idx.chunks)
}

// Dimensions returns the vector dimensionality, or 0 for an empty index.
func (idx *Index) Dimensions() int {
	return idx.dim
}

// Close releases resources. The memory index holds none.
func (idx *Index) Close() error {
	return nil
}

// Chunks returns the stored chunks in insertion order.
// Used for snapshotting; callers must not mutate the result.
func (idx *Index) Chunks() []domain.Chunk {
	return idx.chunks
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(q []float32, qn float64, v []float32, vn float64) float64 {
	if qn == 0 || vn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot / (qn * vn)
}
