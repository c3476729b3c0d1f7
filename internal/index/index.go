// Package index provides an in-memory, brute-force cosine similarity index.
// An Index is immutable once built; re-ingestion builds a fresh one.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/coldcase-labs/detective/internal/domain"
)

// Index maps internal ordinals to (vector, chunk) pairs built from one
// chunk set.
type Index struct {
	dim     int
	chunks  []domain.Chunk
	vectors [][]float64
	norms   []float64
	docs    int
}

// Build constructs an index from parallel chunk and vector slices. It is
// all-or-nothing: any inconsistency fails the build without partial state.
// Zero chunks yield a valid, permanently-empty index.
func Build(chunks []domain.Chunk, vectors [][]float64) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%d chunks vs %d vectors: %w",
			len(chunks), len(vectors), domain.ErrDimensionMismatch)
	}

	dim := 0
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d: %w",
				i, len(v), dim, domain.ErrDimensionMismatch)
		}
		norms[i] = l2norm(v)
	}

	seen := make(map[string]struct{})
	for _, c := range chunks {
		seen[c.Source] = struct{}{}
	}

	return &Index{
		dim:     dim,
		chunks:  chunks,
		vectors: vectors,
		norms:   norms,
		docs:    len(seen),
	}, nil
}

// Search returns the k stored chunks most similar to the query vector by
// cosine similarity, in non-increasing score order. Ties keep insertion
// order. k is clamped to the index size.
func (ix *Index) Search(query []float64, k int) []domain.ScoredChunk {
	if k <= 0 || len(ix.chunks) == 0 {
		return nil
	}
	if k > len(ix.chunks) {
		k = len(ix.chunks)
	}

	qnorm := l2norm(query)
	ords := make([]int, len(ix.chunks))
	scores := make([]float64, len(ix.chunks))
	for i := range ix.chunks {
		ords[i] = i
		scores[i] = cosine(query, qnorm, ix.vectors[i], ix.norms[i])
	}
	sort.SliceStable(ords, func(a, b int) bool {
		return scores[ords[a]] > scores[ords[b]]
	})

	results := make([]domain.ScoredChunk, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredChunk{Chunk: ix.chunks[ords[i]], Score: scores[ords[i]]}
	}
	return results
}

// Len reports the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Documents reports the number of distinct source documents in the index.
func (ix *Index) Documents() int { return ix.docs }

// Dimension reports the vector dimension, 0 for an empty index.
func (ix *Index) Dimension() int { return ix.dim }

func cosine(a []float64, anorm float64, b []float64, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (anorm * bnorm)
}

func l2norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
