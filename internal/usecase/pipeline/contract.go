package pipeline

import "github.com/coldcase-labs/detective/internal/domain"

// Chunker splits documents into overlapping chunks.
type Chunker interface {
	Split(doc domain.Document) []domain.Chunk
}

// Status is the read-only health view of the pipeline.
type Status struct {
	Ready     bool
	Documents int
	Chunks    int
}
