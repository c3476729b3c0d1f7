// Package domain holds the core types and contracts of the evidence
// question-answering pipeline.
package domain

// Document is a single evidence file loaded for ingestion. Documents are
// immutable and discarded after chunking; only chunks live downstream.
type Document struct {
	// ID is the source name, unique within one ingestion batch.
	ID       string
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded substring of a document's text with positional metadata.
type Chunk struct {
	// Source is the ID of the originating document.
	Source string
	// Index is the chunk's ordinal position within its document.
	Index int
	Text  string
}

// ScoredChunk pairs a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Answer is generated text plus the retrieved chunks that grounded it.
type Answer struct {
	Text    string
	Sources []ScoredChunk
}
