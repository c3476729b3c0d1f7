package domain

import "context"

// Embedder maps text to fixed-dimension vectors. Output dimension is
// constant across calls for a given configuration; mixing vectors from
// different configurations in one index is forbidden.
type Embedder interface {
	// Embed vectorizes a single text (typically a query).
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch vectorizes texts in order. len(result) == len(texts).
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// CorpusPreparer is implemented by embedders whose vector space is derived
// from the ingested corpus. PrepareCorpus returns a new Embedder fitted to
// the corpus and never modifies the receiver, so an embedder serving live
// queries stays valid while a rebuild fits its replacement.
type CorpusPreparer interface {
	PrepareCorpus(corpus []string) (Embedder, error)
}

// Generator produces answer text from a grounding prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
