// Package pipeline orchestrates the retrieval-and-generation core:
// ingestion builds chunk vectors into an index, Ask drives
// retrieve -> assemble -> generate.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/domain"
	"github.com/coldcase-labs/detective/internal/index"
	"github.com/coldcase-labs/detective/internal/metrics"
	"github.com/coldcase-labs/detective/internal/prompt"
)

// DefaultTopK is the retrieval result count when none is configured.
const DefaultTopK = 3

// Service owns the live index and composes the four pipeline stages. Readers
// (Ask, Status) load the snapshot pointer atomically and never block;
// rebuilds swap it in as their last step. A second Initialize while one is
// in flight is rejected with domain.ErrReindexInProgress.
type Service struct {
	chunker   Chunker
	embedder  domain.Embedder
	generator domain.Generator
	topK      int
	logger    *zap.Logger

	live       atomic.Pointer[snapshot]
	rebuilding atomic.Bool
}

// snapshot bundles an index with the embedder that produced its vectors.
// Queries must embed into the vector space the index was built from, so the
// two always travel together through one atomic swap. Corpus-fitted
// embedders yield a fresh instance per rebuild; configuration-fixed ones
// (remote APIs) repeat across snapshots.
type snapshot struct {
	index    *index.Index
	embedder domain.Embedder
}

// New creates the pipeline service in the Uninitialized state.
func New(chunker Chunker, embedder domain.Embedder, generator domain.Generator, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Initialize rebuilds the index from the full document set: chunk every
// document, embed all chunks in one batch, build a fresh index, then swap it
// in atomically. A failure at any stage leaves the previous index (if any)
// untouched.
func (s *Service) Initialize(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrNoDocuments
	}
	if s.embedder == nil || s.generator == nil {
		return fmt.Errorf("embedder or generator not constructed: %w", domain.ErrConfigurationMissing)
	}

	if !s.rebuilding.CompareAndSwap(false, true) {
		metrics.RebuildsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrReindexInProgress
	}
	defer s.rebuilding.Store(false)

	start := time.Now()

	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.chunker.Split(doc)...)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Corpus-fitted embedders are prepared off to the side; the embedder
	// inside the live snapshot keeps serving queries untouched until the
	// swap below.
	embedder := s.embedder
	if p, ok := embedder.(domain.CorpusPreparer); ok && len(texts) > 0 {
		fitted, err := p.PrepareCorpus(texts)
		if err != nil {
			metrics.RebuildsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("prepare embedder: %w", err)
		}
		embedder = fitted
	}

	var vectors [][]float64
	if len(texts) > 0 {
		var err error
		vectors, err = embedder.EmbedBatch(ctx, texts)
		if err != nil {
			metrics.RebuildsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("embed chunks: %w", err)
		}
	}

	ix, err := index.Build(chunks, vectors)
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build index: %w", err)
	}

	// Single atomic swap: concurrent Ask calls observe either the old or
	// the new (index, embedder) pair, never a partial or mixed one.
	s.live.Store(&snapshot{index: ix, embedder: embedder})

	metrics.RebuildsTotal.WithLabelValues("success").Inc()
	metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	metrics.IndexedChunks.Set(float64(ix.Len()))
	metrics.IndexedDocuments.Set(float64(ix.Documents()))

	s.logger.Info("Index rebuilt",
		zap.Int("documents", ix.Documents()),
		zap.Int("chunks", ix.Len()),
		zap.Int("dimension", ix.Dimension()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Retrieve embeds the query text and returns the top-k most similar chunks.
// Embedder and index failures propagate unchanged.
func (s *Service) Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	snap := s.live.Load()
	if snap == nil {
		return nil, domain.ErrNotReady
	}
	vec, err := snap.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return snap.index.Search(vec, s.topK), nil
}

// Ask answers a question from the indexed evidence: retrieve grounding
// chunks, assemble the persona prompt, generate. Dependency failures
// propagate as the failure of Ask.
func (s *Service) Ask(ctx context.Context, question string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	results, err := s.Retrieve(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := s.generator.Generate(ctx, prompt.Assemble(question, results))
	if err != nil {
		return domain.Answer{}, err
	}

	return domain.Answer{Text: text, Sources: results}, nil
}

// Status reports readiness and index size without mutating anything.
func (s *Service) Status() Status {
	snap := s.live.Load()
	if snap == nil {
		return Status{}
	}
	return Status{Ready: true, Documents: snap.index.Documents(), Chunks: snap.index.Len()}
}
