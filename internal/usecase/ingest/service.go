// Package ingest ties the document source to the pipeline: every
// (re)ingestion loads the full document set and triggers a full rebuild.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/usecase/pipeline"
)

// Service performs full reloads of the evidence corpus.
type Service struct {
	source   DocumentSource
	pipeline Pipeline
	logger   *zap.Logger
}

// New creates an ingest service.
func New(source DocumentSource, p Pipeline, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, pipeline: p, logger: logger}
}

// Reindex loads the current document set and rebuilds the index from
// scratch. Returns the pipeline status after a successful rebuild.
func (s *Service) Reindex(ctx context.Context) (pipeline.Status, error) {
	docs, err := s.source.Load()
	if err != nil {
		return pipeline.Status{}, fmt.Errorf("load documents: %w", err)
	}

	if err := s.pipeline.Initialize(ctx, docs); err != nil {
		return pipeline.Status{}, err
	}

	st := s.pipeline.Status()
	s.logger.Info("Reindex completed",
		zap.Int("documents", st.Documents),
		zap.Int("chunks", st.Chunks),
	)
	return st, nil
}
