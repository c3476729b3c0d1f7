package ingest

import (
	"context"

	"github.com/coldcase-labs/detective/internal/domain"
	"github.com/coldcase-labs/detective/internal/usecase/pipeline"
)

// DocumentSource supplies the full current document set.
type DocumentSource interface {
	Load() ([]domain.Document, error)
}

// Pipeline is the ingestion surface of the QA pipeline.
type Pipeline interface {
	Initialize(ctx context.Context, docs []domain.Document) error
	Status() pipeline.Status
}
