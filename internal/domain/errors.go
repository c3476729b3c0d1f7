package domain

import "errors"

var (
	// ErrNoDocuments signals an empty document set passed to ingestion.
	ErrNoDocuments = errors.New("no documents to ingest")
	// ErrEmptyQuestion signals a blank or whitespace-only question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNotReady signals that no successful ingestion has happened yet.
	ErrNotReady = errors.New("pipeline is not ready")
	// ErrReindexInProgress signals a rebuild rejected because one is in flight.
	ErrReindexInProgress = errors.New("reindex already in progress")
	// ErrConfigurationMissing signals that a required backend is not configured.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrDimensionMismatch signals inconsistent chunk/vector data at index build.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable signals a missing embedding credential or endpoint.
	ErrEmbeddingUnavailable = errors.New("embedding provider not configured")
	// ErrEmbeddingRequestFailed signals an embedding transport or provider failure.
	ErrEmbeddingRequestFailed = errors.New("embedding request failed")
	// ErrGenerationUnavailable signals a missing generation credential or model.
	ErrGenerationUnavailable = errors.New("generation backend not configured")
	// ErrGenerationRequestFailed signals a generation transport or provider failure.
	ErrGenerationRequestFailed = errors.New("generation request failed")
)
