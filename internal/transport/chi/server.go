// Package chi exposes the question-answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/domain"
	"github.com/coldcase-labs/detective/internal/usecase/pipeline"
)

// excerptLimit bounds the chunk text echoed back in query responses.
const excerptLimit = 200

// QAService answers questions and reports pipeline readiness.
type QAService interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	Status() pipeline.Status
}

// EvidenceReader lists and reads the evidence files on disk.
type EvidenceReader interface {
	List() ([]string, error)
	Read(name string) (string, error)
}

// Reindexer rebuilds the index from the current evidence set.
type Reindexer interface {
	Reindex(ctx context.Context) (pipeline.Status, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the detective API.
type Server struct {
	qa            QAService
	evidence      EvidenceReader
	reindexer     Reindexer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(qa QAService, evidence EvidenceReader, reindexer Reindexer, logger *zap.Logger) *Server {
	s := &Server{
		qa:        qa,
		evidence:  evidence,
		reindexer: reindexer,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"),
		sentinelHandler(domain.ErrNoDocuments, http.StatusBadRequest, "no_documents"),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, "not_ready"),
		sentinelHandler(domain.ErrReindexInProgress, http.StatusConflict, "reindex_in_progress"),
		sentinelHandler(domain.ErrConfigurationMissing, http.StatusServiceUnavailable, "configuration_missing"),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "embedding_unavailable"),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusServiceUnavailable, "generation_unavailable"),
		sentinelHandler(domain.ErrEmbeddingRequestFailed, http.StatusBadGateway, "embedding_failed"),
		sentinelHandler(domain.ErrGenerationRequestFailed, http.StatusBadGateway, "generation_failed"),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, "index_build_failed"),
		sentinelHandler(os.ErrNotExist, http.StatusNotFound, "evidence_not_found"),
	}
	return s
}

// Routes mounts all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/query", s.Query)
	r.Post("/reindex", s.Reindex)
	r.Get("/health", s.Health)
	r.Get("/sources", s.Sources)
	r.Get("/evidence/{filename}", s.Evidence)
	r.Get("/tips", s.Tips)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// --- Request/response shapes ---

type queryRequest struct {
	Question string `json:"question"`
}

type sourceDocument struct {
	Filename string  `json:"filename"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

type queryResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceDocument `json:"sources"`
}

type healthResponse struct {
	Status        string `json:"status"`
	IsReady       bool   `json:"is_ready"`
	EvidenceFiles int    `json:"evidence_files"`
	IndexedChunks int    `json:"indexed_chunks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Handlers ---

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	answer, err := s.qa.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleError(w, err, "query failed")
		return
	}

	resp := queryResponse{Answer: answer.Text, Sources: make([]sourceDocument, len(answer.Sources))}
	for i, src := range answer.Sources {
		resp.Sources[i] = sourceDocument{
			Filename: src.Chunk.Source,
			Content:  excerpt(src.Chunk.Text),
			Score:    src.Score,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reindex handles POST /reindex: a full rebuild from the evidence directory.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	st, err := s.reindexer.Reindex(r.Context())
	if err != nil {
		s.handleError(w, err, "reindex failed")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		IsReady:       st.Ready,
		EvidenceFiles: st.Documents,
		IndexedChunks: st.Chunks,
	})
}

// Health handles GET /health. Read-only; never mutates pipeline state.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	st := s.qa.Status()
	status := "initializing"
	if st.Ready {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        status,
		IsReady:       st.Ready,
		EvidenceFiles: st.Documents,
		IndexedChunks: st.Chunks,
	})
}

// Sources handles GET /sources.
func (s *Server) Sources(w http.ResponseWriter, _ *http.Request) {
	files, err := s.evidence.List()
	if err != nil {
		s.handleError(w, err, "list sources failed")
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

// Evidence handles GET /evidence/{filename}.
func (s *Server) Evidence(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	content, err := s.evidence.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.handleError(w, err, "evidence not found")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filename": name, "content": content})
}

// tip is a suggested investigation query.
type tip struct {
	Text  string `json:"text"`
	Query string `json:"query"`
}

var investigationTips = []tip{
	{Text: "Ask about specific suspects", Query: "Who are the main suspects in this case and what are their motives?"},
	{Text: "Query timeline of events", Query: "What is the complete timeline of events on the night of the crime?"},
	{Text: "Look for connections", Query: "Are there any connections or contradictions between the witness statements?"},
	{Text: "Request evidence summary", Query: "Give me a complete summary of all physical evidence found at the crime scene."},
	{Text: "Check financial motives", Query: "Is there any financial evidence or motive related to this case?"},
	{Text: "Analyze witness credibility", Query: "How credible are the witness statements? Are there any inconsistencies?"},
}

// Tips handles GET /tips.
func (s *Server) Tips(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]tip{"tips": investigationTips})
}

// --- Error mapping ---

func (s *Server) handleError(w http.ResponseWriter, err error, msg string) {
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", msg)
}

// sentinelHandler maps one sentinel error to a status code.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	return text[:excerptLimit] + "..."
}
