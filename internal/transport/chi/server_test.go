package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/domain"
	"github.com/coldcase-labs/detective/internal/usecase/pipeline"
)

type mockQA struct {
	answer domain.Answer
	err    error
	status pipeline.Status
}

func (m *mockQA) Ask(_ context.Context, _ string) (domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockQA) Status() pipeline.Status { return m.status }

type mockEvidence struct {
	files   []string
	listErr error
	content map[string]string
	readErr error
}

func (m *mockEvidence) List() ([]string, error) { return m.files, m.listErr }

func (m *mockEvidence) Read(name string) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	content, ok := m.content[name]
	if !ok {
		return "", os.ErrNotExist
	}
	return content, nil
}

type mockReindexer struct {
	status pipeline.Status
	err    error
}

func (m *mockReindexer) Reindex(_ context.Context) (pipeline.Status, error) {
	return m.status, m.err
}

func newTestRouter(qa QAService, ev EvidenceReader, ri Reindexer) http.Handler {
	srv := NewServer(qa, ev, ri, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuerySuccess(t *testing.T) {
	qa := &mockQA{
		answer: domain.Answer{
			Text: "The butler did it.",
			Sources: []domain.ScoredChunk{
				{Chunk: domain.Chunk{Source: "case_file.txt", Text: "The butler was seen near the study."}, Score: 0.91},
			},
		},
	}
	h := newTestRouter(qa, &mockEvidence{}, &mockReindexer{})

	rec := doRequest(t, h, http.MethodPost, "/query", `{"question":"Who did it?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "The butler did it." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(resp.Sources))
	}
	if resp.Sources[0].Filename != "case_file.txt" {
		t.Errorf("source filename = %q", resp.Sources[0].Filename)
	}
	if resp.Sources[0].Score != 0.91 {
		t.Errorf("source score = %v", resp.Sources[0].Score)
	}
}

func TestQueryExcerptTruncated(t *testing.T) {
	long := strings.Repeat("x", excerptLimit+50)
	qa := &mockQA{
		answer: domain.Answer{
			Text:    "answer",
			Sources: []domain.ScoredChunk{{Chunk: domain.Chunk{Source: "a.txt", Text: long}, Score: 0.5}},
		},
	}
	h := newTestRouter(qa, &mockEvidence{}, &mockReindexer{})

	rec := doRequest(t, h, http.MethodPost, "/query", `{"question":"q"}`)
	var resp queryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	got := resp.Sources[0].Content
	if len(got) != excerptLimit+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt length = %d, suffix %q", len(got), got[len(got)-3:])
	}
}

func TestQueryErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty question", domain.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"},
		{"not ready", domain.ErrNotReady, http.StatusServiceUnavailable, "not_ready"},
		{"generation failed", domain.ErrGenerationRequestFailed, http.StatusBadGateway, "generation_failed"},
		{"embedding failed", domain.ErrEmbeddingRequestFailed, http.StatusBadGateway, "embedding_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockQA{err: tt.err}, &mockEvidence{}, &mockReindexer{})
			rec := doRequest(t, h, http.MethodPost, "/query", `{"question":"q"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestQueryInvalidBody(t *testing.T) {
	h := newTestRouter(&mockQA{}, &mockEvidence{}, &mockReindexer{})
	rec := doRequest(t, h, http.MethodPost, "/query", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	qa := &mockQA{status: pipeline.Status{Ready: true, Documents: 4, Chunks: 17}}
	h := newTestRouter(qa, &mockEvidence{}, &mockReindexer{})

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" || !resp.IsReady {
		t.Errorf("status = %q, ready = %v", resp.Status, resp.IsReady)
	}
	if resp.EvidenceFiles != 4 || resp.IndexedChunks != 17 {
		t.Errorf("counts = %d/%d, want 4/17", resp.EvidenceFiles, resp.IndexedChunks)
	}
}

func TestHealthNotReady(t *testing.T) {
	h := newTestRouter(&mockQA{status: pipeline.Status{}}, &mockEvidence{}, &mockReindexer{})
	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "initializing" || resp.IsReady {
		t.Errorf("status = %q, ready = %v", resp.Status, resp.IsReady)
	}
}

func TestSources(t *testing.T) {
	ev := &mockEvidence{files: []string{"case_file.txt", "witness.txt"}}
	h := newTestRouter(&mockQA{}, ev, &mockReindexer{})

	rec := doRequest(t, h, http.MethodGet, "/sources", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["files"]) != 2 || resp["files"][0] != "case_file.txt" {
		t.Errorf("files = %v", resp["files"])
	}
}

func TestSourcesEmpty(t *testing.T) {
	h := newTestRouter(&mockQA{}, &mockEvidence{}, &mockReindexer{})
	rec := doRequest(t, h, http.MethodGet, "/sources", "")
	if !strings.Contains(rec.Body.String(), `"files":[]`) {
		t.Errorf("empty sources should serialize as [], got %s", rec.Body.String())
	}
}

func TestEvidenceFound(t *testing.T) {
	ev := &mockEvidence{content: map[string]string{"case_file.txt": "The body was found at dawn."}}
	h := newTestRouter(&mockQA{}, ev, &mockReindexer{})

	rec := doRequest(t, h, http.MethodGet, "/evidence/case_file.txt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["filename"] != "case_file.txt" || resp["content"] != "The body was found at dawn." {
		t.Errorf("resp = %v", resp)
	}
}

func TestEvidenceNotFound(t *testing.T) {
	h := newTestRouter(&mockQA{}, &mockEvidence{}, &mockReindexer{})
	rec := doRequest(t, h, http.MethodGet, "/evidence/missing.txt", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEvidenceInvalidName(t *testing.T) {
	ev := &mockEvidence{readErr: errInvalidName}
	h := newTestRouter(&mockQA{}, ev, &mockReindexer{})
	rec := doRequest(t, h, http.MethodGet, "/evidence/nope.pdf", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

var errInvalidName = errors.New("only .txt evidence files can be read")

func TestReindexSuccess(t *testing.T) {
	ri := &mockReindexer{status: pipeline.Status{Ready: true, Documents: 2, Chunks: 9}}
	h := newTestRouter(&mockQA{}, &mockEvidence{}, ri)

	rec := doRequest(t, h, http.MethodPost, "/reindex", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.IsReady || resp.EvidenceFiles != 2 || resp.IndexedChunks != 9 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReindexConflict(t *testing.T) {
	ri := &mockReindexer{err: domain.ErrReindexInProgress}
	h := newTestRouter(&mockQA{}, &mockEvidence{}, ri)

	rec := doRequest(t, h, http.MethodPost, "/reindex", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestReindexNoDocuments(t *testing.T) {
	ri := &mockReindexer{err: domain.ErrNoDocuments}
	h := newTestRouter(&mockQA{}, &mockEvidence{}, ri)

	rec := doRequest(t, h, http.MethodPost, "/reindex", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTips(t *testing.T) {
	h := newTestRouter(&mockQA{}, &mockEvidence{}, &mockReindexer{})
	rec := doRequest(t, h, http.MethodGet, "/tips", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string][]tip
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["tips"]) != len(investigationTips) {
		t.Errorf("tips = %d, want %d", len(resp["tips"]), len(investigationTips))
	}
}
