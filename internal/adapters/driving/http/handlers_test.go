package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// Mock services for testing

type mockDocumentService struct {
	uploadFn  func(ctx context.Context, req driving.UploadRequest) (*domain.Document, error)
	reindexFn func(ctx context.Context, documentID string) (*domain.IndexLocation, error)
	getFn     func(ctx context.Context, id string) (*domain.Document, error)
	listFn    func(ctx context.Context) ([]*domain.Document, error)
}

func (m *mockDocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Ingest(ctx context.Context, documentID string, pages []domain.PageText) (*domain.IndexLocation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Reindex(ctx context.Context, documentID string) (*domain.IndexLocation, error) {
	if m.reindexFn != nil {
		return m.reindexFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockAskService struct {
	askFn    func(ctx context.Context, req driving.AskRequest) (*domain.Answer, error)
	forgetFn func(ctx context.Context, sessionID, documentID string) error
}

func (m *mockAskService) Ask(ctx context.Context, req driving.AskRequest) (*domain.Answer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAskService) Forget(ctx context.Context, sessionID, documentID string) error {
	if m.forgetFn != nil {
		return m.forgetFn(ctx, sessionID, documentID)
	}
	return nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func newTestServer(docs *mockDocumentService, ask *mockAskService) *Server {
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	return NewServer(cfg, Dependencies{Documents: docs, Ask: ask})
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func multipartUpload(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename)}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&mockDocumentService{}, &mockAskService{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var resp StatusResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(&mockDocumentService{}, &mockAskService{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestHandleReady(t *testing.T) {
	rc := domain.NewRuntimeConfig("sqlite", "memory", "filesystem")
	rc.SetEmbeddingAvailable(true)

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantCheck  string
	}{
		{
			name:       "all healthy",
			checks:     map[string]Pinger{"database": &mockPinger{}},
			wantStatus: http.StatusOK,
			wantCheck:  "ok",
		},
		{
			name:       "database down",
			checks:     map[string]Pinger{"database": &mockPinger{err: errors.New("connection refused")}},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(DefaultConfig(), Dependencies{
				Documents:     &mockDocumentService{},
				Ask:           &mockAskService{},
				RuntimeConfig: rc,
				Checks:        tt.checks,
			})

			rr := serve(s, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}

			var resp ReadyResponse
			_ = json.NewDecoder(rr.Body).Decode(&resp)
			if resp.Checks["database"] != tt.wantCheck {
				t.Errorf("expected database check %q, got %q", tt.wantCheck, resp.Checks["database"])
			}
			if !resp.CanIngest || resp.CanAnswer {
				t.Errorf("expected ingest only, got ingest=%v answer=%v", resp.CanIngest, resp.CanAnswer)
			}
		})
	}
}

// Document endpoints

func TestHandleUploadDocument_Success(t *testing.T) {
	var got driving.UploadRequest
	docs := &mockDocumentService{
		uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
			got = req
			return &domain.Document{ID: "doc-1", Filename: "1_report.pdf", OriginalName: req.Filename, IndexLocation: "doc_doc-1"}, nil
		},
	}
	s := newTestServer(docs, &mockAskService{})

	rr := serve(s, multipartUpload(t, "file", "report.pdf", "application/pdf", []byte("%PDF-1.4 body")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if got.Filename != "report.pdf" || got.MimeType != "application/pdf" || string(got.Content) != "%PDF-1.4 body" {
		t.Errorf("unexpected upload request: %+v", got)
	}

	var resp UploadResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.DocumentID != "doc-1" || resp.Filename != "1_report.pdf" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Document == nil || !resp.Document.IsIndexed() {
		t.Error("expected indexed document in response")
	}
}

func TestHandleUploadDocument_LegacyPath(t *testing.T) {
	docs := &mockDocumentService{
		uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
			return &domain.Document{ID: "doc-1"}, nil
		},
	}
	s := newTestServer(docs, &mockAskService{})

	req := multipartUpload(t, "file", "report.pdf", "application/pdf", []byte("x"))
	req.URL.Path = "/upload/"
	rr := serve(s, req)
	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
}

func TestHandleUploadDocument_MissingFile(t *testing.T) {
	s := newTestServer(&mockDocumentService{}, &mockAskService{})

	rr := serve(s, multipartUpload(t, "attachment", "report.pdf", "application/pdf", []byte("x")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr = serve(s, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for non-multipart body, got %d", rr.Code)
	}
}

func TestHandleUploadDocument_TooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUploadBytes = 1024
	s := NewServer(cfg, Dependencies{Documents: &mockDocumentService{}, Ask: &mockAskService{}})

	rr := serve(s, multipartUpload(t, "file", "big.pdf", "application/pdf", bytes.Repeat([]byte("x"), 4096)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleUploadDocument_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unsupported type", fmt.Errorf("%w: \"a.docx\"", domain.ErrUnsupportedType), http.StatusUnsupportedMediaType},
		{"empty text", fmt.Errorf("%w: no passages", domain.ErrIndexBuildFailure), http.StatusUnprocessableEntity},
		{"embedder down", fmt.Errorf("%w: %w: connection refused", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure), http.StatusUnprocessableEntity},
		{"duplicate", domain.ErrAlreadyExists, http.StatusConflict},
		{"storage", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocumentService{
				uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(docs, &mockAskService{})

			rr := serve(s, multipartUpload(t, "file", "report.pdf", "application/pdf", []byte("x")))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if msg := decodeError(t, rr); msg != domain.UserMessage(tt.err) {
				t.Errorf("expected message %q, got %q", domain.UserMessage(tt.err), msg)
			}
		})
	}
}

func TestHandleListDocuments(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	docs := &mockDocumentService{
		listFn: func(ctx context.Context) ([]*domain.Document, error) {
			return []*domain.Document{
				{ID: "d2", OriginalName: "b.pdf", UploadedAt: uploaded, IndexLocation: "doc_d2"},
				{ID: "d1", OriginalName: "a.pdf", UploadedAt: uploaded.Add(-time.Hour)},
			}, nil
		},
	}
	s := newTestServer(docs, &mockAskService{})

	for _, path := range []string{"/api/v1/documents", "/documents"} {
		rr := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rr.Code)
		}

		var resp []DocumentSummary
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if len(resp) != 2 {
			t.Fatalf("%s: expected 2 documents, got %d", path, len(resp))
		}
		if resp[0].ID != "d2" || resp[0].Filename != "b.pdf" || !resp[0].Indexed || !resp[0].UploadDate.Equal(uploaded) {
			t.Errorf("%s: unexpected first entry %+v", path, resp[0])
		}
		if resp[1].Indexed {
			t.Errorf("%s: expected second document unindexed", path)
		}
	}
}

func TestHandleListDocuments_Empty(t *testing.T) {
	s := newTestServer(&mockDocumentService{}, &mockAskService{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestHandleGetDocument(t *testing.T) {
	docs := &mockDocumentService{
		getFn: func(ctx context.Context, id string) (*domain.Document, error) {
			if id != "d1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Document{ID: "d1", OriginalName: "a.pdf"}, nil
		},
	}
	s := newTestServer(docs, &mockAskService{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "document not found" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestHandleReindexDocument(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"in progress", domain.ErrIndexBuildInProgress, http.StatusConflict},
		{"stored file gone", fmt.Errorf("%w: stored file", domain.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocumentService{
				reindexFn: func(ctx context.Context, documentID string) (*domain.IndexLocation, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.IndexLocation{DocumentID: documentID, Key: "doc_" + documentID}, nil
				},
			}
			s := newTestServer(docs, &mockAskService{})

			rr := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/documents/d1/index", nil))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.err == nil {
				var loc domain.IndexLocation
				_ = json.NewDecoder(rr.Body).Decode(&loc)
				if loc.Key != "doc_d1" {
					t.Errorf("expected key doc_d1, got %q", loc.Key)
				}
			}
		})
	}
}

// Question endpoints

func TestHandleAsk_Success(t *testing.T) {
	var got driving.AskRequest
	ask := &mockAskService{
		askFn: func(ctx context.Context, req driving.AskRequest) (*domain.Answer, error) {
			got = req
			return &domain.Answer{
				Text:      "Liquid hydrogen.",
				Sources:   []domain.Source{{Page: 1, Preview: "engines burn...", Score: 0.8}},
				SessionID: "s1",
			}, nil
		},
	}
	s := newTestServer(&mockDocumentService{}, ask)

	body := `{"document_id":"d1","question":"What fuel?","session_id":"s1"}`
	rr := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if got.DocumentID != "d1" || got.Question != "What fuel?" || got.SessionID != "s1" {
		t.Errorf("unexpected ask request: %+v", got)
	}

	var resp map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp["answer"] != "Liquid hydrogen." || resp["session_id"] != "s1" {
		t.Errorf("unexpected response: %v", resp)
	}
	sources, _ := resp["sources"].([]any)
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %v", resp["sources"])
	}
	src := sources[0].(map[string]any)
	if src["page"] != float64(1) || src["content"] != "engines burn..." {
		t.Errorf("unexpected source: %v", src)
	}
}

func TestHandleAsk_InvalidBody(t *testing.T) {
	s := newTestServer(&mockDocumentService{}, &mockAskService{})

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("not json")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleAsk_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid", fmt.Errorf("%w: question is empty", domain.ErrInvalidInput), http.StatusBadRequest},
		{"not indexed", domain.ErrDocumentNotIndexed, http.StatusNotFound},
		{"index missing", fmt.Errorf("%w: doc_d1", domain.ErrIndexNotFound), http.StatusNotFound},
		{"build in progress", domain.ErrIndexBuildInProgress, http.StatusConflict},
		{"embedder mismatch", domain.ErrEmbedderMismatch, http.StatusConflict},
		{"embedding failed", domain.ErrEmbeddingFailure, http.StatusUnprocessableEntity},
		{"corrupt", fmt.Errorf("load index: %w", domain.ErrIndexCorrupt), http.StatusInternalServerError},
		{"llm failed", fmt.Errorf("%w: 500 from provider", domain.ErrGenerationFailure), http.StatusBadGateway},
		{"llm timeout", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ask := &mockAskService{
				askFn: func(ctx context.Context, req driving.AskRequest) (*domain.Answer, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(&mockDocumentService{}, ask)

			rr := serve(s, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"document_id":"d1","question":"q"}`)))
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if msg := decodeError(t, rr); msg != domain.UserMessage(tt.err) {
				t.Errorf("expected message %q, got %q", domain.UserMessage(tt.err), msg)
			}
		})
	}
}

func TestHandleForgetSession(t *testing.T) {
	var gotSession, gotDoc string
	ask := &mockAskService{
		forgetFn: func(ctx context.Context, sessionID, documentID string) error {
			gotSession, gotDoc = sessionID, documentID
			return nil
		},
	}
	s := newTestServer(&mockDocumentService{}, ask)

	rr := serve(s, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1/documents/d1", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if gotSession != "s1" || gotDoc != "d1" {
		t.Errorf("expected s1/d1, got %s/%s", gotSession, gotDoc)
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(fmt.Errorf("%w: %w", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure)); got != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", got)
	}
	if got := statusFor(domain.ErrServiceUnavailable); got != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", got)
	}
}
