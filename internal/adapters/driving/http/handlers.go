package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"document has not been indexed yet; upload or re-index it first"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports backend and AI availability
// @Description Readiness status
type ReadyResponse struct {
	Status    string            `json:"status" example:"ready"`
	Checks    map[string]string `json:"checks"`
	CanIngest bool              `json:"can_ingest"`
	CanAnswer bool              `json:"can_answer"`
}

// UploadResponse is returned after a document is uploaded and indexed
// @Description Upload result
type UploadResponse struct {
	Message    string           `json:"message" example:"File uploaded successfully"`
	DocumentID string           `json:"document_id"`
	Filename   string           `json:"filename"`
	Document   *domain.Document `json:"document"`
}

// DocumentSummary is one entry of the document listing
// @Description Document listing entry
type DocumentSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	Indexed    bool      `json:"indexed"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings every backend and reports AI service availability
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if s.runtimeConfig != nil {
		resp.CanIngest = s.runtimeConfig.CanIngest()
		resp.CanAnswer = s.runtimeConfig.CanAnswer()
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Document endpoints

// handleUploadDocument godoc
// @Summary      Upload a document
// @Description  Stores a PDF, extracts its text and builds its index
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF document"
// @Success      201   {object}  UploadResponse
// @Failure      400   {object}  ErrorResponse  "Missing or empty file"
// @Failure      413   {object}  ErrorResponse  "File too large"
// @Failure      415   {object}  ErrorResponse  "Unsupported file type"
// @Failure      422   {object}  ErrorResponse  "Indexing failed"
// @Router       /documents [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := s.docService.Upload(r.Context(), driving.UploadRequest{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  content,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:    "File uploaded successfully",
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Document:   doc,
	})
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  Returns all uploaded documents, newest first
// @Tags         Documents
// @Produce      json
// @Success      200  {array}   DocumentSummary
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			ID:         d.ID,
			Filename:   d.OriginalName,
			UploadDate: d.UploadedAt,
			Indexed:    d.IsIndexed(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Returns a document record
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleReindexDocument godoc
// @Summary      Rebuild a document index
// @Description  Re-extracts the stored file and rebuilds its index
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.IndexLocation
// @Failure      404  {object}  ErrorResponse  "Document or stored file not found"
// @Failure      409  {object}  ErrorResponse  "Build already in progress"
// @Failure      422  {object}  ErrorResponse  "Indexing failed"
// @Router       /documents/{id}/index [post]
func (s *Server) handleReindexDocument(w http.ResponseWriter, r *http.Request) {
	loc, err := s.docService.Reindex(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// Question endpoints

// handleAsk godoc
// @Summary      Ask a question
// @Description  Answers a question about a document within a conversation session
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      driving.AskRequest  true  "Question"
// @Success      200      {object}  domain.Answer
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      404      {object}  ErrorResponse  "Document not indexed"
// @Failure      502      {object}  ErrorResponse  "Language model failed"
// @Failure      504      {object}  ErrorResponse  "Language model timed out"
// @Router       /ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req driving.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.askService.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleForgetSession godoc
// @Summary      Forget a conversation
// @Description  Drops the session's conversation about a document
// @Tags         Questions
// @Param        session_id  path  string  true  "Session ID"
// @Param        id          path  string  true  "Document ID"
// @Success      204
// @Router       /sessions/{session_id}/documents/{id} [delete]
func (s *Server) handleForgetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.askService.Forget(r.Context(), r.PathValue("session_id"), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

// statusFor maps a service error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentNotIndexed),
		errors.Is(err, domain.ErrIndexNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIndexBuildInProgress),
		errors.Is(err, domain.ErrEmbedderMismatch),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrEmbeddingFailure),
		errors.Is(err, domain.ErrIndexBuildFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGenerationFailure):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	writeError(w, status, domain.UserMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
