package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates the uploaded file type cannot be extracted
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Pipeline errors. Each one is surfaced to callers as a distinct kind.
var (
	// ErrEmbeddingFailure indicates the embedder could not produce vectors
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrIndexBuildFailure indicates an index could not be built or persisted
	ErrIndexBuildFailure = errors.New("index build failed")

	// ErrIndexBuildInProgress indicates another build holds the document's lock
	ErrIndexBuildInProgress = errors.New("index build already in progress")

	// ErrIndexNotFound indicates no persisted index exists at the location
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates persisted index content is unreadable
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrEmbedderMismatch indicates the index was built with another embedding model
	ErrEmbedderMismatch = errors.New("embedder does not match index")

	// ErrDocumentNotIndexed indicates the registry has no index location for the document
	ErrDocumentNotIndexed = errors.New("document not indexed")

	// ErrGenerationFailure indicates the language model failed or timed out
	ErrGenerationFailure = errors.New("answer generation failed")
)

// UserMessage returns an actionable message for the error kind of err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDocumentNotIndexed):
		return "document has not been indexed yet; upload or re-index it first"
	case errors.Is(err, ErrIndexBuildInProgress):
		return "document is being indexed; try again shortly"
	case errors.Is(err, ErrEmbedderMismatch):
		return "document was indexed with a different embedding model; re-index it"
	case errors.Is(err, ErrIndexNotFound):
		return "document index is missing from storage; re-index it"
	case errors.Is(err, ErrIndexCorrupt):
		return "document index is damaged; re-index it"
	case errors.Is(err, ErrEmbeddingFailure):
		return "embedding service failed; check that it is running"
	case errors.Is(err, ErrIndexBuildFailure):
		return "document could not be indexed; check that it contains extractable text"
	case errors.Is(err, ErrGenerationFailure):
		return "language model failed to answer; try again"
	case errors.Is(err, ErrUnsupportedType):
		return "only PDF and plain text documents are supported"
	case errors.Is(err, ErrNotFound):
		return "document not found"
	case errors.Is(err, ErrAlreadyExists):
		return "a document with that name already exists"
	case errors.Is(err, ErrServiceUnavailable):
		return "AI service is unavailable; check its configuration"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return "internal error"
	}
}
