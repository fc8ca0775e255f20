package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrAlreadyExists", ErrAlreadyExists, "already exists"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrEmbeddingFailure", ErrEmbeddingFailure, "embedding failed"},
		{"ErrIndexBuildFailure", ErrIndexBuildFailure, "index build failed"},
		{"ErrIndexNotFound", ErrIndexNotFound, "index not found"},
		{"ErrIndexCorrupt", ErrIndexCorrupt, "index corrupt"},
		{"ErrDocumentNotIndexed", ErrDocumentNotIndexed, "document not indexed"},
		{"ErrGenerationFailure", ErrGenerationFailure, "answer generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrUnsupportedType,
		ErrInvalidProvider,
		ErrServiceUnavailable,
		ErrEmbeddingFailure,
		ErrIndexBuildFailure,
		ErrIndexBuildInProgress,
		ErrIndexNotFound,
		ErrIndexCorrupt,
		ErrEmbedderMismatch,
		ErrDocumentNotIndexed,
		ErrGenerationFailure,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestErrorsIs_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: %w: passage 3", ErrIndexBuildFailure, ErrEmbeddingFailure)

	if !errors.Is(err, ErrIndexBuildFailure) {
		t.Error("expected wrapped error to match ErrIndexBuildFailure")
	}
	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Error("expected wrapped error to match ErrEmbeddingFailure")
	}
	if errors.Is(err, ErrIndexCorrupt) {
		t.Error("wrapped error should not match ErrIndexCorrupt")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("lookup: %w", ErrDocumentNotIndexed), "document has not been indexed yet; upload or re-index it first"},
		{ErrIndexCorrupt, "document index is damaged; re-index it"},
		{fmt.Errorf("%w: %w", ErrIndexBuildFailure, ErrEmbeddingFailure), "embedding service failed; check that it is running"},
		{ErrIndexBuildFailure, "document could not be indexed; check that it contains extractable text"},
		{ErrGenerationFailure, "language model failed to answer; try again"},
		{ErrAlreadyExists, "a document with that name already exists"},
		{errors.New("boom"), "internal error"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
