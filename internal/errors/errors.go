package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a bookmark-lens error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"      // 502
	ErrEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"  // 502
	ErrEnrichmentFailed ErrorCode = "ENRICHMENT_FAILED" // 502 (reported as a warning, never returned by save)
	ErrStoreConsistency ErrorCode = "STORE_CONSISTENCY" // 500 (partial write, compensated)
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// LensError represents a structured error with code, status, and details.
type LensError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. It is never serialized.
	Cause error
}

// Error implements the error interface.
func (e *LensError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LensError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *LensError {
	return &LensError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a bookmark cannot be found.
func NewNotFound(id string) *LensError {
	return &LensError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("bookmark not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFetchFailed creates a 502 error for content fetch failures.
// Nothing has been written when this is returned.
func NewFetchFailed(url string, cause error) *LensError {
	e := &LensError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: fmt.Sprintf("failed to fetch %s: %s", url, causeText(cause)),
		Details: map[string]any{"url": url},
		Cause:   cause,
	}
	markTimeout(e, cause)
	return e
}

// NewEmbeddingFailed creates a 502 error for embedding failures.
func NewEmbeddingFailed(cause error) *LensError {
	e := &LensError{
		Code:    ErrEmbeddingFailed,
		Status:  502,
		Message: fmt.Sprintf("failed to compute embedding: %s", causeText(cause)),
		Cause:   cause,
	}
	markTimeout(e, cause)
	return e
}

// NewEnrichmentFailed creates an enrichment error. Callers report it, they do not abort on it.
func NewEnrichmentFailed(cause error) *LensError {
	e := &LensError{
		Code:    ErrEnrichmentFailed,
		Status:  502,
		Message: fmt.Sprintf("enrichment failed: %s", causeText(cause)),
		Cause:   cause,
	}
	markTimeout(e, cause)
	return e
}

// NewStoreConsistency creates a 500 error for a dual-store write that failed part way.
// rolledBack reports whether every compensating action succeeded.
func NewStoreConsistency(id, step string, rolledBack bool, cause error) *LensError {
	return &LensError{
		Code:    ErrStoreConsistency,
		Status:  500,
		Message: fmt.Sprintf("store write %q failed for bookmark %s: %s", step, id, causeText(cause)),
		Details: map[string]any{
			"id":          id,
			"failed_step": step,
			"rolled_back": rolledBack,
		},
		Cause: cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *LensError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &LensError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is (or wraps) a LensError with the given code.
func Is(err error, code ErrorCode) bool {
	var lErr *LensError
	if stderrors.As(err, &lErr) {
		return lErr.Code == code
	}
	return false
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded)
}

func markTimeout(e *LensError, cause error) {
	if IsTimeout(cause) {
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		e.Details["timeout"] = true
	}
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
