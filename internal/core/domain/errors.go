package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// Stores return it when the idempotency key of a document is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates vectors of the wrong size for the configured index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUngroundedAnswer indicates an answer with substantive text and no citations.
	ErrUngroundedAnswer = errors.New("answer has no citations")

	// ErrRateLimited indicates the request rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// IsValidation reports whether err was caused by caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsContractViolation reports whether err indicates an internal bug
// that must not be retried or swallowed.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrUngroundedAnswer) || errors.Is(err, ErrDimensionMismatch)
}
