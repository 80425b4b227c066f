package types

import "errors"

// Sentinel errors for common error conditions. Callers classify with
// errors.Is; wrap with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrNotFound is returned when a requested record is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrExtraction is returned when text extraction from a document fails
	// (unsupported or corrupt file). The file is skipped, the batch continues.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding is returned when embedding generation fails for a chunk.
	// The chunk is skipped, the document continues.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the store's configured dimension. The write or query is rejected and
	// the store is left unchanged.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConfigConflict is returned when an index is re-created with a
	// dimension or metric incompatible with the existing one. Fatal for the
	// store instance.
	ErrConfigConflict = errors.New("index configuration conflict")

	// ErrBackendUnavailable is returned when the backend cannot be reached
	// or refuses authentication. Fatal at startup; transient mid-run
	// occurrences are retried with bounded backoff before surfacing.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrInvalidArgument is returned for rejected call arguments, e.g.
	// topK <= 0 or an unknown file type filter. No partial work is done.
	ErrInvalidArgument = errors.New("invalid argument")
)
