package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidChunking indicates an invalid chunk size / overlap
	// combination. This is a configuration error and is rejected before
	// any build work starts.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrCorpusUnavailable indicates the corpus directory itself could
	// not be read or walked. Unlike a per-file read failure, this is
	// fatal to an in-flight build; a previously published index is
	// unaffected.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrNotReady indicates a query was attempted while the pipeline has
	// no queryable index. The wrapped StateError carries the state name.
	ErrNotReady = errors.New("pipeline not ready")

	// ErrBuildInProgress indicates a build was requested while another
	// build is in flight. Concurrent builds are rejected, not queued.
	ErrBuildInProgress = errors.New("build already in progress")

	// ErrRateLimited indicates the embedding backend rejected a request
	// due to rate limiting. The failure is retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding backend failed or
	// is not configured. Fatal to an in-flight build; a previously
	// published index is unaffected.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation backend failed or is
	// not configured. Surfaced to the caller of Answer; no fallback text
	// is ever fabricated.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrUnsupportedType indicates a file extension with no registered reader.
	ErrUnsupportedType = errors.New("unsupported type")
)
