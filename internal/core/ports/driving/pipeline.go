package driving

import (
	"context"
	"time"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

// Pipeline is the RAG pipeline orchestrator as seen by driving adapters.
//
// Build and Answer are synchronous. Concurrent Answer calls against a ready
// index are safe and independent; at most one Build runs at a time and a
// concurrent second call is rejected with domain.ErrBuildInProgress.
type Pipeline interface {
	// Build (re)constructs the index: load -> chunk -> embed -> index.
	// A previously published index keeps serving queries until the new one
	// is swapped in; a failed build never discards a working index.
	Build(ctx context.Context) error

	// Answer retrieves context for the question and synthesizes a grounded
	// answer. Valid only when a built index is being served; otherwise it
	// fails with a domain.StateError wrapping domain.ErrNotReady.
	Answer(ctx context.Context, question string) (*domain.Answer, error)

	// Retrieve returns the top-k chunks for a question without invoking
	// the generation backend. Pure: no side effects, no caching.
	Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error)

	// Restore seeds the pipeline from a persisted index snapshot,
	// skipping load/chunk/embed. Fails with domain.ErrNotFound when no
	// snapshot exists.
	Restore(ctx context.Context) error

	// Status reports the current pipeline state.
	Status() Status
}

// Status is a point-in-time snapshot of the pipeline.
type Status struct {
	// State is the pipeline lifecycle state.
	State domain.PipelineState

	// Ready reports whether an index is currently being served.
	// During a rebuild this stays true while the previous index serves.
	Ready bool

	// Documents is the number of source documents in the served index.
	Documents int

	// Chunks is the number of chunks in the served index.
	Chunks int

	// EmbeddingModel is the model that produced the served vectors.
	EmbeddingModel string

	// BuiltAt is when the served index was published.
	BuiltAt time.Time

	// LastError describes the most recent build failure, if any.
	LastError string
}
