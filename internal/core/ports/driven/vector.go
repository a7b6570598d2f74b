package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

// VectorIndex answers k-nearest-neighbour queries over one corpus snapshot.
//
// An index is built in bulk from a complete embedded chunk set and is
// immutable afterwards: there is no insert or delete. The orchestrator
// replaces the whole index on rebuild, so implementations need no internal
// locking for searches against a published index.
//
// Search returns at most k hits sorted by descending score, ties broken by
// insertion order (stable). k larger than the index is clamped; an empty
// index returns an empty slice for any k, never an error. The score is the
// same similarity measure used internally for ranking (cosine).
type VectorIndex interface {
	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedChunk, error)

	// Size returns the number of chunks in the index.
	Size() int

	// Dimensions returns the vector dimensionality the index was built with,
	// or 0 for an empty index.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// SnapshotStore persists index snapshots to durable storage.
// A snapshot loaded back must reconstruct search results bit-for-bit
// equivalent to the index it was saved from: same chunks, same vectors,
// same insertion order.
type SnapshotStore interface {
	// Save atomically replaces the stored snapshot.
	Save(ctx context.Context, snap domain.IndexSnapshot) error

	// Load returns the stored snapshot, or domain.ErrNotFound when none
	// has been saved.
	Load(ctx context.Context) (*domain.IndexSnapshot, error)

	// Delete removes the stored snapshot. Deleting when nothing is
	// stored is not an error.
	Delete(ctx context.Context) error

	// Close releases resources.
	Close() error
}
