package domain

import "time"

// IndexSnapshot is a durable copy of one corpus index: every embedded
// chunk plus the metadata needed to reconstruct search results without
// re-embedding. Snapshots are written after a successful build and can
// seed a fresh index at startup.
type IndexSnapshot struct {
	// Model is the embedding model that produced the vectors.
	// Loading a snapshot built with a different model is rejected.
	Model string

	// Dimensions is the embedding dimensionality.
	Dimensions int

	// Chunks holds all embedded chunks in insertion order.
	// Order matters: search ties break by insertion order.
	Chunks []Chunk

	// Documents is the number of source documents the snapshot was built from.
	Documents int

	// CreatedAt is when the snapshot was written.
	CreatedAt time.Time
}
