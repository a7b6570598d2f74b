package domain

import (
	"path/filepath"
	"strconv"
	"time"
)

// Document is the full text extracted from one source file.
// Paginated formats (PDF) produce one Document per page.
// Documents are immutable and live only during index construction.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Text is the complete extracted text before chunking.
	Text string

	// SourcePath is the path of the originating file.
	SourcePath string

	// PageNumber is the 1-based page for paginated sources, nil otherwise.
	PageNumber *int

	// LoadedAt is when the document was read from disk.
	LoadedAt time.Time
}

// Title returns a short human-readable label for the document,
// derived from the source filename and page number.
func (d Document) Title() string {
	name := filepath.Base(d.SourcePath)
	if d.PageNumber == nil {
		return name
	}
	return name + " p." + strconv.Itoa(*d.PageNumber)
}

// Chunk is a bounded window of a document's text, the unit of retrieval.
// A chunk inherits its parent document's source metadata and carries the
// embedding vector computed at index-build time. Chunks are never mutated
// after the index containing them is published.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Text is the chunk's text content.
	Text string

	// SourcePath is inherited from the parent document.
	SourcePath string

	// PageNumber is inherited from the parent document.
	PageNumber *int

	// ChunkIndex is the 0-based ordinal of this chunk within its document.
	ChunkIndex int

	// Embedding is the dense vector representation, populated at build time.
	Embedding []float32
}

// SourceLabel returns the chunk's provenance for answer citations,
// e.g. "manual.pdf, page 4" or "notes.txt".
func (c Chunk) SourceLabel() string {
	name := filepath.Base(c.SourcePath)
	if c.PageNumber == nil {
		return name
	}
	return name + ", page " + strconv.Itoa(*c.PageNumber)
}
