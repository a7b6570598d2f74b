package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

// DocumentLoader streams documents from a storage collaborator.
// The core only ever reads from the source; it never writes to it.
//
// Load returns two channels. The document channel carries one Document per
// plain-text file or per PDF page, and is closed when the walk finishes.
// The error channel carries per-file failures: a single unreadable or
// corrupt file must not abort the rest of the corpus, so callers log these
// and keep consuming. A failure of the source itself (the directory is
// missing or unreadable) is reported as an error wrapping
// domain.ErrCorpusUnavailable; callers must treat that as fatal rather
// than a skip. Load is restartable - invoking it again over an unchanged
// directory yields the same document set.
//
// A directory with zero matching files produces an immediately closed
// document channel, not an error.
type DocumentLoader interface {
	Load(ctx context.Context) (<-chan domain.Document, <-chan error)
}

// FileReader extracts documents from files of specific extensions.
// Paginated formats return one Document per page with PageNumber set;
// flat formats return a single Document with PageNumber nil.
type FileReader interface {
	// Extensions returns the file extensions this reader handles,
	// lower-case with leading dot (".txt", ".pdf").
	Extensions() []string

	// Read extracts all documents from the file at path.
	Read(ctx context.Context, path string) ([]domain.Document, error)
}
