// Package plaintext reads flat text files as single documents.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.FileReader = (*Reader)(nil)

// Reader handles plain text formats. One file produces one Document
// with no page number.
type Reader struct{}

// New creates a plain text reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".txt", ".md", ".text", ".markdown"}
}

// Read loads the whole file as one document.
func (r *Reader) Read(_ context.Context, path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return []domain.Document{{
		ID:         uuid.New().String(),
		Text:       string(data),
		SourcePath: path,
		LoadedAt:   time.Now(),
	}}, nil
}
