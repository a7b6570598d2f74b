// Package pdf extracts text from PDF files using the pdftotext tool
// from poppler-utils. One file produces one Document per page, with
// 1-based page numbers, so answers can cite exact pages.
package pdf

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.FileReader = (*Reader)(nil)

// CommandRunner executes an external command and returns its stdout.
// Abstracted so tests can stub the pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Reader converts PDFs to per-page documents via pdftotext.
type Reader struct {
	runner CommandRunner
}

// New creates a PDF reader backed by the pdftotext binary.
func New() *Reader {
	return &Reader{runner: execRunner{}}
}

// NewWithRunner creates a PDF reader with a custom command runner.
func NewWithRunner(runner CommandRunner) *Reader {
	return &Reader{runner: runner}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".pdf"}
}

// Read extracts one document per page. pdftotext separates pages with
// form feed characters; trailing blank pages are dropped.
func (r *Reader) Read(ctx context.Context, path string) ([]domain.Document, error) {
	out, err := r.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (%s)", err, InstallInstructions())
	}

	pages := strings.Split(string(out), "\f")
	now := time.Now()

	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pageNum := i + 1
		docs = append(docs, domain.Document{
			ID:         uuid.New().String(),
			Text:       page,
			SourcePath: path,
			PageNumber: &pageNum,
			LoadedAt:   now,
		})
	}

	return docs, nil
}

// InstallInstructions returns a hint for installing pdftotext.
func InstallInstructions() string {
	return "pdftotext is required for PDF support: " +
		"macOS: brew install poppler; Debian/Ubuntu: apt install poppler-utils"
}
