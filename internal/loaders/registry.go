package loaders

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// Registry selects a FileReader for a file extension.
// Registration is case-insensitive; lookups normalise to lower case.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]driven.FileReader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]driven.FileReader),
	}
}

// Register adds a reader for all extensions it declares.
// Registering a second reader for an extension replaces the first.
func (r *Registry) Register(reader driven.FileReader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range reader.Extensions() {
		r.readers[strings.ToLower(ext)] = reader
	}
}

// Get returns the reader for the given extension, or an error wrapping
// domain.ErrUnsupportedType when none is registered.
func (r *Registry) Get(ext string) (driven.FileReader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reader, ok := r.readers[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for %q", domain.ErrUnsupportedType, ext)
	}
	return reader, nil
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
