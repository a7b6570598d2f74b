package loaders

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// Ensure Filesystem implements the interface.
var _ driven.DocumentLoader = (*Filesystem)(nil)

// Filesystem streams documents from a directory tree.
// Files are visited in sorted path order so repeated loads over an
// unchanged directory yield the same document sequence.
type Filesystem struct {
	dir        string
	extensions map[string]bool
	registry   *Registry
}

// NewFilesystem creates a loader for the given directory.
// Only files whose extension appears in extensions AND has a registered
// reader are loaded; an empty extensions slice means "whatever the
// registry supports".
func NewFilesystem(dir string, extensions []string, registry *Registry) *Filesystem {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	return &Filesystem{
		dir:        dir,
		extensions: extSet,
		registry:   registry,
	}
}

// Load walks the directory and streams documents.
// The document channel closes when the walk finishes; per-file failures go
// to the error channel and do not stop the walk. A missing or unreadable
// corpus directory stops the walk before it starts and is reported as an
// error wrapping domain.ErrCorpusUnavailable. Zero matching files is not
// an error - the document channel just closes immediately.
func (l *Filesystem) Load(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		paths, err := l.collectPaths()
		if err != nil {
			// The whole corpus is unreadable, not one file of it.
			select {
			case errs <- fmt.Errorf("%w: walking %s: %w", domain.ErrCorpusUnavailable, l.dir, err):
			case <-ctx.Done():
			}
			return
		}

		logger.Debug("Corpus walk: %d matching files under %s", len(paths), l.dir)

		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}

			reader, err := l.registry.Get(filepath.Ext(path))
			if err != nil {
				// Extension was requested but has no reader.
				select {
				case errs <- fmt.Errorf("%s: %w", path, err):
				case <-ctx.Done():
					return
				}
				continue
			}

			loaded, err := reader.Read(ctx, path)
			if err != nil {
				select {
				case errs <- fmt.Errorf("reading %s: %w", path, err):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, doc := range loaded {
				select {
				case docs <- doc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return docs, errs
}

// collectPaths gathers matching file paths in sorted order.
func (l *Filesystem) collectPaths() ([]string, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, err
	}

	var paths []string

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectory: skip it, keep walking.
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if l.matches(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func (l *Filesystem) matches(ext string) bool {
	ext = strings.ToLower(ext)
	if len(l.extensions) == 0 {
		_, err := l.registry.Get(ext)
		return err == nil
	}
	return l.extensions[ext]
}
