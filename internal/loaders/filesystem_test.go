package loaders

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/loaders/plaintext"
)

// drain consumes both channels until the document channel closes.
func drain(t *testing.T, docs <-chan domain.Document, errs <-chan error) ([]domain.Document, []error) {
	t.Helper()
	var gotDocs []domain.Document
	var gotErrs []error

	for docs != nil || errs != nil {
		select {
		case d, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			gotDocs = append(gotDocs, d)
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			gotErrs = append(gotErrs, e)
		}
	}
	return gotDocs, gotErrs
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTxtRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(plaintext.New())
	return reg
}

func TestFilesystem_LoadsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "beta")
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "ignored.bin", "junk")

	loader := NewFilesystem(dir, []string{".txt"}, newTxtRegistry())
	docs, errs := loader.Load(context.Background())
	gotDocs, gotErrs := drain(t, docs, errs)

	require.Empty(t, gotErrs)
	require.Len(t, gotDocs, 2)
	// Sorted path order makes loads restartable and deterministic.
	assert.Equal(t, "alpha", gotDocs[0].Text)
	assert.Equal(t, "beta", gotDocs[1].Text)
	assert.Nil(t, gotDocs[0].PageNumber)
}

func TestFilesystem_EmptyDirectoryIsNotAnError(t *testing.T) {
	loader := NewFilesystem(t.TempDir(), []string{".txt"}, newTxtRegistry())

	docs, errs := loader.Load(context.Background())
	gotDocs, gotErrs := drain(t, docs, errs)

	assert.Empty(t, gotDocs)
	assert.Empty(t, gotErrs)
}

func TestFilesystem_WalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0700))
	writeFile(t, dir, "top.txt", "top")
	writeFile(t, sub, "deep.txt", "deep")

	loader := NewFilesystem(dir, []string{".txt"}, newTxtRegistry())
	docs, errs := loader.Load(context.Background())
	gotDocs, gotErrs := drain(t, docs, errs)

	require.Empty(t, gotErrs)
	assert.Len(t, gotDocs, 2)
}

func TestFilesystem_BadFileDoesNotAbortWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "fine")
	writeFile(t, dir, "broken.csv", "whatever")

	// .csv is requested but has no registered reader, producing a
	// per-file error while the rest of the corpus still loads.
	loader := NewFilesystem(dir, []string{".txt", ".csv"}, newTxtRegistry())
	docs, errs := loader.Load(context.Background())
	gotDocs, gotErrs := drain(t, docs, errs)

	require.Len(t, gotErrs, 1)
	assert.ErrorIs(t, gotErrs[0], domain.ErrUnsupportedType)
	require.Len(t, gotDocs, 1)
	assert.Equal(t, "fine", gotDocs[0].Text)
}

func TestFilesystem_RestartableProducesSameSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "beta")

	loader := NewFilesystem(dir, []string{".txt"}, newTxtRegistry())

	first, errs1 := loader.Load(context.Background())
	docs1, _ := drain(t, first, errs1)
	second, errs2 := loader.Load(context.Background())
	docs2, _ := drain(t, second, errs2)

	require.Equal(t, len(docs1), len(docs2))
	for i := range docs1 {
		assert.Equal(t, docs1[i].SourcePath, docs2[i].SourcePath)
		assert.Equal(t, docs1[i].Text, docs2[i].Text)
	}
}

func TestFilesystem_CancelledContextStopsStreaming(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, dir, name, "content")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewFilesystem(dir, []string{".txt"}, newTxtRegistry())
	docs, errs := loader.Load(ctx)
	gotDocs, _ := drain(t, docs, errs)

	assert.Empty(t, gotDocs)
}

func TestFilesystem_MissingDirectoryReportsError(t *testing.T) {
	loader := NewFilesystem("/does/not/exist", []string{".txt"}, newTxtRegistry())

	docs, errs := loader.Load(context.Background())
	gotDocs, gotErrs := drain(t, docs, errs)

	assert.Empty(t, gotDocs)
	require.Len(t, gotErrs, 1)
	assert.True(t, errors.Is(gotErrs[0], os.ErrNotExist))
	// Unlike a per-file failure, the caller must be able to tell the
	// corpus itself is gone and abort instead of indexing nothing.
	assert.ErrorIs(t, gotErrs[0], domain.ErrCorpusUnavailable)
	assert.NotErrorIs(t, gotErrs[0], domain.ErrUnsupportedType)
}
