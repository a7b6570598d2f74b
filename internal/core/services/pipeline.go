package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.Pipeline = (*PipelineService)(nil)

// embedBatchSize is the number of chunk texts sent per embedding call.
// Cancellation is checked between batches, so a build stops within one
// batch of the context being cancelled.
const embedBatchSize = 16

// Splitter cuts a document into overlapping chunks.
type Splitter interface {
	Split(doc domain.Document) []domain.Chunk
}

// IndexBuilder constructs an immutable vector index from embedded chunks.
type IndexBuilder func(chunks []domain.Chunk) (driven.VectorIndex, error)

// PipelineService orchestrates the build flow (load, chunk, embed, index)
// and the query flow (retrieve, synthesize).
//
// The served index is replaced atomically under the mutex: queries either
// see the complete previous index or the complete new one, never a partial
// build. At most one build runs at a time; a second concurrent Build is
// rejected with domain.ErrBuildInProgress rather than queued.
type PipelineService struct {
	loader      driven.DocumentLoader
	splitter    Splitter
	embedder    driven.EmbeddingService
	buildIndex  IndexBuilder
	retriever   *Retriever
	synthesizer *Synthesizer
	snapshots   driven.SnapshotStore

	mu        sync.RWMutex
	state     domain.PipelineState
	building  bool
	index     driven.VectorIndex
	documents int
	model     string
	builtAt   time.Time
	lastErr   error
}

// NewPipeline creates a pipeline service. The embedder and the LLM behind
// the synthesizer may be nil; operations needing them fail with the
// corresponding unavailability error.
func NewPipeline(
	loader driven.DocumentLoader,
	splitter Splitter,
	embedder driven.EmbeddingService,
	buildIndex IndexBuilder,
	retriever *Retriever,
	synthesizer *Synthesizer,
) *PipelineService {
	return &PipelineService{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		buildIndex:  buildIndex,
		retriever:   retriever,
		synthesizer: synthesizer,
		state:       domain.StateUnbuilt,
	}
}

// SetSnapshotStore enables snapshot persistence after successful builds.
func (p *PipelineService) SetSnapshotStore(store driven.SnapshotStore) {
	p.snapshots = store
}

// Build (re)constructs the index from the corpus.
func (p *PipelineService) Build(ctx context.Context) error {
	if p.embedder == nil {
		return fmt.Errorf("%w: no embedding backend configured", domain.ErrEmbeddingUnavailable)
	}

	p.mu.Lock()
	if p.building {
		p.mu.Unlock()
		return domain.ErrBuildInProgress
	}
	p.building = true
	p.state = domain.StateBuilding
	p.mu.Unlock()

	logger.Section("Index Build")
	result, err := p.runBuild(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.building = false

	if err != nil {
		p.lastErr = err
		// A failed rebuild never discards a working index.
		if p.index != nil {
			p.state = domain.StateReady
			logger.Warn("Build failed, previous index kept serving: %v", err)
		} else {
			p.state = domain.StateFailed
			logger.Warn("Build failed: %v", err)
		}
		return err
	}

	if p.index != nil {
		p.index.Close()
	}
	p.index = result.index
	p.documents = result.documents
	p.model = p.embedder.ModelName()
	p.builtAt = time.Now()
	p.lastErr = nil

	if result.index == nil || result.index.Size() == 0 {
		p.state = domain.StateEmpty
		p.index = nil
		// Without this, a later Restore would resurrect chunks for
		// files that no longer exist.
		p.clearSnapshot(ctx)
		logger.Info("Build finished: corpus is empty")
		return nil
	}

	p.state = domain.StateReady
	logger.Info("Build finished: %d documents, %d chunks", result.documents, result.index.Size())

	p.saveSnapshot(ctx, result)
	return nil
}

// buildResult is the outcome of one successful build run.
type buildResult struct {
	index     driven.VectorIndex
	chunks    []domain.Chunk
	documents int
}

// runBuild executes load, chunk, embed and index without touching
// published state.
func (p *PipelineService) runBuild(ctx context.Context) (buildResult, error) {
	chunks, documents, err := p.loadAndChunk(ctx)
	if err != nil {
		return buildResult{}, err
	}
	logger.Debug("Loaded %d documents into %d chunks", documents, len(chunks))

	if len(chunks) == 0 {
		return buildResult{documents: documents}, nil
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return buildResult{}, err
	}

	index, err := p.buildIndex(chunks)
	if err != nil {
		return buildResult{}, fmt.Errorf("build index: %w", err)
	}

	return buildResult{index: index, chunks: chunks, documents: documents}, nil
}

// loadAndChunk drains the loader and splits every document.
// Per-file errors are logged and skipped; they never abort the build.
// A corpus-level failure aborts it, so an unreadable directory can never
// masquerade as an empty one.
func (p *PipelineService) loadAndChunk(ctx context.Context) ([]domain.Chunk, int, error) {
	docs, errs := p.loader.Load(ctx)

	var chunks []domain.Chunk
	var documents int

	for docs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()

		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			documents++
			chunks = append(chunks, p.splitter.Split(doc)...)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if errors.Is(err, domain.ErrCorpusUnavailable) {
				return nil, 0, err
			}
			logger.Warn("Skipping file: %v", err)
		}
	}

	return chunks, documents, nil
}

// embedChunks fills in the Embedding field of every chunk, in batches.
func (p *PipelineService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	timeout := domain.DefaultEmbedTimeout
	if p.retriever != nil {
		timeout = p.retriever.embedTimeout
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Text
		}

		batchCtx, cancel := context.WithTimeout(ctx, timeout)
		vectors, err := p.embedder.EmbedBatch(batchCtx, texts)
		cancel()
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(vectors), end-start)
		}

		for i := start; i < end; i++ {
			chunks[i].Embedding = vectors[i-start]
		}
		logger.Debug("Embedded chunks %d-%d", start, end-1)
	}

	return nil
}

// saveSnapshot persists the published index. Failures are logged, not
// fatal: the in-memory index is already serving.
func (p *PipelineService) saveSnapshot(ctx context.Context, result buildResult) {
	if p.snapshots == nil {
		return
	}

	snap := domain.IndexSnapshot{
		Model:      p.model,
		Dimensions: result.index.Dimensions(),
		Chunks:     result.chunks,
		Documents:  result.documents,
		CreatedAt:  p.builtAt,
	}
	if err := p.snapshots.Save(ctx, snap); err != nil {
		logger.Warn("Saving index snapshot failed: %v", err)
	}
}

// clearSnapshot removes the persisted snapshot after a build that found an
// empty corpus. Failures are logged, not fatal.
func (p *PipelineService) clearSnapshot(ctx context.Context) {
	if p.snapshots == nil {
		return
	}
	if err := p.snapshots.Delete(ctx); err != nil {
		logger.Warn("Clearing index snapshot failed: %v", err)
	}
}

// Restore seeds the pipeline from a persisted snapshot, skipping
// load/chunk/embed entirely.
func (p *PipelineService) Restore(ctx context.Context) error {
	if p.snapshots == nil {
		return fmt.Errorf("%w: no snapshot store configured", domain.ErrNotFound)
	}

	p.mu.Lock()
	if p.building {
		p.mu.Unlock()
		return domain.ErrBuildInProgress
	}
	p.building = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.building = false
		p.mu.Unlock()
	}()

	snap, err := p.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	// A snapshot from a different embedding model would score against
	// incompatible question vectors.
	if p.embedder != nil && snap.Model != p.embedder.ModelName() {
		return fmt.Errorf("%w: snapshot built with model %q, configured model is %q; rebuild required",
			domain.ErrInvalidInput, snap.Model, p.embedder.ModelName())
	}

	var index driven.VectorIndex
	if len(snap.Chunks) > 0 {
		index, err = p.buildIndex(snap.Chunks)
		if err != nil {
			return fmt.Errorf("rebuild index from snapshot: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		p.index.Close()
	}
	p.index = index
	p.documents = snap.Documents
	p.model = snap.Model
	p.builtAt = snap.CreatedAt
	p.lastErr = nil
	if index == nil {
		p.state = domain.StateEmpty
	} else {
		p.state = domain.StateReady
	}

	logger.Info("Restored index snapshot: %d documents, %d chunks (model %s)",
		snap.Documents, len(snap.Chunks), snap.Model)
	return nil
}

// Retrieve returns the top-k chunks for a question without generation.
func (p *PipelineService) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	index, err := p.servedIndex("retrieve")
	if err != nil {
		return nil, err
	}
	return p.retriever.Retrieve(ctx, index, question)
}

// Answer retrieves context for the question and synthesizes an answer.
func (p *PipelineService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	index, err := p.servedIndex("answer")
	if err != nil {
		return nil, err
	}

	retrieved, err := p.retriever.Retrieve(ctx, index, question)
	if err != nil {
		return nil, err
	}

	return p.synthesizer.Synthesize(ctx, question, retrieved)
}

// servedIndex returns the currently published index, or a StateError when
// none is being served. During a rebuild the previous index keeps serving.
func (p *PipelineService) servedIndex(op string) (driven.VectorIndex, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.index == nil {
		return nil, &domain.StateError{Op: op, State: p.state}
	}
	return p.index, nil
}

// Status reports the current pipeline state.
func (p *PipelineService) Status() driving.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := driving.Status{
		State:          p.state,
		Ready:          p.index != nil,
		Documents:      p.documents,
		EmbeddingModel: p.model,
		BuiltAt:        p.builtAt,
	}
	if p.index != nil {
		status.Chunks = p.index.Size()
	}
	if p.lastErr != nil {
		status.LastError = p.lastErr.Error()
	}
	return status
}

// Close releases the served index.
func (p *PipelineService) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		err := p.index.Close()
		p.index = nil
		return err
	}
	return nil
}
