package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/index/memory"
	"github.com/askdoc-labs/askdoc-cli/internal/chunker"
	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

// stubLoader streams a fixed set of documents and per-file errors.
type stubLoader struct {
	docs []domain.Document
	errs []error
}

func (l *stubLoader) Load(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document)
	errs := make(chan error, len(l.errs)+1)
	go func() {
		defer close(docs)
		defer close(errs)
		for _, err := range l.errs {
			errs <- err
		}
		for _, doc := range l.docs {
			select {
			case docs <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return docs, errs
}

// stubEmbedder returns deterministic vectors keyed by text. Unknown texts
// get a fixed fallback vector. When block is set, EmbedBatch waits until
// the channel is closed or the context expires.
type stubEmbedder struct {
	vectors map[string][]float32
	failErr error
	block   chan struct{}

	mu    sync.Mutex
	calls int
}

func (e *stubEmbedder) vectorFor(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{0.1, 0.1, 0.1}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.failErr != nil {
		return nil, e.failErr
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vectorFor(text)
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int            { return 3 }
func (e *stubEmbedder) ModelName() string          { return "stub-embed" }
func (e *stubEmbedder) Ping(context.Context) error { return nil }
func (e *stubEmbedder) Close() error               { return nil }

// stubLLM records the prompt and returns a canned completion.
type stubLLM struct {
	response string
	failErr  error

	mu         sync.Mutex
	lastPrompt string
}

func (l *stubLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	l.lastPrompt = prompt
	l.mu.Unlock()
	if l.failErr != nil {
		return "", l.failErr
	}
	return l.response, nil
}

func (l *stubLLM) ModelName() string          { return "stub-llm" }
func (l *stubLLM) Ping(context.Context) error { return nil }
func (l *stubLLM) Close() error               { return nil }

// memSnapshots is an in-memory snapshot store.
type memSnapshots struct {
	mu   sync.Mutex
	snap *domain.IndexSnapshot
}

func (s *memSnapshots) Save(_ context.Context, snap domain.IndexSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

func (s *memSnapshots) Load(context.Context) (*domain.IndexSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, domain.ErrNotFound
	}
	return s.snap, nil
}

func (s *memSnapshots) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

func (s *memSnapshots) Close() error { return nil }

func (s *memSnapshots) stored() *domain.IndexSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func memoryIndexBuilder(chunks []domain.Chunk) (driven.VectorIndex, error) {
	return memory.NewIndex(chunks)
}

func testDocs() []domain.Document {
	return []domain.Document{
		{ID: "d1", Text: "Cats are small carnivorous mammals.", SourcePath: "/corpus/cats.txt"},
		{ID: "d2", Text: "The moon orbits the earth every month.", SourcePath: "/corpus/moon.txt"},
	}
}

func newTestPipeline(t *testing.T, loader driven.DocumentLoader, embedder driven.EmbeddingService, llm driven.LLMService) *PipelineService {
	t.Helper()
	splitter, err := chunker.New(200, 20)
	require.NoError(t, err)

	retriever := NewRetriever(embedder, 2, time.Second)
	synthesizer := NewSynthesizer(llm, time.Second)
	p := NewPipeline(loader, splitter, embedder, memoryIndexBuilder, retriever, synthesizer)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPipeline_InitialState(t *testing.T) {
	p := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})

	status := p.Status()

	assert.Equal(t, domain.StateUnbuilt, status.State)
	assert.False(t, status.Ready)

	_, err := p.Answer(context.Background(), "anything")
	require.ErrorIs(t, err, domain.ErrNotReady)

	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "answer", stateErr.Op)
	assert.Equal(t, domain.StateUnbuilt, stateErr.State)
}

func TestPipeline_BuildPublishesIndex(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	status := p.Status()
	assert.Equal(t, domain.StateReady, status.State)
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Documents)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, "stub-embed", status.EmbeddingModel)
	assert.False(t, status.BuiltAt.IsZero())
	assert.Empty(t, status.LastError)
}

func TestPipeline_BuildEmptyCorpus(t *testing.T) {
	p := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	status := p.Status()
	assert.Equal(t, domain.StateEmpty, status.State)
	assert.False(t, status.Ready)
	assert.Zero(t, status.Chunks)

	_, err := p.Retrieve(context.Background(), "anything")
	require.ErrorIs(t, err, domain.ErrNotReady)
}

func TestPipeline_BuildSkipsBadFiles(t *testing.T) {
	loader := &stubLoader{
		docs: testDocs(),
		errs: []error{fmt.Errorf("reading /corpus/broken.pdf: %w", domain.ErrUnsupportedType)},
	}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	assert.Equal(t, 2, p.Status().Documents)
}

func TestPipeline_BuildFailureWithoutPriorIndex(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{failErr: domain.ErrEmbeddingUnavailable}
	p := newTestPipeline(t, loader, embedder, &stubLLM{})

	err := p.Build(context.Background())

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	status := p.Status()
	assert.Equal(t, domain.StateFailed, status.State)
	assert.False(t, status.Ready)
	assert.Contains(t, status.LastError, "embedding service unavailable")
}

func TestPipeline_BuildFailureKeepsPriorIndex(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{}
	p := newTestPipeline(t, loader, embedder, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	embedder.failErr = domain.ErrRateLimited
	err := p.Build(context.Background())
	require.ErrorIs(t, err, domain.ErrRateLimited)

	status := p.Status()
	assert.Equal(t, domain.StateReady, status.State)
	assert.True(t, status.Ready)
	assert.Contains(t, status.LastError, "rate limited")

	// Queries still work against the kept index.
	embedder.failErr = nil
	hits, err := p.Retrieve(context.Background(), "cats")
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestPipeline_CorpusWalkFailureKeepsPriorIndex(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	// The corpus directory itself vanishes before the rebuild, e.g. an
	// unmounted share or a mistyped --dir.
	loader.docs = nil
	loader.errs = []error{fmt.Errorf("%w: walking /gone/corpus: no such directory", domain.ErrCorpusUnavailable)}

	err := p.Build(context.Background())
	require.ErrorIs(t, err, domain.ErrCorpusUnavailable)

	status := p.Status()
	assert.Equal(t, domain.StateReady, status.State)
	assert.True(t, status.Ready)
	assert.Contains(t, status.LastError, "corpus unavailable")

	// The prior index still answers, it was not mistaken for empty.
	hits, err := p.Retrieve(context.Background(), "cats")
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestPipeline_CorpusWalkFailureWithoutPriorIndex(t *testing.T) {
	loader := &stubLoader{
		errs: []error{fmt.Errorf("%w: walking /gone/corpus: no such directory", domain.ErrCorpusUnavailable)},
	}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})

	err := p.Build(context.Background())

	require.ErrorIs(t, err, domain.ErrCorpusUnavailable)
	status := p.Status()
	assert.Equal(t, domain.StateFailed, status.State)
	assert.False(t, status.Ready)
}

func TestPipeline_ConcurrentBuildRejected(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{block: make(chan struct{})}
	p := newTestPipeline(t, loader, embedder, &stubLLM{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- p.Build(context.Background()) }()

	// Wait until the first build reaches the embedder.
	require.Eventually(t, func() bool {
		embedder.mu.Lock()
		defer embedder.mu.Unlock()
		return embedder.calls > 0
	}, time.Second, time.Millisecond)

	err := p.Build(context.Background())
	require.ErrorIs(t, err, domain.ErrBuildInProgress)

	close(embedder.block)
	require.NoError(t, <-firstDone)
	assert.Equal(t, domain.StateReady, p.Status().State)
}

func TestPipeline_ServesStaleIndexDuringRebuild(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{}
	p := newTestPipeline(t, loader, embedder, &stubLLM{response: "grounded answer"})

	require.NoError(t, p.Build(context.Background()))

	embedder.block = make(chan struct{})
	rebuildDone := make(chan error, 1)
	go func() { rebuildDone <- p.Build(context.Background()) }()

	require.Eventually(t, func() bool {
		return p.Status().State == domain.StateBuilding
	}, time.Second, time.Millisecond)

	// Previous index keeps serving while the rebuild is in flight.
	status := p.Status()
	assert.Equal(t, domain.StateBuilding, status.State)
	assert.True(t, status.Ready)

	// Retrieval must not block on the rebuild. The retriever embeds with
	// its own call, which would also hit the blocked embedder, so release
	// it first and only assert the stale index was queryable meanwhile.
	close(embedder.block)
	require.NoError(t, <-rebuildDone)

	answer, err := p.Answer(context.Background(), "what orbits the earth?")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer.Text)
}

func TestPipeline_RebuildIsIdempotent(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))
	first := p.Status()

	require.NoError(t, p.Build(context.Background()))
	second := p.Status()

	assert.Equal(t, first.Documents, second.Documents)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, domain.StateReady, second.State)
}

func TestPipeline_BuildCancelled(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{block: make(chan struct{})}
	p := newTestPipeline(t, loader, embedder, &stubLLM{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Build(ctx) }()

	require.Eventually(t, func() bool {
		embedder.mu.Lock()
		defer embedder.mu.Unlock()
		return embedder.calls > 0
	}, time.Second, time.Millisecond)

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateFailed, p.Status().State)
}

func TestPipeline_RetrieveRanksBySimilarity(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"Cats are small carnivorous mammals.":    {1, 0, 0},
			"The moon orbits the earth every month.": {0, 1, 0},
			"tell me about cats":                     {1, 0.1, 0},
		},
	}
	p := newTestPipeline(t, loader, embedder, &stubLLM{})

	require.NoError(t, p.Build(context.Background()))

	hits, err := p.Retrieve(context.Background(), "tell me about cats")

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Contains(t, hits[0].Chunk.Text, "Cats")
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestPipeline_RetrieveEmptyQuestion(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})
	require.NoError(t, p.Build(context.Background()))

	_, err := p.Retrieve(context.Background(), "   ")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_AnswerGroundsPromptInContext(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	llm := &stubLLM{response: "The moon."}
	p := newTestPipeline(t, loader, &stubEmbedder{}, llm)
	require.NoError(t, p.Build(context.Background()))

	answer, err := p.Answer(context.Background(), "what orbits the earth?")

	require.NoError(t, err)
	assert.Equal(t, "The moon.", answer.Text)
	assert.Equal(t, "what orbits the earth?", answer.Question)
	assert.Equal(t, "stub-llm", answer.Model)
	assert.NotEmpty(t, answer.Context)

	llm.mu.Lock()
	prompt := llm.lastPrompt
	llm.mu.Unlock()
	assert.Contains(t, prompt, "Answer the question based only on the following context:")
	assert.Contains(t, prompt, "what orbits the earth?")
	assert.Contains(t, prompt, "moon.txt")
}

func TestPipeline_AnswerLLMFailure(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	llm := &stubLLM{failErr: domain.ErrLLMUnavailable}
	p := newTestPipeline(t, loader, &stubEmbedder{}, llm)
	require.NoError(t, p.Build(context.Background()))

	_, err := p.Answer(context.Background(), "anything")

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPipeline_SnapshotRoundTrip(t *testing.T) {
	store := &memSnapshots{}

	loader := &stubLoader{docs: testDocs()}
	built := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})
	built.SetSnapshotStore(store)
	require.NoError(t, built.Build(context.Background()))

	// A fresh pipeline restores without touching loader or embedder.
	restored := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})
	restored.SetSnapshotStore(store)
	require.NoError(t, restored.Restore(context.Background()))

	status := restored.Status()
	assert.Equal(t, domain.StateReady, status.State)
	assert.Equal(t, 2, status.Documents)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, "stub-embed", status.EmbeddingModel)

	hits, err := restored.Retrieve(context.Background(), "cats")
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestPipeline_EmptyRebuildClearsSnapshot(t *testing.T) {
	store := &memSnapshots{}

	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{})
	p.SetSnapshotStore(store)

	require.NoError(t, p.Build(context.Background()))
	require.NotNil(t, store.stored())

	// All corpus files are deleted, the rebuild finds nothing.
	loader.docs = nil
	require.NoError(t, p.Build(context.Background()))
	assert.Equal(t, domain.StateEmpty, p.Status().State)
	assert.Nil(t, store.stored())

	// A later process start must not resurrect the deleted corpus.
	fresh := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})
	fresh.SetSnapshotStore(store)
	err := fresh.Restore(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StateUnbuilt, fresh.Status().State)
}

func TestPipeline_RestoreNoSnapshot(t *testing.T) {
	p := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})
	p.SetSnapshotStore(&memSnapshots{})

	err := p.Restore(context.Background())

	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StateUnbuilt, p.Status().State)
}

func TestPipeline_RestoreModelMismatch(t *testing.T) {
	store := &memSnapshots{}
	store.snap = &domain.IndexSnapshot{
		Model:      "other-model",
		Dimensions: 3,
		Documents:  1,
		Chunks: []domain.Chunk{
			{ID: "c1", DocumentID: "d1", Text: "x", Embedding: []float32{1, 0, 0}},
		},
		CreatedAt: time.Now(),
	}

	p := newTestPipeline(t, &stubLoader{}, &stubEmbedder{}, &stubLLM{})
	p.SetSnapshotStore(store)

	err := p.Restore(context.Background())

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "rebuild required")
}

func TestPipeline_BuildWithoutEmbedder(t *testing.T) {
	splitter, err := chunker.New(200, 20)
	require.NoError(t, err)
	p := NewPipeline(&stubLoader{}, splitter, nil, memoryIndexBuilder,
		NewRetriever(nil, 2, time.Second), NewSynthesizer(nil, time.Second))

	err = p.Build(context.Background())

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, domain.StateUnbuilt, p.Status().State)
}

func TestPipeline_ConcurrentAnswers(t *testing.T) {
	loader := &stubLoader{docs: testDocs()}
	p := newTestPipeline(t, loader, &stubEmbedder{}, &stubLLM{response: "ok"})
	require.NoError(t, p.Build(context.Background()))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Answer(context.Background(), "question")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestSynthesizer_PageCitationInstruction(t *testing.T) {
	llm := &stubLLM{response: "cited"}
	s := NewSynthesizer(llm, time.Second)
	page := 4

	_, err := s.Synthesize(context.Background(), "q", []domain.RetrievedChunk{
		{Chunk: domain.Chunk{Text: "pdf text", SourcePath: "/corpus/manual.pdf", PageNumber: &page}},
	})
	require.NoError(t, err)
	assert.Contains(t, llm.lastPrompt, "manual.pdf, page 4")
	assert.Contains(t, llm.lastPrompt, "mention the source file and page number")

	_, err = s.Synthesize(context.Background(), "q", []domain.RetrievedChunk{
		{Chunk: domain.Chunk{Text: "plain text", SourcePath: "/corpus/notes.txt"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, llm.lastPrompt, "mention the source file")
}

func TestSynthesizer_NoLLMConfigured(t *testing.T) {
	s := NewSynthesizer(nil, time.Second)

	_, err := s.Synthesize(context.Background(), "q", nil)

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
