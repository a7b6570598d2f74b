package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// Retriever embeds a question and finds its nearest chunks in an index.
// Retrieval is pure: it never mutates the index and caches nothing, so
// any number of retrievals may run concurrently against one index.
type Retriever struct {
	embedder     driven.EmbeddingService
	topK         int
	embedTimeout time.Duration
}

// NewRetriever creates a retriever.
func NewRetriever(embedder driven.EmbeddingService, topK int, embedTimeout time.Duration) *Retriever {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if embedTimeout <= 0 {
		embedTimeout = domain.DefaultEmbedTimeout
	}
	return &Retriever{
		embedder:     embedder,
		topK:         topK,
		embedTimeout: embedTimeout,
	}
}

// TopK returns the configured number of chunks retrieved per question.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the top-k chunks for the question, best match first.
func (r *Retriever) Retrieve(
	ctx context.Context, index driven.VectorIndex, question string,
) ([]domain.RetrievedChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding backend configured", domain.ErrEmbeddingUnavailable)
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(embedCtx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := index.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	logger.Debug("Retrieved %d chunks for question (k=%d)", len(hits), r.topK)
	return hits, nil
}
