package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
)

// fakePipeline is a canned driving.Pipeline for handler tests.
type fakePipeline struct {
	answer *domain.Answer
	hits   []domain.RetrievedChunk
	status driving.Status
	err    error
}

func (f *fakePipeline) Build(context.Context) error   { return f.err }
func (f *fakePipeline) Restore(context.Context) error { return f.err }

func (f *fakePipeline) Answer(context.Context, string) (*domain.Answer, error) {
	return f.answer, f.err
}

func (f *fakePipeline) Retrieve(context.Context, string) ([]domain.RetrievedChunk, error) {
	return f.hits, f.err
}

func (f *fakePipeline) Status() driving.Status { return f.status }

func testChunk() domain.Chunk {
	page := 2
	return domain.Chunk{
		ID:         "c1",
		Text:       "The mitochondria is the powerhouse of the cell.",
		SourcePath: "/corpus/biology.pdf",
		PageNumber: &page,
	}
}

func TestNewServer_RequiresPipeline(t *testing.T) {
	_, err := NewServer(&Ports{}, "")
	require.ErrorIs(t, err, ErrMissingPipeline)
}

func TestHandleAsk(t *testing.T) {
	pipeline := &fakePipeline{
		answer: &domain.Answer{
			Question: "what powers the cell?",
			Text:     "The mitochondria.",
			Model:    "llama3.2",
			Context:  []domain.RetrievedChunk{{Chunk: testChunk(), Score: 0.91}},
		},
	}
	server, err := NewServer(&Ports{Pipeline: pipeline}, "")
	require.NoError(t, err)

	_, out, err := server.handleAsk(context.Background(), nil, AskInput{Question: "what powers the cell?"})

	require.NoError(t, err)
	assert.Equal(t, "The mitochondria.", out.Answer)
	assert.Equal(t, "llama3.2", out.Model)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "biology.pdf, page 2", out.Sources[0].Source)
	assert.InDelta(t, 0.91, out.Sources[0].Score, 0.001)
}

func TestHandleAsk_NotReady(t *testing.T) {
	pipeline := &fakePipeline{err: &domain.StateError{Op: "answer", State: domain.StateUnbuilt}}
	server, err := NewServer(&Ports{Pipeline: pipeline}, "")
	require.NoError(t, err)

	_, _, err = server.handleAsk(context.Background(), nil, AskInput{Question: "q"})

	require.ErrorIs(t, err, domain.ErrNotReady)
}

func TestHandleRetrieve(t *testing.T) {
	pipeline := &fakePipeline{
		hits: []domain.RetrievedChunk{
			{Chunk: testChunk(), Score: 0.8},
			{Chunk: domain.Chunk{Text: "other", SourcePath: "/corpus/notes.txt"}, Score: 0.5},
		},
	}
	server, err := NewServer(&Ports{Pipeline: pipeline}, "")
	require.NoError(t, err)

	_, out, err := server.handleRetrieve(context.Background(), nil, RetrieveInput{Question: "cells"})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "biology.pdf, page 2", out.Chunks[0].Source)
	assert.Equal(t, "notes.txt", out.Chunks[1].Source)
}

func TestHandleStatus(t *testing.T) {
	builtAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pipeline := &fakePipeline{
		status: driving.Status{
			State:          domain.StateReady,
			Ready:          true,
			Documents:      3,
			Chunks:         40,
			EmbeddingModel: "nomic-embed-text",
			BuiltAt:        builtAt,
		},
	}
	server, err := NewServer(&Ports{Pipeline: pipeline}, "")
	require.NoError(t, err)

	_, out, err := server.handleStatus(context.Background(), nil, struct{}{})

	require.NoError(t, err)
	assert.Equal(t, "ready", out.State)
	assert.True(t, out.Ready)
	assert.Equal(t, 3, out.Documents)
	assert.Equal(t, 40, out.Chunks)
	assert.Equal(t, builtAt, out.BuiltAt)
}
