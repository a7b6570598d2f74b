package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string       `json:"answer"`
	Model   string       `json:"model"`
	Sources []ChunkOutput `json:"sources"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the question to find relevant document chunks for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a retrieved chunk in tool results.
type ChunkOutput struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	State          string    `json:"state"`
	Ready          bool      `json:"ready"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	BuiltAt        time.Time `json:"built_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents, grounded in retrieved context",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the document chunks most relevant to a question, without generating an answer",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report the index state and document counters",
	}, s.handleStatus)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Pipeline.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  answer.Text,
		Model:   answer.Model,
		Sources: make([]ChunkOutput, len(answer.Context)),
	}
	for i, rc := range answer.Context {
		output.Sources[i] = ChunkOutput{
			Source: rc.Chunk.SourceLabel(),
			Score:  rc.Score,
			Text:   rc.Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	hits, err := s.ports.Pipeline.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(hits)),
		Count:  len(hits),
	}
	for i, rc := range hits {
		output.Chunks[i] = ChunkOutput{
			Source: rc.Chunk.SourceLabel(),
			Score:  rc.Score,
			Text:   rc.Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, StatusOutput, error) {
	status := s.ports.Pipeline.Status()

	return nil, StatusOutput{
		State:          status.State.String(),
		Ready:          status.Ready,
		Documents:      status.Documents,
		Chunks:         status.Chunks,
		EmbeddingModel: status.EmbeddingModel,
		BuiltAt:        status.BuiltAt,
		LastError:      status.LastError,
	}, nil
}
