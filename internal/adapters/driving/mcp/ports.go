// Package mcp exposes the pipeline to AI assistants over the Model
// Context Protocol.
package mcp

import (
	"errors"

	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
)

// ErrMissingPipeline indicates the server was constructed without a pipeline.
var ErrMissingPipeline = errors.New("mcp: pipeline is required")

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline answers questions and reports status.
	Pipeline driving.Pipeline
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipeline
	}
	return nil
}
