// Package domain contains the core business entities and rules for askdoc.
//
// The domain is the innermost layer of the hexagonal architecture:
// it has no dependencies on adapters, ports, or external libraries
// beyond the standard library.
//
// Key entities:
//
//   - Document: the full text read from one source file (or one PDF page)
//   - Chunk: a bounded window of document text, the unit of retrieval
//   - RetrievedChunk: a chunk paired with its similarity score
//   - Answer: the synthesized response to a question
//   - PipelineState: the build/query state machine of the RAG pipeline
//   - Settings: validated application configuration
package domain
