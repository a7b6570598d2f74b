// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a build to run:
//
//   - DocumentLoader: Streams documents from the corpus directory
//   - FileReader: Extracts documents from one file format
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Answers k-nearest-neighbour queries (built per corpus snapshot)
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - LLMService: Generation backend. Without it, Answer is unavailable
//     but Retrieve still works.
//   - SnapshotStore: Index persistence. Without it, every start re-embeds.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, loader, or chunker package
package driven
