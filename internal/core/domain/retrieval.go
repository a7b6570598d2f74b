package domain

// RetrievedChunk pairs a chunk with its similarity score for one query.
// Sequences of RetrievedChunk are ordered by descending score.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity against the query embedding.
	Score float64
}

// Answer is the result of one question against a READY pipeline.
type Answer struct {
	// Question is the question as asked.
	Question string

	// Text is the language model's response, unmodified.
	Text string

	// Context holds the chunks the answer was grounded in,
	// in descending similarity order.
	Context []RetrievedChunk

	// Model is the name of the generation model that produced the answer.
	Model string
}
