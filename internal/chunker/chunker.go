// Package chunker splits document text into overlapping fixed-size windows.
//
// The break policy is deterministic: each chunk greedily consumes up to
// Size bytes, preferring to end at a paragraph ("\n\n") or sentence
// boundary found within a small lookback window, else breaking at the hard
// size limit. The next chunk starts Overlap bytes before the previous
// chunk's end, so adjacent chunks from the same document always share
// exactly Overlap bytes.
//
// A trailing remainder shorter than the stride (Size - Overlap) is absorbed
// into the final chunk instead of being emitted as a sliver that would be
// mostly overlap. The final chunk of a document may therefore be shorter
// than Size, or longer by at most stride-1 bytes.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

// maxLookback caps how far back the splitter searches for a natural
// break, regardless of chunk size.
const maxLookback = 64

// Splitter splits documents into chunks of at most Size bytes with
// Overlap bytes shared between consecutive chunks.
type Splitter struct {
	size     int
	overlap  int
	lookback int
}

// New creates a splitter. The overlap must be smaller than the size;
// violations are configuration errors wrapping domain.ErrInvalidChunking.
func New(size, overlap int) (*Splitter, error) {
	cfg := domain.ChunkingSettings{Size: size, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lookback := size / 4
	if lookback > maxLookback {
		lookback = maxLookback
	}

	return &Splitter{
		size:     size,
		overlap:  overlap,
		lookback: lookback,
	}, nil
}

// Size returns the configured maximum chunk length in bytes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap in bytes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks one document. Identical input and configuration always
// yield an identical chunk sequence (chunk IDs aside). An empty document
// produces no chunks.
func (s *Splitter) Split(doc domain.Document) []domain.Chunk {
	text := doc.Text
	if text == "" {
		return nil
	}

	stride := s.size - s.overlap
	estimated := len(text)/stride + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for {
		end := start + s.size
		if end >= len(text) {
			chunks = append(chunks, s.newChunk(doc, text[start:], len(chunks)))
			break
		}

		end = s.breakPoint(text, start, end)

		// Absorb a trailing remainder shorter than one stride.
		if len(text)-end < stride {
			chunks = append(chunks, s.newChunk(doc, text[start:], len(chunks)))
			break
		}

		chunks = append(chunks, s.newChunk(doc, text[start:end], len(chunks)))
		start = end - s.overlap
	}

	return chunks
}

// breakPoint returns where the chunk starting at start should end.
// It searches the last lookback bytes before the hard limit for a
// paragraph boundary, then a sentence boundary, and falls back to the
// hard limit. The result always leaves the next chunk a positive stride.
func (s *Splitter) breakPoint(text string, start, end int) int {
	lo := end - s.lookback
	if floor := start + s.overlap + 1; lo < floor {
		lo = floor
	}
	if lo >= end {
		return end
	}

	window := text[lo:end]

	// Paragraph boundary: break after the blank line.
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return lo + i + 2
	}

	// Sentence boundary: punctuation followed by whitespace.
	for i := len(window) - 1; i > 0; i-- {
		if isSentenceEnd(window[i-1]) && isSpace(window[i]) {
			return lo + i + 1
		}
	}

	return end
}

func (s *Splitter) newChunk(doc domain.Document, text string, index int) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Text:       text,
		SourcePath: doc.SourcePath,
		PageNumber: doc.PageNumber,
		ChunkIndex: index,
	}
}

func isSentenceEnd(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
