package services

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// answerPromptText instructs the model to answer strictly from the
// retrieved context. Each chunk is preceded by its source label so the
// model can cite files and pages.
const answerPromptText = `Answer the question based only on the following context:

{{range .Context}}[{{.Chunk.SourceLabel}}]
{{.Chunk.Text}}

{{end}}{{if .HasPages}}When you use a fact from the context, mention the source file and page number it came from.

{{end}}Question: {{.Question}}`

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptText))

// answerPromptData is the input to the answer prompt template.
type answerPromptData struct {
	Question string
	Context  []domain.RetrievedChunk
	HasPages bool
}

// Synthesizer turns a question plus retrieved context into a grounded
// answer via the generation backend. The model's text is returned
// unmodified apart from surrounding whitespace; when generation fails,
// the error is surfaced and no fallback text is fabricated.
type Synthesizer struct {
	llm             driven.LLMService
	generateTimeout time.Duration
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(llm driven.LLMService, generateTimeout time.Duration) *Synthesizer {
	if generateTimeout <= 0 {
		generateTimeout = domain.DefaultGenerateTimeout
	}
	return &Synthesizer{
		llm:             llm,
		generateTimeout: generateTimeout,
	}
}

// Synthesize generates an answer for the question grounded in the
// retrieved chunks.
func (s *Synthesizer) Synthesize(
	ctx context.Context, question string, retrieved []domain.RetrievedChunk,
) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", domain.ErrLLMUnavailable)
	}

	prompt, err := s.buildPrompt(question, retrieved)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	logger.Debug("Prompt size: %d bytes, %d context chunks", len(prompt), len(retrieved))

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	text, err := s.llm.Generate(genCtx, prompt, driven.GenerateOptions{})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Context:  retrieved,
		Model:    s.llm.ModelName(),
	}, nil
}

// buildPrompt renders the answer prompt for the question and context.
func (s *Synthesizer) buildPrompt(question string, retrieved []domain.RetrievedChunk) (string, error) {
	data := answerPromptData{
		Question: question,
		Context:  retrieved,
	}
	for _, rc := range retrieved {
		if rc.Chunk.PageNumber != nil {
			data.HasPages = true
			break
		}
	}

	var sb strings.Builder
	if err := answerPrompt.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
