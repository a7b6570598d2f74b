package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API (generation only).
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// Default configuration values. Chunking and retrieval defaults follow the
// tuning the system was originally calibrated with.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 3

	DefaultEmbedTimeout    = 60 * time.Second
	DefaultGenerateTimeout = 120 * time.Second
)

// DefaultExtensions are the file extensions indexed when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".pdf"}

// CorpusSettings configures where documents are read from.
type CorpusSettings struct {
	// Dir is the source directory. Read-only; never written to.
	Dir string `toml:"dir"`

	// Extensions is the set of file extensions to index (with leading dot).
	Extensions []string `toml:"extensions"`
}

// Validate checks corpus settings for correctness.
func (s *CorpusSettings) Validate() error {
	if s.Dir == "" {
		return fmt.Errorf("%w: corpus dir is required", ErrInvalidInput)
	}
	for _, ext := range s.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalidInput, ext)
		}
	}
	return nil
}

// ChunkingSettings configures the document splitter.
type ChunkingSettings struct {
	// Size is the maximum chunk length in bytes.
	Size int `toml:"size"`

	// Overlap is the number of bytes shared by consecutive chunks.
	Overlap int `toml:"overlap"`
}

// Validate checks the chunk size / overlap constraint.
// Violations are configuration errors, rejected before a build starts.
func (s *ChunkingSettings) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, s.Size)
	}
	if s.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrInvalidChunking, s.Overlap)
	}
	if s.Overlap >= s.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidChunking, s.Overlap, s.Size)
	}
	return nil
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `toml:"top_k"`
}

// Validate checks retrieval settings.
func (s *RetrievalSettings) Validate() error {
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, s.TopK)
	}
	return nil
}

// EmbeddingSettings configures the embedding backend.
type EmbeddingSettings struct {
	// Provider selects the backend (ollama or openai).
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model identifier. Determinism of the index
	// is only guaranteed for a fixed model version.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// APIKey authenticates cloud providers. Usually supplied via
	// environment instead of the config file.
	APIKey string `toml:"api_key,omitempty"`

	// TimeoutSeconds bounds each embedding request. 0 means default.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`

	// RequestsPerMinute throttles calls client-side. 0 disables throttling.
	RequestsPerMinute int `toml:"requests_per_minute,omitempty"`
}

// IsConfigured returns true if the settings describe a usable backend.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.Model != ""
}

// Validate checks embedding settings for correctness.
func (s *EmbeddingSettings) Validate() error {
	if !s.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Provider)
	}
	if s.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: anthropic does not offer an embedding API", ErrInvalidInput)
	}
	if s.Model == "" {
		return fmt.Errorf("%w: embedding model is required", ErrInvalidInput)
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", ErrInvalidInput, s.Provider)
	}
	return nil
}

// Timeout returns the configured request timeout or the default.
func (s *EmbeddingSettings) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return DefaultEmbedTimeout
}

// LLMSettings configures the generation backend.
type LLMSettings struct {
	// Provider selects the backend (ollama, openai or anthropic).
	Provider AIProvider `toml:"provider"`

	// Model is the generation model identifier.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// APIKey authenticates cloud providers.
	APIKey string `toml:"api_key,omitempty"`

	// TimeoutSeconds bounds each generation request. 0 means default.
	// Generation backends can be slow; calls always run under a deadline.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`
}

// IsConfigured returns true if the settings describe a usable backend.
func (s *LLMSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.Model != ""
}

// Validate checks LLM settings for correctness.
func (s *LLMSettings) Validate() error {
	if !s.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", ErrInvalidInput, s.Provider)
	}
	if s.Model == "" {
		return fmt.Errorf("%w: LLM model is required", ErrInvalidInput)
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", ErrInvalidInput, s.Provider)
	}
	return nil
}

// Timeout returns the configured request timeout or the default.
func (s *LLMSettings) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return DefaultGenerateTimeout
}

// Settings is the full validated application configuration.
type Settings struct {
	Corpus    CorpusSettings    `toml:"corpus"`
	Chunking  ChunkingSettings  `toml:"chunking"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Embedding EmbeddingSettings `toml:"embedding"`
	LLM       LLMSettings       `toml:"llm"`
}

// DefaultSettings returns settings with documented defaults applied.
// Corpus.Dir, Embedding and LLM remain for the user to fill in.
func DefaultSettings() Settings {
	return Settings{
		Corpus: CorpusSettings{
			Dir:        "./docs",
			Extensions: append([]string(nil), DefaultExtensions...),
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
	}
}

// Validate checks the complete configuration.
// Embedding and LLM sections are only validated when configured, so that
// commands which do not touch the backends (e.g. status) still work.
func (s *Settings) Validate() error {
	if err := s.Corpus.Validate(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if err := s.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if err := s.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if s.Embedding.IsConfigured() {
		if err := s.Embedding.Validate(); err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
	}
	if s.LLM.IsConfigured() {
		if err := s.LLM.Validate(); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}
	return nil
}
