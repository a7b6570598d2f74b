package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

// Environment variables consulted for API keys on load.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
)

// SettingsStore persists domain.Settings as a TOML file.
type SettingsStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewSettingsStore creates a store rooted at configDir.
// If configDir is empty, defaults to ~/.askdoc/config.toml.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".askdoc")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk, applies defaults for absent sections and
// fills API keys from the environment when the file carries none.
// A missing file yields the defaults, not an error.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := domain.DefaultSettings()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvKeys(&settings)
			return settings, nil
		}
		return settings, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	applyEnvKeys(&settings)
	return settings, nil
}

// Save writes settings to disk with restricted permissions.
// API keys that came from the environment are stripped first so they
// never land in the file.
func (s *SettingsStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.Embedding.APIKey == os.Getenv(envOpenAIKey) {
		settings.Embedding.APIKey = ""
	}
	if settings.LLM.APIKey == os.Getenv(envOpenAIKey) || settings.LLM.APIKey == os.Getenv(envAnthropicKey) {
		settings.LLM.APIKey = ""
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0600)
}

// Exists reports whether a config file is present on disk.
func (s *SettingsStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.filePath)
	return err == nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// applyEnvKeys fills empty API key fields from the environment.
func applyEnvKeys(settings *domain.Settings) {
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = os.Getenv(envOpenAIKey)
	}
	if settings.LLM.APIKey == "" {
		switch settings.LLM.Provider {
		case domain.AIProviderOpenAI:
			settings.LLM.APIKey = os.Getenv(envOpenAIKey)
		case domain.AIProviderAnthropic:
			settings.LLM.APIKey = os.Getenv(envAnthropicKey)
		}
	}
}
