package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/config/file"
	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Writes a config.toml with documented defaults to the askdoc config
directory. Edit it to point at your corpus and AI backends. API keys are
read from OPENAI_API_KEY / ANTHROPIC_API_KEY and never need to be stored
in the file.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := file.NewSettingsStore(configDir)
	if err != nil {
		return err
	}

	if store.Exists() && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", store.Path())
	}

	defaults := domain.DefaultSettings()
	defaults.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	}
	defaults.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
	}

	if err := store.Save(defaults); err != nil {
		return err
	}

	cmd.Printf("Wrote %s\n", store.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := loadSettings(); err != nil {
		return err
	}

	// Never print credentials.
	redacted := settings
	if redacted.Embedding.APIKey != "" {
		redacted.Embedding.APIKey = "(set)"
	}
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "(set)"
	}

	data, err := toml.Marshal(redacted)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	cmd.Printf("# %s\n%s", store.Path(), data)
	return nil
}
