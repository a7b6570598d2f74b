// Package cli implements the askdoc command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/ai"
	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/config/file"
	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/index/memory"
	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driven/index/sqlite"
	"github.com/askdoc-labs/askdoc-cli/internal/chunker"
	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-cli/internal/core/services"
	"github.com/askdoc-labs/askdoc-cli/internal/loaders"
	"github.com/askdoc-labs/askdoc-cli/internal/loaders/pdf"
	"github.com/askdoc-labs/askdoc-cli/internal/loaders/plaintext"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Shared flags and services wired by initServices.
var (
	verbose   bool
	configDir string
	corpusDir string
	settings  domain.Settings
	store     *file.SettingsStore
	pipeline  *services.PipelineService
	snapshots *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "askdoc",
	Short: "Ask questions about your documents",
	Long: `askdoc indexes a directory of text, markdown and PDF files and answers
questions about them using retrieval-augmented generation: relevant
passages are found by semantic search and handed to a language model,
which answers based only on that context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.askdoc)")
	rootCmd.PersistentFlags().StringVar(&corpusDir, "dir", "", "corpus directory (overrides config)")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

// loadSettings reads settings from disk and applies flag overrides.
func loadSettings() error {
	var err error
	store, err = file.NewSettingsStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	settings, err = store.Load()
	if err != nil {
		return err
	}
	if corpusDir != "" {
		settings.Corpus.Dir = corpusDir
	}

	return settings.Validate()
}

// initServices builds the full pipeline object graph from settings.
// Commands that only read configuration call loadSettings instead.
func initServices(needLLM bool) error {
	if err := loadSettings(); err != nil {
		return err
	}

	registry := loaders.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(pdf.New())

	loader := loaders.NewFilesystem(settings.Corpus.Dir, settings.Corpus.Extensions, registry)

	splitter, err := chunker.New(settings.Chunking.Size, settings.Chunking.Overlap)
	if err != nil {
		return err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return err
	}
	if embedder == nil {
		return fmt.Errorf("%w: configure [embedding] in %s",
			domain.ErrEmbeddingUnavailable, store.Path())
	}

	var llm driven.LLMService
	if needLLM {
		llm, err = ai.CreateAndValidateLLMService(&settings.LLM)
		if err != nil {
			return err
		}
		if llm == nil {
			return fmt.Errorf("%w: configure [llm] in %s",
				domain.ErrLLMUnavailable, store.Path())
		}
	}

	retriever := services.NewRetriever(embedder, settings.Retrieval.TopK, settings.Embedding.Timeout())
	synthesizer := services.NewSynthesizer(llm, settings.LLM.Timeout())

	builder := func(chunks []domain.Chunk) (driven.VectorIndex, error) {
		return memory.NewIndex(chunks)
	}

	pipeline = services.NewPipeline(loader, splitter, embedder, builder, retriever, synthesizer)

	snapshots, err = sqlite.NewStore(dataDir())
	if err != nil {
		logger.Warn("Snapshot store unavailable, builds will not persist: %v", err)
	} else {
		pipeline.SetSnapshotStore(snapshots)
	}

	return nil
}

// dataDir derives the snapshot directory from the config directory flag.
func dataDir() string {
	if configDir == "" {
		return "" // sqlite store falls back to ~/.askdoc/data
	}
	return configDir + "/data"
}

// closeServices releases pipeline resources.
func closeServices() {
	if pipeline != nil {
		pipeline.Close()
	}
	if snapshots != nil {
		snapshots.Close()
	}
}

// ensureServed restores a persisted snapshot or, failing that, runs a
// fresh build, so that query commands work without an explicit index run.
func ensureServed(cmd *cobra.Command) error {
	if err := pipeline.Restore(cmd.Context()); err == nil {
		return nil
	}

	logger.Info("No usable snapshot, building index from %s", settings.Corpus.Dir)
	return pipeline.Build(cmd.Context())
}
