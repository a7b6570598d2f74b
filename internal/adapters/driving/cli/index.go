package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the document index",
	Long: `Reads every supported file in the corpus directory, splits the text
into overlapping chunks, embeds them and builds the search index.
The index is persisted so later questions can skip the build.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := initServices(false); err != nil {
		return err
	}
	defer closeServices()

	cmd.Printf("Indexing %s ...\n", settings.Corpus.Dir)

	if err := pipeline.Build(cmd.Context()); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	status := pipeline.Status()
	if !status.Ready {
		cmd.Println("No documents found. Add files to the corpus directory and rerun.")
		return nil
	}

	cmd.Printf("Indexed %d documents (%d chunks) with %s.\n",
		status.Documents, status.Chunks, status.EmbeddingModel)
	return nil
}
