package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline status",
	Long:  `Reports the index state, document and chunk counts and the embedding model.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := initServices(false); err != nil {
		return err
	}
	defer closeServices()

	// Surface what is persisted; a missing snapshot just reads as unbuilt.
	_ = pipeline.Restore(cmd.Context())

	status := pipeline.Status()

	if statusJSON {
		out := struct {
			State          string    `json:"state"`
			Ready          bool      `json:"ready"`
			Documents      int       `json:"documents"`
			Chunks         int       `json:"chunks"`
			EmbeddingModel string    `json:"embedding_model,omitempty"`
			BuiltAt        time.Time `json:"built_at,omitzero"`
			LastError      string    `json:"last_error,omitempty"`
		}{
			State:          status.State.String(),
			Ready:          status.Ready,
			Documents:      status.Documents,
			Chunks:         status.Chunks,
			EmbeddingModel: status.EmbeddingModel,
			BuiltAt:        status.BuiltAt,
			LastError:      status.LastError,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("State:     %s\n", status.State.Description())
	cmd.Printf("Corpus:    %s\n", settings.Corpus.Dir)
	if status.Ready {
		cmd.Printf("Documents: %d\n", status.Documents)
		cmd.Printf("Chunks:    %d\n", status.Chunks)
		cmd.Printf("Model:     %s\n", status.EmbeddingModel)
		cmd.Printf("Built:     %s\n", status.BuiltAt.Format(time.RFC1123))
	}
	if status.LastError != "" {
		cmd.Printf("Last error: %s\n", status.LastError)
	}
	return nil
}
