package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
)

var (
	askShowContext bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the most relevant chunks for the question and asks the
configured language model to answer based only on that context.

Uses the persisted index when one exists; otherwise builds one first.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved chunks below the answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(true); err != nil {
		return err
	}
	defer closeServices()

	if err := ensureServed(cmd); err != nil {
		return err
	}

	answer, err := pipeline.Answer(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}

	cmd.Println(answer.Text)

	if askShowContext {
		cmd.Println()
		cmd.Println("Sources:")
		for i, rc := range answer.Context {
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, rc.Chunk.SourceLabel(), rc.Score)
		}
	}
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	type sourceOut struct {
		Source string  `json:"source"`
		Score  float64 `json:"score"`
		Text   string  `json:"text,omitempty"`
	}
	out := struct {
		Question string      `json:"question"`
		Answer   string      `json:"answer"`
		Model    string      `json:"model"`
		Sources  []sourceOut `json:"sources"`
	}{
		Question: answer.Question,
		Answer:   answer.Text,
		Model:    answer.Model,
	}
	for _, rc := range answer.Context {
		src := sourceOut{Source: rc.Chunk.SourceLabel(), Score: rc.Score}
		if askShowContext {
			src.Text = rc.Chunk.Text
		}
		out.Sources = append(out.Sources, src)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
