package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/askdoc-labs/askdoc-cli/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-and-answer session",
	Long: `Opens a terminal chat over the indexed corpus. Each question is
answered from the retrieved context, with source files listed below
the answer. Press Esc or Ctrl+C to quit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := initServices(true); err != nil {
		return err
	}
	defer closeServices()

	if err := ensureServed(cmd); err != nil {
		return err
	}

	model := tui.NewModel(pipeline)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err := program.Run()
	return err
}
