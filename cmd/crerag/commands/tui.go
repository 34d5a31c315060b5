package commands

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"crerag/internal/tui"
)

// NewTUICmd creates the tui command.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Long: `Search the knowledge base interactively. Tab switches between search and
chat; up and down cycle through results; Ctrl+C quits.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{stderrLogs: true, withChat: true})
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.kb.Stats()
	user := os.Getenv("USER")
	if user == "" {
		user = "tui"
	}
	header := fmt.Sprintf("%d chunks in %d documents, vocabulary %d", st.TotalChunks, st.TotalDocuments, st.VocabularySize)
	m := tui.New(a.kb, a.chat, user, header)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
