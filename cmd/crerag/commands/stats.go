package commands

import (
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.kb.Stats()
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			cmd.Printf("Chunks:      %d\n", st.TotalChunks)
			cmd.Printf("Documents:   %d\n", st.TotalDocuments)
			cmd.Printf("Vocabulary:  %d\n", st.VocabularySize)
			cmd.Printf("Index built: %t\n", st.HasMatrix)
			return nil
		},
	}
}
