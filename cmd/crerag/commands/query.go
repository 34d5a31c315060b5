package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

var queryTopK int

// NewQueryCmd creates the query command.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the knowledge base",
		Example: `  crerag query "Properties above 15,000 SF"
  crerag query --top-k 5 "rent under $90 per SF"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
	cmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Number of chunks to return (default from config)")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	text := strings.Join(args, " ")
	results := a.kb.Search(cmd.Context(), text, queryTopK)
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"results": results})
	}
	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("%d. [chunk %d, score %.3f] %s\n", i+1, r.Index, r.Score, truncate(r.Text, 200))
	}
	return nil
}
