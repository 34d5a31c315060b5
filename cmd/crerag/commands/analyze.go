package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var analyzeLimit int

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Filter the listings dataset in natural language",
		Long: `Filter the listings CSV (listings.csv_path in the config) by size, rent per SF
per year and 3-year GCI. With a language model configured the question is
parsed and summarized by the model; otherwise size and rent constraints are
read from the text with exclusive bounds.`,
		Example: `  crerag analyze "over 10,000 SF under $90 per SF"`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runAnalyze,
	}
	cmd.Flags().IntVarP(&analyzeLimit, "limit", "n", 10, "Maximum matches to show (0 for all)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{withListings: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.analyzer == nil {
		return fmt.Errorf("no listings dataset loaded from %s", a.cfg.Listings.CSVPath)
	}

	res := a.analyzer.Analyze(cmd.Context(), strings.Join(args, " "), analyzeLimit)
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	cmd.Printf("Interpreted as: %s\n", res.Interpretation)
	cmd.Printf("%s\n", res.Summary)
	if len(res.Matches) == 0 {
		return nil
	}
	cmd.Println()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUITE\tADDRESS\tSIZE (SF)\tRENT/SF/YR\tGCI (3Y)\tBROKER")
	for _, l := range res.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.2f\t%.0f\t%s\n", l.Suite, l.Address, l.SizeSF, l.RentPerSF, l.GCIValue, l.BrokerEmail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.TotalMatches > len(res.Matches) {
		cmd.Printf("... and %d more\n", res.TotalMatches-len(res.Matches))
	}
	return nil
}
