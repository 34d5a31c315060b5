package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPortfolioCmd creates the portfolio command.
func NewPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show listings dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{withListings: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.analyzer == nil {
				return fmt.Errorf("no listings dataset loaded from %s", a.cfg.Listings.CSVPath)
			}

			st := a.analyzer.Stats()
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			cmd.Printf("Properties:   %d\n", st.TotalProperties)
			cmd.Printf("Average size: %.0f SF (%.0f to %.0f)\n", st.AvgSizeSF, st.SizeRange.Min, st.SizeRange.Max)
			cmd.Printf("Average rent: $%.2f/SF/year ($%.2f to $%.2f)\n", st.AvgRentPerSF, st.RentRange.Min, st.RentRange.Max)
			cmd.Printf("Average GCI:  $%.2f over 3 years\n", st.AvgGCI3Years)
			return nil
		},
	}
}
