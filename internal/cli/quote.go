package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"alphafinder/internal/market"
	"alphafinder/internal/report"
	"alphafinder/internal/screener"
)

func newQuoteCommand(rt *runtime) *cobra.Command {
	var marketName string

	cmd := &cobra.Command{
		Use:   "quote TICKER",
		Short: "Print the fundamentals of a single instrument",
		Example: `  alphafinder quote --market us AAPL
  alphafinder quote --market tw 2330`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := market.Parse(marketName)
			if err != nil {
				return err
			}
			p, err := rt.app.Provider(m)
			if err != nil {
				return err
			}

			ticker := strings.TrimSpace(args[0])
			f, err := p.FetchFundamentals(cmd.Context(), ticker)
			if err != nil {
				return err
			}
			return report.WriteFundamentals(cmd.OutOrStdout(), ticker, f, screener.Columns(m))
		},
	}
	marketFlag(cmd, &marketName)

	return cmd
}
