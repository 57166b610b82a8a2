package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"alphafinder/internal/market"
)

func newUniverseCommand(rt *runtime) *cobra.Command {
	var marketName string

	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Print a market's candidate tickers, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := market.Parse(marketName)
			if err != nil {
				return err
			}
			ids, err := rt.app.Universe().List(cmd.Context(), m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			rt.log.Info().Str("market", m.String()).Int("count", len(ids)).Msg("Universe resolved")
			return nil
		},
	}
	marketFlag(cmd, &marketName)

	return cmd
}
