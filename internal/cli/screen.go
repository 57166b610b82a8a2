package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"alphafinder/internal/market"
	"alphafinder/internal/report"
	"alphafinder/internal/screener"
)

type screenOptions struct {
	market      string
	concurrency int
	policy      string
	format      string

	peMax            float64
	roeMin           float64
	dividendYieldMin float64
	revenueGrowthMin float64
}

func newScreenCommand(rt *runtime) *cobra.Command {
	opts := &screenOptions{}

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a market's universe against fundamental thresholds",
		Long: `Fetches fundamentals for every instrument in the market's universe,
concurrently, and prints those meeting every configured threshold.

Thresholds come from <market>_stock.screener in the config file; flags
override individual thresholds. Instruments whose data cannot be fetched
are reported as warnings and never abort the run.

Example:
  alphafinder screen --market us
  alphafinder screen --market tw --pe-max 12 --roe-min 10 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, rt, opts)
		},
	}

	marketFlag(cmd, &opts.market)
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "max concurrent fetches (default from config)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "filter policy: strict or inclusive (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "o", "table", "output format: table or json")
	cmd.Flags().Float64Var(&opts.peMax, "pe-max", 0, "maximum P/E")
	cmd.Flags().Float64Var(&opts.roeMin, "roe-min", 0, "minimum ROE (%)")
	cmd.Flags().Float64Var(&opts.dividendYieldMin, "dividend-yield-min", 0, "minimum dividend yield (%)")
	cmd.Flags().Float64Var(&opts.revenueGrowthMin, "revenue-growth-min", 0, "minimum revenue growth (%)")

	return cmd
}

func runScreen(cmd *cobra.Command, rt *runtime, opts *screenOptions) error {
	m, err := market.Parse(opts.market)
	if err != nil {
		return err
	}
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown output format %q (use table or json)", opts.format)
	}

	criteria := rt.cfg.Criteria(m)
	flags := cmd.Flags()
	if flags.Changed("pe-max") {
		criteria.PEMax = screener.Threshold(opts.peMax)
	}
	if flags.Changed("roe-min") {
		criteria.ROEMin = screener.Threshold(opts.roeMin)
	}
	if flags.Changed("dividend-yield-min") {
		criteria.DividendYieldMin = screener.Threshold(opts.dividendYieldMin)
	}
	if flags.Changed("revenue-growth-min") {
		criteria.RevenueGrowthMin = screener.Threshold(opts.revenueGrowthMin)
	}
	if !criteria.Active() {
		rt.log.Warn().Str("market", m.String()).Msg("No thresholds configured")
	}

	var engineOpts []screener.Option
	if flags.Changed("concurrency") {
		if opts.concurrency < 1 {
			return fmt.Errorf("--concurrency must be >= 1 (got %d)", opts.concurrency)
		}
		engineOpts = append(engineOpts, screener.WithMaxConcurrency(opts.concurrency))
	}
	if flags.Changed("policy") {
		p, err := screener.ParsePolicy(opts.policy)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, screener.WithPolicy(p))
	}
	if opts.format == "table" {
		engineOpts = append(engineOpts, screener.WithProgress(report.ProgressLine(cmd.ErrOrStderr(), m)))
	}

	res, err := rt.app.Engine(engineOpts...).Screen(cmd.Context(), m, criteria)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), res)
	}
	return report.WriteTable(cmd.OutOrStdout(), res)
}
