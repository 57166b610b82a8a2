// Package cli implements the alphafinder command line.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alphafinder/internal/app"
	"alphafinder/internal/config"
	"alphafinder/internal/logger"
)

// runtime is populated by the root PersistentPreRunE and shared by every
// subcommand of one invocation.
type runtime struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
	app    *app.App
}

// newRootCommand builds the alphafinder command tree around rt.
func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "alphafinder",
		Short: "Equity fundamentals screener for US and Taiwan markets",
		Long: `alphafinder screens a market's stock universe against fundamental
thresholds (P/E, ROE, dividend yield, revenue growth).

Universes:
  us  - S&P 500 constituents (Wikipedia), fundamentals from Yahoo Finance
  tw  - TWSE/TPEx common stocks, fundamentals from FinMind

Example:
  alphafinder screen --market us
  alphafinder screen --market tw --pe-max 12 --dividend-yield-min 4
  alphafinder universe --market tw`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newScreenCommand(rt))
	root.AddCommand(newUniverseCommand(rt))
	root.AddCommand(newQuoteCommand(rt))

	return root
}

// Execute runs the command tree with ctx and args. The log file opened for
// the run is closed on return, also when the command fails.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return execute(ctx, &runtime{}, args, stdout, stderr)
}

func execute(ctx context.Context, rt *runtime, args []string, stdout, stderr io.Writer) (err error) {
	defer func() {
		if cerr := rt.close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err = root.ExecuteContext(ctx)
	if err != nil && rt.closer != nil {
		rt.log.Error().Err(err).Msg("Command failed")
	}
	return err
}

// close releases the log file, if init opened one.
func (rt *runtime) close() error {
	if rt.closer == nil {
		return nil
	}
	err := rt.closer.Close()
	rt.closer = nil
	return err
}

func (rt *runtime) init(cmd *cobra.Command) error {
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	if rt.logLevel != "" {
		cfg.Log.Level = rt.logLevel
	}

	log, closer, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return errors.Join(err, closer.Close())
	}

	rt.cfg = cfg
	rt.log = log
	rt.closer = closer
	rt.app = a
	return nil
}

func marketFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "market", "m", "", "market to use: us or tw")
	_ = cmd.MarkFlagRequired("market")
}
