// Command joshirank rates wrestlers from a match store document, attributes
// their matches to promotions and builds their co-participation network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/joshirank/internal/config"
	"github.com/okian/joshirank/pkg/logger"
)

// flags override the loaded configuration when set on the command line.
type flags struct {
	input  string
	output string
	format string
	year   int
	seeds  []string
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:   "joshirank",
		Short: "Glicko-2 ratings, promotion attribution and networks for wrestlers",
		Long: `joshirank loads a JSON or YAML match store document and produces a
ratings table, a promotion attribution summary with classification, and the
co-participation network grown from a set of seed wrestlers.

Configuration is read from defaults, then the YAML file named by
JOSHIRANK_CONFIG, then JOSHIRANK_* environment variables, then flags.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.input, "input", "i", "", "store document (overrides input_path)")
	pf.StringVarP(&f.output, "out", "o", "", "output directory (overrides output_dir)")
	pf.StringVar(&f.format, "format", "", "output format: json or yaml (overrides output_format)")
	pf.IntVar(&f.year, "year", 0, "restrict the run to one year, 0 for all (overrides year)")
	pf.StringSliceVar(&f.seeds, "seeds", nil, "network seed wrestler IDs (overrides seeds)")

	root.AddCommand(newRankCmd(&f), newNetworkCmd(&f), newServeCmd(&f))
	return root
}

// setup loads configuration, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	pf := cmd.Flags()
	if pf.Changed("input") {
		cfg.InputPath = f.input
	}
	if pf.Changed("out") {
		cfg.OutputDir = f.output
	}
	if pf.Changed("format") {
		cfg.OutputFormat = f.format
	}
	if pf.Changed("year") {
		cfg.Year = f.year
	}
	if pf.Changed("seeds") {
		cfg.Seeds = f.seeds
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("%w: input_path is required", config.ErrInvalidConfig)
	}

	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithJSON(cfg.LogJSON)); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func main() {
	// Config errors surface before setup replaces this handler.
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
