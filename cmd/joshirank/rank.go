package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/pkg/logger"
)

func newRankCmd(f *flags) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rate wrestlers and write the ratings and attribution documents",
		Example: `  joshirank rank -i store.json
  joshirank rank -i store.yaml --year 2023 --format yaml --top 25`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(cmd, f)
			if err != nil {
				return err
			}
			w, err := newWriter(cfg)
			if err != nil {
				return err
			}
			svc, err := newService(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res, err := svc.Load(ctx, cfg.InputPath)
			if err != nil {
				return err
			}
			if _, err := w.WriteRatings(ctx, res); err != nil {
				return err
			}
			if _, err := w.WriteAttribution(ctx, res); err != nil {
				return err
			}
			logger.Get().Info(ctx, "ranking complete",
				logger.String("run_id", res.RunID),
				logger.Int("ranked", len(res.Leaderboard)),
				logger.Int("warnings", len(res.Warnings)),
			)
			return printLeaderboard(cmd.OutOrStdout(), res, top)
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "leaderboard rows to print, 0 for none")
	return cmd
}

func printLeaderboard(out io.Writer, res *service.Result, top int) error {
	if top <= 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tWRESTLER\tNAME\tRATING\tRD\tW-L-D")
	for i, e := range res.Leaderboard {
		if i == top {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%s\n",
			e.Rank, e.WrestlerID, e.Name, e.Rating, e.Deviation, e.Record)
	}
	return tw.Flush()
}
