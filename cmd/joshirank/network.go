package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNetworkCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Build the co-participation network and write the graph document",
		Example: `  joshirank network -i store.json --seeds 9462,10402
  JOSHIRANK_MAX_DEPTH=2 joshirank network -i store.json --year 2023`,
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
			path, err := w.WriteNetwork(ctx, res)
			if err != nil {
				return err
			}
			st := res.Network.Stats
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d links, %d components\n",
				path, st.Nodes, st.Links, st.Components)
			return err
		},
	}
}
