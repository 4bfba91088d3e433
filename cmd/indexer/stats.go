package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/persistence"
)

func newStatsCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load an index and print its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				source = a.cfg.Storage.Destination
			}
			backend, err := persistence.Open(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			idx, err := backend.Load(cmd.Context(), source)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index:     %s (%s)\n", source, a.cfg.Storage.Backend)
			fmt.Fprintf(out, "terms:     %d\n", idx.TermCount())
			fmt.Fprintf(out, "documents: %d\n", idx.DocCount())
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "index", "i", "", "index source: file path, or index name for sql/redis")
	return cmd
}
