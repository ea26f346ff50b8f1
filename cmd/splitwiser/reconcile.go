package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute friend balances and group totals once and repair drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			report, err := reconcile.New(store, logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "friend pairs checked: %d (drifted: %d)\n", report.FriendPairs, report.FriendDrift)
			fmt.Fprintf(out, "groups checked:       %d (drifted: %d)\n", report.Groups, report.GroupDrift)
			if report.FixedCaches {
				fmt.Fprintln(out, "caches repaired")
			}
			return nil
		},
	}
}
