package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd() *cobra.Command {
	var (
		domain     string
		maxEntries int64
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Removes snapshots from the local store",
		Long: `Removes snapshots by one of three strategies: expired entries
(default), entries whose URL contains --domain, or the oldest entries
beyond --max-entries.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			var purged int64
			switch {
			case domain != "" && maxEntries > 0:
				return fmt.Errorf("--domain and --max-entries are mutually exclusive")
			case domain != "":
				purged, err = e.db.PurgeSnapshotsByDomain(ctx, domain)
			case maxEntries > 0:
				purged, err = e.db.PurgeLRUSnapshots(ctx, maxEntries)
			default:
				purged, err = e.db.PurgeExpiredSnapshots(ctx)
			}
			if err != nil {
				return err
			}

			if _, err := e.db.PurgeExpiredSearch(ctx); err != nil {
				e.logger.Warn("purge expired search entries failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d snapshots\n", purged)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "purge snapshots whose URL contains this substring")
	cmd.Flags().Int64Var(&maxEntries, "max-entries", 0, "purge oldest snapshots beyond this count")
	return cmd
}
