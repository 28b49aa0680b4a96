package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webcache-io/webcache/internal/web"
)

func newOpenCmd() *cobra.Command {
	var (
		mode         string
		forceRefresh bool
		raw          bool
	)
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Fetches one URL through the snapshot cache",
		Long: `Fetches a single URL, serving from the local snapshot store when a
cached copy exists. The snapshot is printed as JSON; use --raw to print
the stored markdown or raw body instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.service.Open(cmd.Context(), web.OpenRequest{
				URL:          args[0],
				Mode:         web.Mode(mode),
				ForceRefresh: forceRefresh,
			})
			if err != nil {
				return err
			}

			if raw {
				snap := result.Snapshot
				if snap.Markdown != nil {
					fmt.Fprintln(os.Stdout, *snap.Markdown)
					return nil
				}
				_, werr := os.Stdout.Write(snap.RawBytes)
				return werr
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"outcome":  string(result.Outcome),
				"snapshot": result.Snapshot,
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "snapshot mode: raw or readable (default readable)")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the cache read and refetch")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the content instead of the snapshot JSON")
	return cmd
}
