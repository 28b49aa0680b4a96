package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/webcache-io/webcache/internal/web"
)

func newBatchCmd() *cobra.Command {
	var (
		mode         string
		concurrency  int
		failFast     bool
		forceRefresh bool
	)
	cmd := &cobra.Command{
		Use:   "batch <url>...",
		Short: "Fetches many URLs concurrently through the snapshot cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if concurrency <= 0 {
				concurrency = e.cfg.Batch.MaxConcurrency
			}
			result, err := e.service.Batch(cmd.Context(), web.BatchRequest{
				URLs:           args,
				Mode:           web.Mode(mode),
				MaxConcurrency: concurrency,
				FailFast:       failFast,
				ForceRefresh:   forceRefresh,
			})
			if err != nil {
				return err
			}

			type itemView struct {
				URL     string `json:"url"`
				Status  string `json:"status"`
				Error   string `json:"error,omitempty"`
				Hash    string `json:"hash,omitempty"`
				Fetched string `json:"fetched_at,omitempty"`
			}
			items := make([]itemView, 0, len(result.Items))
			for _, item := range result.Items {
				iv := itemView{URL: item.URL, Status: string(item.Status), Error: item.ErrorMsg}
				if item.Result != nil && item.Result.Snapshot != nil {
					iv.Hash = item.Result.Snapshot.Hash
					iv.Fetched = item.Result.Snapshot.FetchedAt
				}
				items = append(items, iv)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"items":   items,
				"summary": result.Summary,
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "snapshot mode: raw or readable (default readable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max concurrent fetches (default from config)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "cancel remaining fetches on first failure")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass cache reads and refetch every URL")
	return cmd
}
