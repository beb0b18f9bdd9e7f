package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := requireHistory(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListDownloads(limit)
			if err != nil {
				return fmt.Errorf("list downloads: %w", err)
			}
			stats, err := store.GetHistoryStats()
			if err != nil {
				return fmt.Errorf("history stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"downloads": records,
					"stats":     stats,
				})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "STARTED\tSTATUS\tSIZE\tRESUMES\tDURATION\tURL")
			for _, r := range records {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					humanize.Time(r.StartedAt),
					r.Status,
					humanize.IBytes(uint64(max(r.BytesDownloaded, 0))),
					r.Resumes,
					r.Duration().Round(time.Millisecond),
					r.URL)
			}
			_ = w.Flush()

			_, _ = fmt.Fprintf(out, "\n%s downloads (%d done, %d failed), %s transferred, %s resumes\n",
				humanize.Comma(int64(stats.Total)), stats.Done, stats.Failed,
				humanize.IBytes(uint64(max(stats.TotalBytes, 0))), humanize.Comma(int64(stats.Resumes)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
