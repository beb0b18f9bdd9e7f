package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vertextoedge/resumable-http/internal/adapter/filesystem"
	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/service/fetcher"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		dir         string
		concurrency int
		overwrite   bool
		headers     []string
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Download several URLs into a directory concurrently",
		Long: `Download each URL into --dir, named after the last path segment. Downloads
run concurrently and each one resumes independently. When database.path is
configured every download is recorded in the history.

Examples:
  resumable-get fetch --dir ./out https://example.com/a.iso https://example.com/b.iso`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				a.cfg.Fetch.OutputDir = dir
			}
			if cmd.Flags().Changed("concurrency") {
				if concurrency < 1 {
					return fmt.Errorf("--concurrency must be positive")
				}
				a.cfg.Fetch.Concurrency = concurrency
			}
			if cmd.Flags().Changed("overwrite") {
				a.cfg.Fetch.Overwrite = overwrite
			}

			fs, err := filesystem.NewManagerWithBufferSize(a.cfg.Fetch.OutputDir, a.cfg.Fetch.GetBufferSize())
			if err != nil {
				return err
			}

			store, err := openHistory(a.cfg)
			if err != nil {
				return err
			}
			var downloads port.DownloadRepository
			if store != nil {
				defer store.Close()
				downloads = store
			}

			space := fetcher.NewSpaceManager(fs, a.cfg.Fetch.GetReserveBytes(), float64(a.cfg.Fetch.MaxDiskUsagePercent))

			f := fetcher.New(&fetcher.Config{
				Concurrency:      a.cfg.Fetch.Concurrency,
				ProgressInterval: a.cfg.Fetch.GetProgressInterval(),
				Overwrite:        a.cfg.Fetch.Overwrite,
			}, newClient(a.cfg, a.logger), fs, downloads, space, a.logger)

			jobs := make([]fetcher.Job, 0, len(args))
			for _, u := range args {
				jobs = append(jobs, fetcher.Job{URL: u, Header: header})
			}

			results := f.FetchAll(cmd.Context(), jobs)

			failed := 0
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "URL\tSTATUS\tSIZE\tRESUMES\tPATH")
			for _, r := range results {
				status := "ok"
				if r.Err != nil {
					status = "failed: " + r.Err.Error()
					failed++
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.URL, status, humanize.IBytes(uint64(r.BytesWritten)), r.Resumes, r.Path)
			}
			_ = w.Flush()

			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of concurrent downloads")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header \"Key: Value\" (repeatable)")

	return cmd
}
