package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vertextoedge/resumable-http/internal/adapter/filesystem"
	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/service/maintenance"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		dir           string
		historyMaxAge time.Duration
		tempMaxAge    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove abandoned temp files and old history records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("dir") {
				a.cfg.Fetch.OutputDir = dir
			}

			mcfg := &maintenance.Config{
				CleanupInterval: a.cfg.Maintenance.GetCleanupInterval(),
				HistoryMaxAge:   a.cfg.Maintenance.GetHistoryMaxAge(),
				TempFileMaxAge:  a.cfg.Maintenance.GetTempFileMaxAge(),
			}
			if cmd.Flags().Changed("history-max-age") {
				mcfg.HistoryMaxAge = historyMaxAge
			}
			if cmd.Flags().Changed("temp-max-age") {
				mcfg.TempFileMaxAge = tempMaxAge
			}

			fs, err := filesystem.NewManager(a.cfg.Fetch.OutputDir)
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

			report, err := maintenance.New(mcfg, downloads, fs, a.logger).RunOnce(cmd.Context())
			if report != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d temp file(s), pruned %d history record(s)\n",
					report.TempFilesRemoved, report.RecordsPruned)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory to clean")
	cmd.Flags().DurationVar(&historyMaxAge, "history-max-age", 0, "Remove finished records older than this")
	cmd.Flags().DurationVar(&tempMaxAge, "temp-max-age", 0, "Remove temp files older than this")

	return cmd
}
