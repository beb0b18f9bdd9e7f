package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/service/maintenance"
	"github.com/vertextoedge/resumable-http/internal/service/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		root      string
		addr      string
		failAfter int64
		noRanges  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory over HTTP with optional fault injection",
		Long: `Serve files below --root at /files/<path> with byte-range support.

--fail-after N closes every file response after N body bytes, which makes
clients resume repeatedly. --no-ranges removes range support so clients cannot
resume at all.

Examples:
  resumable-get serve --root ./testdata --fail-after 1048576
  resumable-get get http://127.0.0.1:8080/files/big.bin -o big.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("root") {
				a.cfg.Server.RootDir = root
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.BindAddr = addr
			}
			if cmd.Flags().Changed("fail-after") {
				a.cfg.Server.FailAfterBytes = failAfter
			}
			if cmd.Flags().Changed("no-ranges") {
				a.cfg.Server.DisableRanges = noRanges
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

			srv := server.New(&server.Config{
				BindAddr:       a.cfg.Server.BindAddr,
				RootDir:        a.cfg.Server.RootDir,
				FailAfterBytes: a.cfg.Server.FailAfterBytes,
				DisableRanges:  a.cfg.Server.DisableRanges,
				DebugUsername:  a.cfg.Server.DebugUsername,
				DebugPassword:  a.cfg.Server.DebugPassword,
				ReadTimeout:    a.cfg.Server.GetReadTimeout(),
				WriteTimeout:   a.cfg.Server.GetWriteTimeout(),
				IdleTimeout:    a.cfg.Server.GetIdleTimeout(),
			}, downloads, a.logger)

			if downloads != nil {
				maint := maintenance.New(&maintenance.Config{
					CleanupInterval: a.cfg.Maintenance.GetCleanupInterval(),
					HistoryMaxAge:   a.cfg.Maintenance.GetHistoryMaxAge(),
					TempFileMaxAge:  a.cfg.Maintenance.GetTempFileMaxAge(),
				}, downloads, nil, a.logger)
				go func() {
					if err := maint.Start(cmd.Context()); err != nil {
						a.logger.Error("maintenance service error", zap.Error(err))
					}
				}()
				defer maint.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info("shutdown signal received, stopping server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Error("failed to stop HTTP server gracefully", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Directory to serve")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().Int64Var(&failAfter, "fail-after", 0, "Close each file response after this many bytes (0 disables)")
	cmd.Flags().BoolVar(&noRanges, "no-ranges", false, "Disable byte-range support")

	return cmd
}
