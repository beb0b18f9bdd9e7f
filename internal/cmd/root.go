// Package cmd implements the resumable-get command line.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/config"
	"github.com/vertextoedge/resumable-http/internal/logger"
)

// VersionInfo is set by main from build flags
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = VersionInfo{Version: "dev", Commit: "HEAD", BuildDate: "unknown"}

// SetVersionInfo records build metadata for the version command
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// app carries state shared by the subcommands of one invocation
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "resumable-get",
		Short: "Download over HTTP, resuming from the last byte after connection failures",
		Long: `resumable-get streams HTTP downloads and transparently resumes them with
Range requests when the connection breaks mid-transfer, provided the server
advertises Accept-Ranges: bytes.

Configuration is read from an optional YAML file (--config) and from
environment variables prefixed with RESUMABLE_, e.g. RESUMABLE_FETCH_CONCURRENCY.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format (json, text)")

	root.AddCommand(
		newGetCmd(a),
		newFetchCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newPruneCmd(a),
		newVersionCmd(),
	)

	return root
}

// Execute runs the command tree with ctx
func Execute(ctx context.Context) error {
	defer logger.Sync()
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.GetZapLogger()
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no config or logger needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "resumable-get %s (commit %s, built %s)\n",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
}
