package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hostreport/internal/collector"
	"hostreport/internal/config"
	"hostreport/internal/handlers"
	"hostreport/internal/utils"
	"hostreport/internal/version"
)

// newCollector is swapped out in tests.
var newCollector = func(logger *utils.Logger) handlers.SnapshotCollector {
	return collector.NewHostCollector(logger)
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		tray       bool
	)
	root := &cobra.Command{
		Use:   "hostreport",
		Short: "Host memory, swap and disk report dashboard",
		Long: `hostreport samples physical memory, swap, disk and uptime of the local
machine and serves them as a web dashboard with CSV and Parquet export.

Commands:
  (default)  Run the dashboard server
  export     Write a one-shot report for a label and exit
  version    Print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if tray {
				cfg.Tray = true
			}
			return serve(cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to hostreport.yaml")
	root.Flags().BoolVar(&tray, "tray", false, "Show a system tray icon (Windows)")

	root.AddCommand(newExportCmd(&configPath), newVersionCmd())
	return root
}

func newExportCmd(configPath *string) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <label>",
		Short: "Write a one-shot report for a label and exit",
		Long: `Collect one snapshot and write it as system_report_<label>.<format>.

Example:
  hostreport export web-01
  hostreport export web-01 --format parquet --out /tmp/reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.TrimSpace(args[0])
			if label == "" {
				return fmt.Errorf("label cannot be empty")
			}
			dir := out
			if dir == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				dir = utils.NewPaths(cfg.RootPath).ExportsDir()
			}
			path, err := runExport(cmd.Context(), newCollector(nil), label, format, dir)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format (csv, parquet)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: <root>/exports)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "hostreport "+version.String())
		},
	}
}

func execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
