// Package main provides arcadesyncd, the update distribution server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/server"
)

// Build-time variables set by the stavefile via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "arcadesyncd",
	Short: "Serve update packages and fleet settings to arcadesync agents",
	Long: `arcadesyncd publishes the packages in updates_folder, the shared game
configuration and the fleet-wide free play flag over HTTP.

Endpoints:
  GET  /api/updates/manifest
  GET  /api/updates/download/{name}
  GET  /api/config/download
  GET  /api/config/freeplay
  POST /api/config/freeplay`,
	Args:          cobra.NoArgs,
	RunE:          runServer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arcadesyncd %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
		fmt.Printf("  go:      %s\n", runtime.Version())
		fmt.Printf("  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/arcadesync/server.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only log errors to the console")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lc, err := logging.FromSettings(cfg.Logging, config.DefaultLogPath("arcadesyncd"))
	if err != nil {
		return err
	}
	switch {
	case verbose:
		lc.Level = "debug"
		lc.Components = nil
		lc.ConsoleLevel = "debug"
	case quiet:
		lc.ConsoleLevel = "error"
	case lc.ConsoleLevel == "":
		lc.ConsoleLevel = "info"
	}
	if err := logging.Init(lc); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("server")

	if err := server.RecoverStale(cfg.PIDPath); err != nil {
		return err
	}

	srv, err := server.New(cfg, afero.NewOsFs())
	if err != nil {
		return err
	}

	if err := server.WritePIDFile(cfg.PIDPath); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer func() {
		if err := server.RemovePIDFile(cfg.PIDPath); err != nil {
			log.Warn("failed to remove pid file", "path", cfg.PIDPath, "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		"version", version,
		"addr", cfg.Addr(),
		"updates", cfg.UpdatesFolder,
		"config", cfg.ConfigFilePath(),
		"metrics", cfg.MetricsAddr,
		"source", cfg.Source)

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}
