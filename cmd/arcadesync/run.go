package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/agent"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent until interrupted",
	Long: `Keep the configured process running and synchronize with the server.

On start the agent launches the process if needed and runs one sync pass.
Afterwards it checks the process every process_check_interval and syncs
every update_check_interval.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, true); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	app, err := newAgentApp(cfg, true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Get("agent").Info("starting",
		"version", version,
		"server", cfg.ServerURL,
		"process", cfg.TargetProcess,
		"target_dir", cfg.UpdateTargetDir,
		"config", cfg.Source)

	runner := agent.NewRunner(app.orchestrator, app.supervisor, cfg.ProcessCheckInterval, cfg.UpdateCheckInterval, nil)
	return runner.Run(ctx)
}
