package main

import (
	"bytes"
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/output"
)

var errPassFailed = errors.New("sync pass finished with errors")

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	Long: `Reconcile free play and install stale packages once, then print the
pass report. Exits non-zero if anything failed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which packages a sync would download",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(planCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	app, err := newAgentApp(cfg, true)
	if err != nil {
		return err
	}

	report := app.orchestrator.RunPass(context.Background())
	if err := render(func(f output.Formatter, buf *bytes.Buffer) error {
		return f.Report(buf, report)
	}); err != nil {
		return err
	}
	if !report.OK() {
		return errPassFailed
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	app, err := newAgentApp(cfg, false)
	if err != nil {
		return err
	}

	items, err := app.orchestrator.Plan(context.Background())
	if err != nil {
		return err
	}
	return render(func(f output.Formatter, buf *bytes.Buffer) error {
		return f.Plan(buf, items)
	})
}
