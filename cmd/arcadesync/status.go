package main

import (
	"bytes"
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/agent"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/output"
)

const statusTimeout = 10 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server reachability, process state and installed packages",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	st := &output.Status{
		ServerURL: app.client.BaseURL(),
		Process:   cfg.TargetProcess,
		TargetDir: cfg.UpdateTargetDir,
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	if err := app.client.Ping(ctx); err != nil {
		st.ServerError = err.Error()
	} else {
		st.ServerReachable = true
		if v, present, err := app.client.FreePlay(ctx); err == nil && present {
			st.RemoteFreePlay = &v
		}
	}

	if running, err := app.supervisor.IsRunning(); err == nil {
		st.ProcessRunning = running
	} else {
		logging.Get("procwatch").Warn("listing processes failed", "error", err)
	}

	if app.marker != nil {
		st.MarkerPath = app.marker.Path()
		if v, err := app.marker.Load(); err == nil {
			st.Marker = v
		}
	}

	st.Packages, err = agent.Inventory(cfg.UpdateTargetDir)
	if err != nil {
		return err
	}

	return render(func(f output.Formatter, buf *bytes.Buffer) error {
		return f.Status(buf, st)
	})
}
