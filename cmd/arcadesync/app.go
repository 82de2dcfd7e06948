package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/jamesainslie/arcadesync/pkg/agent"
	"github.com/jamesainslie/arcadesync/pkg/agent/history"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/output"
	"github.com/jamesainslie/arcadesync/pkg/client"
	"github.com/jamesainslie/arcadesync/pkg/procwatch"
)

// agentApp holds the wired agent components.
type agentApp struct {
	cfg          *config.AgentConfig
	client       *client.Client
	supervisor   *procwatch.Supervisor
	marker       *agent.FileMarker
	orchestrator *agent.Orchestrator
}

// loadConfig loads and validates the agent configuration, applying --server.
func loadConfig() (*config.AgentConfig, error) {
	cfg, err := config.LoadAgent(cfgFile)
	if err != nil {
		return nil, err
	}
	if server := viper.GetString("server"); server != "" {
		cfg.ServerURL = server
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging starts logging. Long-running commands mirror info to the
// console; one-shot commands only show warnings.
func initLogging(cfg *config.AgentConfig, longRunning bool) error {
	lc, err := logging.FromSettings(cfg.Logging, config.DefaultLogPath("arcadesync"))
	if err != nil {
		return err
	}

	switch {
	case getVerbose():
		lc.Level = "debug"
		lc.Components = nil
		lc.ConsoleLevel = "debug"
	case getQuiet():
		lc.ConsoleLevel = "error"
	case lc.ConsoleLevel == "" && longRunning:
		lc.ConsoleLevel = "info"
	case lc.ConsoleLevel == "":
		lc.ConsoleLevel = "warn"
	}

	return logging.Init(lc)
}

// newAgentApp wires the agent from cfg. Pass history is recorded when record
// is true and history is enabled.
func newAgentApp(cfg *config.AgentConfig, record bool) (*agentApp, error) {
	c, err := client.New(cfg.ServerURL, client.WithTimeout(cfg.HTTPTimeout), client.WithUserAgent(userAgent()))
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	app := &agentApp{
		cfg:        cfg,
		client:     c,
		supervisor: procwatch.New(cfg.TargetProcess, cfg.LaunchCommand, cfg.MinLaunchInterval),
	}

	var reconciler *agent.Reconciler
	if cfg.LocalConfigPath != "" {
		app.marker = agent.NewFileMarker(fs, cfg.MarkerPath())
		reconciler = agent.NewReconciler(c, fs, cfg.LocalConfigPath, cfg.OverrideFreePlay, app.marker, app.supervisor)
	} else {
		logging.Get("agent").Warn("local_config_path not set, free play reconciliation disabled")
	}

	var opts []agent.OrchestratorOption
	if record && cfg.History.Enabled {
		if err := os.MkdirAll(cfg.History.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		opts = append(opts, agent.WithRecorder(history.Recorder{Dir: cfg.History.Path, Keep: history.DefaultKeep}))
	}

	app.orchestrator = agent.NewOrchestrator(
		c,
		agent.NewPlanner(fs, cfg.UpdateTargetDir),
		agent.NewApplier(fs, cfg.UpdateTargetDir, c),
		reconciler,
		opts...,
	)
	return app, nil
}

// render formats a result with the --output formatter and prints it.
func render(fn func(output.Formatter, *bytes.Buffer) error) error {
	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	var buf bytes.Buffer
	if err := fn(formatter, &buf); err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}
