package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage arcadesync configuration.

The agent configuration is loaded from the --config file, or agent.yaml in:
  1. $XDG_CONFIG_HOME/arcadesync/ (or ~/.config/arcadesync/)
  2. the working directory

JSON files from earlier releases (ServerUrl, TargetProcess, ...) are accepted.
Environment variables override file settings with the ARCADESYNC_ prefix:
  ARCADESYNC_SERVER_URL=http://10.0.0.2:5000
  ARCADESYNC_OVERRIDE_FREE_PLAY=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective agent configuration",
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the agent configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by $VISUAL, then $EDITOR, then vi (notepad on Windows).
If the config file doesn't exist, a default one is created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file path",
	RunE:  runConfigPath,
}

var initServer bool

func init() {
	configInitCmd.Flags().BoolVar(&initServer, "server", false, "write server.yaml for arcadesyncd instead")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAgent(cfgFile)
	if err != nil {
		return err
	}

	if cfg.Source != "" {
		fmt.Printf("Config file: %s\n\n", cfg.Source)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	override := "unset"
	if cfg.OverrideFreePlay != nil {
		override = fmt.Sprint(*cfg.OverrideFreePlay)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("server_url:             %s\n", cfg.ServerURL)
	fmt.Printf("target_process:         %s\n", cfg.TargetProcess)
	fmt.Printf("launch_command:         %s\n", cfg.LaunchCommand)
	fmt.Printf("update_target_dir:      %s\n", cfg.UpdateTargetDir)
	fmt.Printf("local_config_path:      %s\n", cfg.LocalConfigPath)
	fmt.Printf("override_free_play:     %s\n", override)
	fmt.Printf("process_check_interval: %s\n", cfg.ProcessCheckInterval)
	fmt.Printf("update_check_interval:  %s\n", cfg.UpdateCheckInterval)
	fmt.Printf("http_timeout:           %s\n", cfg.HTTPTimeout)
	fmt.Printf("min_launch_interval:    %s\n", cfg.MinLaunchInterval.Round(time.Millisecond))
	fmt.Printf("history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:           %s\n", cfg.History.Path)
	fmt.Printf("logging.level:          %s\n", cfg.Logging.Level)
	if marker := cfg.MarkerPath(); marker != "" {
		fmt.Printf("\nFree play marker:       %s\n", marker)
	}

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"ARCADESYNC_SERVER_URL",
		"ARCADESYNC_TARGET_PROCESS",
		"ARCADESYNC_LAUNCH_COMMAND",
		"ARCADESYNC_UPDATE_TARGET_DIR",
		"ARCADESYNC_LOCAL_CONFIG_PATH",
		"ARCADESYNC_OVERRIDE_FREE_PLAY",
		"ARCADESYNC_PROCESS_CHECK_INTERVAL",
		"ARCADESYNC_UPDATE_CHECK_INTERVAL",
		"ARCADESYNC_HTTP_TIMEOUT",
		"ARCADESYNC_LOGGING_LEVEL",
	}
	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\nWarning: %v\n", err)
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.WriteDefault(config.AgentConfigName); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
		if runtime.GOOS == "windows" {
			editor = "notepad"
		}
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	name := config.AgentConfigName
	if initServer {
		name = config.ServerConfigName
	}

	path, err := config.DefaultConfigPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		return nil
	}

	if _, err := config.WriteDefault(name); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		fmt.Println(cfgFile)
		return nil
	}
	path, err := config.DefaultConfigPath(config.AgentConfigName)
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Println(path)
	return nil
}
