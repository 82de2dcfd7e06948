package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// ErrInvalid is returned by Validate for unusable configuration values.
var ErrInvalid = errors.New("invalid configuration")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    bool              `mapstructure:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the sync pass history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AgentConfig is the configuration of the cabinet-side agent.
type AgentConfig struct {
	ServerURL       string `mapstructure:"server_url"`
	TargetProcess   string `mapstructure:"target_process"`
	LaunchCommand   string `mapstructure:"launch_command"`
	UpdateTargetDir string `mapstructure:"update_target_dir"`
	LocalConfigPath string `mapstructure:"local_config_path"`

	// OverrideFreePlay is used when the server has no free play value.
	// Nil means no override: mode reconciliation is skipped in that case.
	OverrideFreePlay *bool `mapstructure:"-"`

	ProcessCheckInterval time.Duration `mapstructure:"process_check_interval"`
	UpdateCheckInterval  time.Duration `mapstructure:"update_check_interval"`
	HTTPTimeout          time.Duration `mapstructure:"http_timeout"`
	MinLaunchInterval    time.Duration `mapstructure:"min_launch_interval"`

	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Source is the file the configuration was read from, empty when only
	// defaults and environment were used.
	Source string `mapstructure:"-"`
}

// MarkerPath returns the location of the last applied free play marker,
// or "" when no local config path is configured.
func (c *AgentConfig) MarkerPath() string {
	if c.LocalConfigPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(c.LocalConfigPath), MarkerFileName)
}

// Validate checks the values the agent cannot run without.
func (c *AgentConfig) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("%w: server_url is empty", ErrInvalid)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server_url %q is not an http(s) URL", ErrInvalid, c.ServerURL)
	}
	if c.ProcessCheckInterval <= 0 {
		return fmt.Errorf("%w: process_check_interval must be positive", ErrInvalid)
	}
	if c.UpdateCheckInterval <= 0 {
		return fmt.Errorf("%w: update_check_interval must be positive", ErrInvalid)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalid)
	}
	if c.MinLaunchInterval < 0 {
		return fmt.Errorf("%w: min_launch_interval cannot be negative", ErrInvalid)
	}
	return nil
}

// ServerConfig is the configuration of the distribution server.
type ServerConfig struct {
	UpdatesFolder  string `mapstructure:"updates_folder"`
	ConfigFolder   string `mapstructure:"config_folder"`
	ConfigFileName string `mapstructure:"config_file_name"`
	ListenHost     string `mapstructure:"listen_host"`
	Port           int    `mapstructure:"port"`
	PackageExt     string `mapstructure:"package_ext"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	Watch          bool   `mapstructure:"watch"`
	PIDPath        string `mapstructure:"pid_path"`

	Logging LoggingConfig `mapstructure:"logging"`

	// Source is the file the configuration was read from.
	Source string `mapstructure:"-"`
}

// Addr returns the listen address. An empty host listens on all interfaces.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.Port))
}

// ConfigFilePath returns the path of the distributed configuration blob.
func (c *ServerConfig) ConfigFilePath() string {
	return filepath.Join(c.ConfigFolder, c.ConfigFileName)
}

// FlagFilePath returns the path of the persisted free play flag.
func (c *ServerConfig) FlagFilePath() string {
	return filepath.Join(c.ConfigFolder, FlagFileName)
}

// Validate checks the values the server cannot run without.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.UpdatesFolder) == "" {
		return fmt.Errorf("%w: updates_folder is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.ConfigFolder) == "" {
		return fmt.Errorf("%w: config_folder is empty", ErrInvalid)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	return nil
}

// LoadAgent loads the agent configuration.
// When path is empty the file is searched as agent.yaml in:
//   - $XDG_CONFIG_HOME/arcadesync/ (or $HOME/.config/arcadesync/)
//   - the working directory
//
// Environment variables are prefixed with ARCADESYNC_ (e.g., ARCADESYNC_SERVER_URL).
func LoadAgent(path string) (*AgentConfig, error) {
	v, err := newViper(AgentConfigName, path)
	if err != nil {
		return nil, err
	}

	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("target_process", DefaultTargetProcess)
	v.SetDefault("launch_command", "")
	v.SetDefault("update_target_dir", "")
	v.SetDefault("local_config_path", "")
	v.SetDefault("process_check_interval", DefaultProcessCheckInterval)
	v.SetDefault("update_check_interval", DefaultUpdateCheckInterval)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("min_launch_interval", DefaultMinLaunchInterval)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	setLoggingDefaults(v, map[string]string{
		"agent":     "info",
		"sync":      "info",
		"mode":      "info",
		"procwatch": "info",
		"client":    "warn",
		"history":   "warn",
	})

	if err := readConfig(v); err != nil {
		return nil, err
	}
	applyLegacyKeys(v, legacyAgentKeys)

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	override, err := triState(v, "override_free_play")
	if err != nil {
		return nil, err
	}
	cfg.OverrideFreePlay = override
	cfg.Source = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.UpdateTargetDir, &cfg.LocalConfigPath, &cfg.History.Path, &cfg.Logging.Path} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}

	return &cfg, nil
}

// LoadServer loads the server configuration, searched as server.yaml in the
// same locations as LoadAgent.
func LoadServer(path string) (*ServerConfig, error) {
	v, err := newViper(ServerConfigName, path)
	if err != nil {
		return nil, err
	}

	v.SetDefault("updates_folder", DefaultUpdatesFolder)
	v.SetDefault("config_folder", DefaultConfigFolder)
	v.SetDefault("config_file_name", DefaultConfigFileName)
	v.SetDefault("listen_host", "")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("package_ext", DefaultPackageExt)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("watch", true)
	v.SetDefault("pid_path", "")
	setLoggingDefaults(v, map[string]string{
		"server":  "info",
		"watcher": "info",
	})

	if err := readConfig(v); err != nil {
		return nil, err
	}
	applyLegacyKeys(v, legacyServerKeys)

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.PackageExt != "" && !strings.HasPrefix(cfg.PackageExt, ".") {
		cfg.PackageExt = "." + cfg.PackageExt
	}
	if cfg.PIDPath == "" {
		cfg.PIDPath = DefaultPIDPath()
	}
	cfg.Source = v.ConfigFileUsed()

	return &cfg, nil
}

func newViper(name, path string) (*viper.Viper, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")

		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ARCADESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

func setLoggingDefaults(v *viper.Viper, components map[string]string) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", components)
}

// readConfig reads the config file. A missing file is not an error unless it
// was named explicitly.
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// legacyKey maps a key of the JSON config files written by earlier releases
// (PascalCase names, intervals in whole seconds) onto the current key.
type legacyKey struct {
	from    string
	to      string
	seconds bool
}

var legacyAgentKeys = []legacyKey{
	{from: "serverurl", to: "server_url"},
	{from: "targetprocess", to: "target_process"},
	{from: "launchcommand", to: "launch_command"},
	{from: "updatetargetdir", to: "update_target_dir"},
	{from: "localconfigpath", to: "local_config_path"},
	{from: "overridefreeplay", to: "override_free_play"},
	{from: "processcheckintervalseconds", to: "process_check_interval", seconds: true},
	{from: "updatecheckintervalseconds", to: "update_check_interval", seconds: true},
}

var legacyServerKeys = []legacyKey{
	{from: "updatesfolder", to: "updates_folder"},
	{from: "configfolder", to: "config_folder"},
	{from: "configfilename", to: "config_file_name"},
	{from: "listenhost", to: "listen_host"},
}

func applyLegacyKeys(v *viper.Viper, keys []legacyKey) {
	for _, k := range keys {
		if !v.InConfig(k.from) || v.InConfig(k.to) {
			continue
		}
		if k.seconds {
			v.Set(k.to, time.Duration(v.GetInt(k.from))*time.Second)
			continue
		}
		v.Set(k.to, v.Get(k.from))
	}
}

// triState reads an optional boolean. Unset, null and empty values yield nil.
func triState(v *viper.Viper, key string) (*bool, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	raw := v.Get(key)
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(fmt.Sprint(raw))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false, got %q", ErrInvalid, key, s)
	}
	return &b, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "arcadesync"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "arcadesync"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/arcadesync/ for the history database and pid file.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "arcadesync")
}

// StateDir returns $XDG_STATE_HOME/arcadesync/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "arcadesync")
}

// DefaultHistoryPath returns the default pass history database path.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultPIDPath returns the default server PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "arcadesyncd.pid")
}

// DefaultLogPath returns the default log file path for a binary.
func DefaultLogPath(binary string) string {
	return filepath.Join(StateDir(), binary+".log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
