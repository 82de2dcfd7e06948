package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const agentTemplate = `# arcadesync agent configuration

# Distribution server base URL
server_url: %s

# Monitored application: process name and the command that starts it
target_process: %s
launch_command: ""

# Directory that receives downloaded packages and their extracted folders
update_target_dir: ""

# Local copy of the distributed config file. The free play directive in it is
# rewritten on every sync pass. Leave empty to disable mode reconciliation.
local_config_path: ""

# Free play value used when the server has none set (true, false, or leave
# commented out for no override)
# override_free_play: false

# Loop intervals
process_check_interval: %s
update_check_interval: %s
http_timeout: %s
min_launch_interval: %s

# Sync pass history
history:
  enabled: true
  # Empty means $XDG_DATA_HOME/arcadesync/history
  path: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/arcadesync/arcadesync.log)
  path: ""
  # Mirror log lines to stderr
  console: true
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    agent: info
    sync: info
    mode: info
    procwatch: info
    client: warn
    history: warn
`

const serverTemplate = `# arcadesync distribution server configuration

# Folder scanned for packages on every manifest request
updates_folder: %s
# Extension of package files in updates_folder
package_ext: %s

# Folder holding the distributed config file and the free play flag
config_folder: %s
config_file_name: %s

# Listen address (empty host listens on all interfaces)
listen_host: ""
port: %d

# Prometheus metrics listener, e.g. ":9100" (empty disables)
metrics_addr: ""

# Log package changes in updates_folder
watch: true

# PID file path (empty means $XDG_DATA_HOME/arcadesync/arcadesyncd.pid)
pid_path: ""

# Logging configuration
logging:
  level: info
  path: ""
  console: true
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true
  components:
    server: info
    watcher: info
`

// DefaultConfigPath returns where WriteDefault places the named config file.
func DefaultConfigPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".yaml"), nil
}

// WriteDefault writes a commented default config file for name
// (AgentConfigName or ServerConfigName) if none exists.
// It returns the config path, and nil if the file already exists.
func WriteDefault(name string) (string, error) {
	var content string
	switch name {
	case AgentConfigName:
		content = fmt.Sprintf(agentTemplate, DefaultServerURL, DefaultTargetProcess,
			DefaultProcessCheckInterval, DefaultUpdateCheckInterval, DefaultHTTPTimeout, DefaultMinLaunchInterval)
	case ServerConfigName:
		content = fmt.Sprintf(serverTemplate, DefaultUpdatesFolder, DefaultPackageExt,
			DefaultConfigFolder, DefaultConfigFileName, DefaultPort)
	default:
		return "", fmt.Errorf("%w: unknown config name %q", ErrInvalid, name)
	}

	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := DefaultConfigPath(name)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}
