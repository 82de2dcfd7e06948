// Package config provides configuration management for the arcadesync agent
// and distribution server.
package config

import "time"

// Default agent configuration values.
const (
	// DefaultServerURL is the distribution server base URL.
	DefaultServerURL = "http://localhost:5000"

	// DefaultTargetProcess is the monitored application's process name.
	DefaultTargetProcess = "sinmai.exe"

	// DefaultProcessCheckInterval is the period of the liveness loop.
	DefaultProcessCheckInterval = 5 * time.Second

	// DefaultUpdateCheckInterval is the period of the sync loop.
	DefaultUpdateCheckInterval = 60 * time.Second

	// DefaultHTTPTimeout bounds every outbound request, including large downloads.
	DefaultHTTPTimeout = 5 * time.Minute

	// DefaultMinLaunchInterval is the minimum time between two launch attempts.
	DefaultMinLaunchInterval = 10 * time.Second
)

// Default server configuration values.
const (
	DefaultUpdatesFolder  = "./Updates"
	DefaultConfigFolder   = "./Config"
	DefaultConfigFileName = "AquaMai.toml"
	DefaultPort           = 5000
	DefaultPackageExt     = ".zip"

	// FlagFileName is the server-side record of the free play flag,
	// stored under the config folder.
	FlagFileName = "freeplay.json"

	// MarkerFileName is the agent's last applied free play marker, stored
	// next to the local config file.
	MarkerFileName = ".last_freeplay"
)

// Config file base names searched in the config directory.
const (
	AgentConfigName  = "agent"
	ServerConfigName = "server"
)
