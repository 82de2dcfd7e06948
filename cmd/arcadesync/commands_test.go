package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "sync", "plan", "status", "freeplay", "history", "config", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	cmd, _, err := rootCmd.Find([]string{"config", "init"})
	require.NoError(t, err)
	assert.Equal(t, "init", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("server"))
}

func withServerFlag(t *testing.T, value string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	viper.Set("server", value)
	t.Cleanup(func() { viper.Set("server", "") })
}

func TestLoadConfigServerOverride(t *testing.T) {
	withServerFlag(t, "http://10.0.0.2:5000")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:5000", cfg.ServerURL)
	assert.Equal(t, config.DefaultTargetProcess, cfg.TargetProcess)
}

func TestLoadConfigRejectsBadServer(t *testing.T) {
	withServerFlag(t, "ftp://10.0.0.2")

	_, err := loadConfig()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewAgentApp(t *testing.T) {
	withServerFlag(t, "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	cfg.UpdateTargetDir = t.TempDir()

	t.Run("without local config", func(t *testing.T) {
		cfg.LocalConfigPath = ""
		app, err := newAgentApp(cfg, false)
		require.NoError(t, err)
		assert.Nil(t, app.marker)
		assert.NotNil(t, app.orchestrator)
		assert.Equal(t, config.DefaultServerURL, app.client.BaseURL())
	})

	t.Run("with local config", func(t *testing.T) {
		dir := t.TempDir()
		cfg.LocalConfigPath = filepath.Join(dir, "AquaMai.toml")
		app, err := newAgentApp(cfg, false)
		require.NoError(t, err)
		require.NotNil(t, app.marker)
		assert.Equal(t, filepath.Join(dir, config.MarkerFileName), app.marker.Path())
	})
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "arcadesync/"+version, userAgent())
}
