package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/grandtrade/gta/internal/config"
)

func TestRootCommand_FlagsOverrideSettings(t *testing.T) {
	t.Parallel()

	dir := tradingConfDir(t).Write()
	cfg := config.New()
	root := NewRootCommand(cfg, "test")

	out, err := runCommand(t, root, "--conf-dir", dir, "--env", "prod", "--log-level", "error", "check")
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Settings.ConfDir)
	assert.Equal(t, "prod", cfg.Settings.Env)
	assert.Equal(t, "error", cfg.Settings.LogLevel)
	assert.Contains(t, out, "sim")
	assert.NotContains(t, out, "mydb")
}

func TestRootCommand_SettingsFile(t *testing.T) {
	t.Parallel()

	dir := tradingConfDir(t).Write()
	data, err := yaml.Marshal(map[string]string{
		config.KeyConfDir:  dir,
		config.KeyEnv:      "test",
		config.KeyLogLevel: "warn",
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg := config.New()
	out, err := runCommand(t, NewRootCommand(cfg, "test"), "--settings", path, "adapters", "--kind", "database")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Settings.Env)
	assert.Equal(t, dir, cfg.Settings.ConfDir)
	assert.Contains(t, out, "mydb")
}

func TestRootCommand_InvalidSettings(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	_, err := runCommand(t, NewRootCommand(cfg, "test"), "--conf-dir", t.TempDir(), "--log-format", "xml", "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log format")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(config.New(), "test")

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"types", "adapters", "check", "validate", "db", "serve"} {
		assert.Contains(t, names, want)
	}
}
