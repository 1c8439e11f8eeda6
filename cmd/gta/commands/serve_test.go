package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServeCommand_StopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := tradingConfDir(t).Config("test")
	cmd := NewServeCommand(cfg)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestServeCommand_BadListenAddress(t *testing.T) {
	t.Parallel()

	cfg := tradingConfDir(t).Config("test")
	cmd := NewServeCommand(cfg)
	cmd.SetArgs([]string{"--listen", "not-an-address"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to start metrics server")
}

func TestLoadEnv(t *testing.T) {
	t.Parallel()

	ok := tradingConfDir(t).Config("test")
	c := newContext(ok)
	defer func() { _ = c.Close() }()
	require.NoError(t, loadEnv(c, "test"))

	failing := tradingConfDir(t).
		WithBroker("live", "alpaca", "env", "prod").
		Config("prod")
	c2 := newContext(failing)
	defer func() { _ = c2.Close() }()
	err := loadEnv(c2, "prod")
	require.Error(t, err)
	require.Contains(t, err.Error(), "live")
}
