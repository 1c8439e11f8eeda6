package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/metrics"
)

func NewServeCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var (
		listen   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep adapters loaded and export metrics over HTTP",
		Long: `Load every adapter serving --env, then serve Prometheus metrics and a
/health endpoint that fails while any adapter fails to load.

The configuration is reloaded on SIGHUP and, with --reload-interval, on a
timer. A failed reload keeps the previous configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := cfg.Settings.Env
			m := metrics.Default()
			c := newContext(cfg, opts...)
			defer func() { _ = c.Close() }()

			var lastErr atomic.Pointer[error]
			refresh := func() {
				err := loadEnv(c, env)
				lastErr.Store(&err)
				if err != nil {
					cfg.Logger.Warn("%v", err)
				}
			}
			refresh()

			serverCfg := metrics.DefaultServerConfig()
			serverCfg.Addr = listen
			srv := m.NewServer(serverCfg, func() error {
				if p := lastErr.Load(); p != nil {
					return *p
				}
				return nil
			}, cfg.Logger)
			if err := srv.Start(); err != nil {
				return fmt.Errorf("failed to start metrics server on %s: %w", listen, err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(ctx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			var tick <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
			}

			for {
				select {
				case <-ctx.Done():
					cfg.Logger.Info("Shutting down")
					return nil
				case <-hup:
				case <-tick:
				}

				if err := c.Reload(); err != nil {
					cfg.Logger.Error("Reload failed, keeping previous configuration: %v", err)
					continue
				}
				refresh()
				if err := c.Retire(); err != nil {
					cfg.Logger.Warn("Closing adapters from the previous configuration: %v", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", metrics.DefaultServerConfig().Addr, "Address to serve metrics on")
	cmd.Flags().DurationVar(&interval, "reload-interval", 0, "Reload the configuration this often, 0 to reload only on SIGHUP")

	return cmd
}

// loadEnv loads every adapter serving env and joins the failures.
func loadEnv(c *app.Context, env string) error {
	var errs []error
	for _, kind := range app.Kinds {
		results, err := c.LoadAll(kind, env)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
	}
	return errors.Join(errs...)
}
