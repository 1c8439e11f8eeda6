package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/metrics"
)

func NewCheckCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var (
		ping        bool
		timeout     time.Duration
		metricsPath string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load every adapter serving the environment",
		Long: `Load every broker and database section that serves --env and report the outcome.

Exits non-zero when any section fails to load. With --ping, databases are
also connected to. --metrics-out writes the load counters in the Prometheus
text format for the node-exporter textfile collector.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := cfg.Settings.Env
			c := newContext(cfg, opts...)
			defer func() { _ = c.Close() }()

			out := cmd.OutOrStdout()
			w := newTable(out)
			_, _ = fmt.Fprintf(w, "KIND\tSECTION\tTYPE\tSTATUS\n")

			var (
				total    int
				failures []app.LoadResult
			)
			for _, kind := range app.Kinds {
				results, err := c.LoadAll(kind, env)
				if err != nil {
					return gtaerrors.Simplify(err)
				}

				for _, r := range results {
					total++
					if r.Err == nil && ping {
						r.Err = pingDatabase(cmd.Context(), r, timeout)
					}

					status := "ok"
					if r.Err != nil {
						status = "FAILED"
						if kind := gtaerrors.Kind(r.Err); kind != nil {
							status = "FAILED (" + kind.Error() + ")"
						}
						failures = append(failures, r)
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Kind, r.Section, r.Type, status)
				}
			}

			if total == 0 {
				_, _ = fmt.Fprintf(out, "No adapters serve environment %q\n", env)
			} else if err := w.Flush(); err != nil {
				return err
			}

			if metricsPath != "" {
				if err := metrics.Default().WriteTextfile(metricsPath); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
				cfg.Logger.Debug("Wrote metrics to %s", metricsPath)
			}

			if len(failures) > 0 {
				_, _ = fmt.Fprintln(out)
				for _, f := range failures {
					_, _ = fmt.Fprintf(out, "✗ %s [%s]: %v\n", f.Kind, f.Section, f.Err)
					if hint := gtaerrors.Suggestion(f.Err); hint != "" {
						_, _ = fmt.Fprintf(out, "  💡 %s\n", hint)
					}
				}
				return fmt.Errorf("%d of %d adapters failed to load for environment %q", len(failures), total, env)
			}

			cfg.Logger.Info("✓ %d adapters loaded for environment %q", total, env)
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "Also connect to every database")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout for each --ping")
	cmd.Flags().StringVar(&metricsPath, "metrics-out", "", "Write load metrics to this file")

	return cmd
}

// pingDatabase connects to r's database. Other kinds have nothing to ping.
func pingDatabase(ctx context.Context, r app.LoadResult, timeout time.Duration) error {
	db, ok := r.Instance.(database.Database)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.Ping(ctx)
}
