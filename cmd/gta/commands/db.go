package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

func NewDBCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Create, drop or look up the configured database",
		Long: `Manage the database of the first databases.conf section that serves --env
and whose type resolves to the same adapter as --type.`,
	}

	cmd.PersistentFlags().StringVar(&typeName, "type", "", "Database type alias, e.g. postgres or mysql")
	_ = cmd.MarkPersistentFlagRequired("type")

	cmd.AddCommand(
		newDBCreateCommand(cfg, &typeName, opts),
		newDBDropCommand(cfg, &typeName, opts),
		newDBExistsCommand(cfg, &typeName, opts),
	)

	return cmd
}

// withDatabase loads the database for cfg's env and runs fn on it.
func withDatabase(cfg *config.Config, typeName string, opts []app.Option, fn func(database.Database) error) error {
	c := newContext(cfg, opts...)
	defer func() { _ = c.Close() }()

	db, err := c.Database(cfg.Settings.Env, typeName)
	if err != nil {
		return gtaerrors.Simplify(err)
	}
	return fn(db)
}

func newDBCreateCommand(cfg *config.Config, typeName *string, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the database if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cfg, *typeName, opts, func(db database.Database) error {
				if err := db.CreateDB(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Database %q is ready on %s:%d\n", db.Name(), db.Host(), db.Port())
				return nil
			})
		},
	}
}

func newDBDropCommand(cfg *config.Config, typeName *string, opts []app.Option) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cfg, *typeName, opts, func(db database.Database) error {
				if !yes {
					return gtaerrors.UserError{
						Message:    fmt.Sprintf("Refusing to drop database %q on %s:%d", db.Name(), db.Host(), db.Port()),
						Suggestion: "Re-run with --yes to confirm",
					}
				}
				if err := db.DropDB(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Dropped database %q on %s:%d\n", db.Name(), db.Host(), db.Port())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm dropping the database")

	return cmd
}

func newDBExistsCommand(cfg *config.Config, typeName *string, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "exists",
		Short: "Print whether the database exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cfg, *typeName, opts, func(db database.Database) error {
				exists, err := db.Exists(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), exists)
				return nil
			})
		},
	}
}
