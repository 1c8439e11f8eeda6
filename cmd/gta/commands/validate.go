package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/confstore"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/validation"
)

func NewValidateCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check config sections against their adapter schema",
		Long: `Lint brokers.conf and databases.conf.

Every section is checked against the JSON schema of the adapter its type
resolves to. All problems are reported, not just the first. Credentials are
not read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			c := newContext(cfg, opts...)
			defer func() { _ = c.Close() }()

			s := cfg.Settings
			brokerResults, err := validateFile(c.Brokers(), s.ConfDir, s.BrokersFile)
			if err != nil {
				return err
			}
			databaseResults, err := validateFile(c.Databases(), s.ConfDir, s.DatabasesFile)
			if err != nil {
				return err
			}
			results := append(brokerResults, databaseResults...)

			out := cmd.OutOrStdout()
			if format != formatTable {
				if err := writeStructured(out, format, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					mark := "✓"
					if !r.Valid {
						mark = "✗"
					}
					_, _ = fmt.Fprintf(out, "%s %s [%s]", mark, filepath.Base(r.File), r.Section)
					if r.Type != "" {
						_, _ = fmt.Fprintf(out, " (%s)", r.Type)
					}
					_, _ = fmt.Fprintln(out)
					for _, e := range r.Errors {
						_, _ = fmt.Fprintf(out, "    error: %s\n", e)
					}
					for _, warn := range r.Warnings {
						_, _ = fmt.Fprintf(out, "    warning: %s\n", warn)
					}
				}
			}

			if !validation.AllValid(results) {
				return gtaerrors.UserError{
					Message:    "Configuration has invalid sections",
					Suggestion: "Fix the errors above, 'gta types' lists the valid type names",
				}
			}
			cfg.Logger.Debug("Validated %d sections", len(results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")

	return cmd
}

func validateFile[T adapter.Instance](r *adapter.Registry[T], dir, name string) ([]*validation.Result, error) {
	file, err := confstore.Read(dir, name)
	if err != nil {
		return nil, gtaerrors.Simplify(err)
	}
	return validation.ValidateFile(r, file)
}
