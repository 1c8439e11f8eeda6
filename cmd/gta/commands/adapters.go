package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

func NewAdaptersCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var (
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List configured adapter sections",
		Long: `Display the sections of brokers.conf and databases.conf without loading them.

For each section shows the declared type, the adapter it resolves to, the
environments it serves and whether its credentials can be found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			c := newContext(cfg, opts...)
			defer func() { _ = c.Close() }()

			var infos []app.SectionInfo
			for _, k := range kindsFor(kind) {
				found, err := c.Describe(k)
				if err != nil {
					return gtaerrors.Simplify(err)
				}
				infos = append(infos, found...)
			}

			if format != formatTable {
				if infos == nil {
					infos = []app.SectionInfo{}
				}
				return writeStructured(cmd.OutOrStdout(), format, infos)
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				_, _ = fmt.Fprintf(out, "No adapters configured in %s\n", cfg.Settings.ConfDir)
				return nil
			}

			w := newTable(out)
			_, _ = fmt.Fprintf(w, "KIND\tSECTION\tTYPE\tADAPTER\tENVS\tCREDENTIALS\n")
			for _, info := range infos {
				resolved := info.Type
				if resolved == "" {
					resolved = "unknown"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					info.Kind, info.Section, info.DeclaredType, resolved,
					joinOr(info.Envs, "all"), info.Credentials)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, info := range infos {
				if info.Error != "" {
					_, _ = fmt.Fprintf(out, "\n%s [%s]: %s\n", info.Kind, info.Section, info.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list this kind: broker or database")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")

	return cmd
}
