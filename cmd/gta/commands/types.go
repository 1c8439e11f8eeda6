package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
)

type typeInfo struct {
	Kind        string   `json:"kind" yaml:"kind"`
	Name        string   `json:"name" yaml:"name"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	Credentials []string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

func NewTypesCommand(cfg *config.Config, opts ...app.Option) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List adapter types and their aliases",
		Long: `Display every adapter type gta can load.

Any alias may be used as the 'type' key of a section in brokers.conf or
databases.conf. Types listing credentials need a [<kind>::<id>] section in
the secrets file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			c := newContext(cfg, opts...)
			defer func() { _ = c.Close() }()

			infos := append(describeTypes(c.Brokers()), describeTypes(c.Databases())...)

			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, infos)
			}

			w := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintf(w, "KIND\tTYPE\tALIASES\tCREDENTIALS\tDESCRIPTION\n")
			for _, info := range infos {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					info.Kind, info.Name, joinOr(info.Aliases, "-"),
					joinOr(info.Credentials, "none"), info.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")

	return cmd
}

func describeTypes[T adapter.Instance](r *adapter.Registry[T]) []typeInfo {
	descriptors := r.Descriptors()
	infos := make([]typeInfo, 0, len(descriptors))
	for _, d := range descriptors {
		aliases := append([]string(nil), d.TypeNames...)
		sort.Strings(aliases)
		infos = append(infos, typeInfo{
			Kind:        r.Kind(),
			Name:        d.Name,
			Aliases:     aliases,
			Credentials: d.CredentialKeys,
			Description: d.Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
