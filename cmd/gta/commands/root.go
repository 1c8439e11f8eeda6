package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/confstore"
)

// globalFlags maps persistent flags to the settings keys they override.
var globalFlags = map[string]string{
	"conf-dir":   config.KeyConfDir,
	"env":        config.KeyEnv,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"no-color":   config.KeyNoColor,
}

// NewRootCommand builds the gta command tree. Settings are loaded into cfg
// before any subcommand runs.
func NewRootCommand(cfg *config.Config, version string, opts ...app.Option) *cobra.Command {
	var settingsPath string

	root := &cobra.Command{
		Use:   "gta",
		Short: "Load broker and database adapters from the conf dir",
		Long: `gta resolves the sections of brokers.conf and databases.conf to adapters,
matches them with credentials from the secrets file and checks that the
configuration for an environment loads.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Path = settingsPath
			return cfg.Load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&settingsPath, "settings", "", "Settings file (default <conf-dir>/gta.yaml when present)")
	flags.String("conf-dir", confstore.DefaultConfDir(), "Directory holding brokers.conf, databases.conf and .secrets.conf")
	flags.String("env", config.DefaultEnv, "Environment to load adapters for")
	flags.String("log-level", "info", "Log level: debug, info, warn, error or disabled")
	flags.String("log-format", "console", "Log format: console or json")
	flags.Bool("no-color", false, "Disable colored output")
	bindFlags(cfg, flags)

	root.AddCommand(
		NewTypesCommand(cfg, opts...),
		NewAdaptersCommand(cfg, opts...),
		NewCheckCommand(cfg, opts...),
		NewValidateCommand(cfg, opts...),
		NewDBCommand(cfg, opts...),
		NewServeCommand(cfg, opts...),
	)

	return root
}

func bindFlags(cfg *config.Config, flags *pflag.FlagSet) {
	if cfg.Viper == nil {
		cfg.Viper = config.NewViper()
	}
	for name, key := range globalFlags {
		// Lookup cannot fail for the flags defined above.
		_ = cfg.Viper.BindPFlag(key, flags.Lookup(name))
	}
}
