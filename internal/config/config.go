// Package config holds the runtime settings of the gta binary: where the
// adapter config files live, which environment to load, and how to log.
//
// Settings come from, in order of precedence, command-line flags, GTA_*
// environment variables, an optional gta.yaml settings file, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/grandtrade/gta/internal/broker"
	"github.com/grandtrade/gta/internal/confstore"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
)

// Setting keys, also the yaml keys and, upper-cased with a GTA_ prefix, the
// environment variables.
const (
	KeyConfDir       = "conf_dir"
	KeyEnv           = "env"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyNoColor       = "no_color"
	KeyBrokersFile   = "brokers_file"
	KeyDatabasesFile = "databases_file"
	KeySecretsFile   = "secrets_file"
)

const (
	EnvPrefix = "GTA"
	// SettingsName is the settings file looked up in the conf dir when no
	// explicit path is given.
	SettingsName = "gta"

	DefaultEnv         = "dev"
	DefaultSecretsFile = ".secrets.conf"
)

// Settings is the decoded settings tree.
type Settings struct {
	ConfDir       string `mapstructure:"conf_dir" yaml:"conf_dir"`
	Env           string `mapstructure:"env" yaml:"env"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format"`
	NoColor       bool   `mapstructure:"no_color" yaml:"no_color"`
	BrokersFile   string `mapstructure:"brokers_file" yaml:"brokers_file"`
	DatabasesFile string `mapstructure:"databases_file" yaml:"databases_file"`
	SecretsFile   string `mapstructure:"secrets_file" yaml:"secrets_file"`
}

// Config holds the runtime configuration shared by commands.
type Config struct {
	// Path is the settings file, empty to search the conf dir for gta.yaml.
	Path     string
	Logger   *logging.Logger
	Viper    *viper.Viper
	Settings Settings
}

// New returns a Config with a fresh viper instance carrying defaults and the
// GTA_* environment binding. Flags are bound by the caller before Load.
func New() *Config {
	return &Config{
		Logger: logging.New(false, false),
		Viper:  NewViper(),
	}
}

// NewViper creates a viper instance with gta defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyConfDir, confstore.DefaultConfDir())
	v.SetDefault(KeyEnv, DefaultEnv)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyBrokersFile, broker.ConfigFile)
	v.SetDefault(KeyDatabasesFile, database.ConfigFile)
	v.SetDefault(KeySecretsFile, DefaultSecretsFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the settings file, decodes settings and rebuilds the logger.
func (c *Config) Load() error {
	if c.Viper == nil {
		c.Viper = NewViper()
	}
	v := c.Viper

	if c.Path != "" {
		v.SetConfigFile(c.Path)
		if err := v.ReadInConfig(); err != nil {
			return gtaerrors.UserError{
				Message:    "Failed to read settings file",
				Details:    err.Error(),
				Suggestion: "Check the --settings path and its YAML syntax",
				Err:        err,
			}
		}
	} else {
		v.SetConfigName(SettingsName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(KeyConfDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return gtaerrors.UserError{
					Message:    "Failed to read settings file",
					Details:    err.Error(),
					Suggestion: fmt.Sprintf("Fix or remove %s.yaml in the conf dir", SettingsName),
					Err:        err,
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return gtaerrors.ConfigError{
			Message:    fmt.Sprintf("invalid settings: %v", err),
			Suggestion: "Check value types in the settings file",
		}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.Settings = s

	logger, err := logging.NewWithOptions(logging.Options{
		Level:   s.LogLevel,
		Format:  s.LogFormat,
		NoColor: s.NoColor,
	})
	if err != nil {
		return gtaerrors.ConfigError{
			Field:      KeyLogLevel,
			Value:      s.LogLevel,
			Message:    err.Error(),
			Suggestion: "Use debug, info, warn, error, disabled or a number from -1 to 5",
		}
	}
	c.Logger = logger
	return nil
}

// Validate checks settings that cannot be caught while decoding.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.ConfDir) == "" {
		return gtaerrors.ConfigError{
			Field:      KeyConfDir,
			Message:    "configuration directory is required",
			Suggestion: "Pass --conf-dir or set GTA_CONF_DIR",
		}
	}

	if strings.TrimSpace(s.Env) == "" || strings.Contains(s.Env, ",") {
		return gtaerrors.ConfigError{
			Field:      KeyEnv,
			Value:      s.Env,
			Message:    "environment must be a single non-empty name",
			Suggestion: "Pass --env, for example --env test",
		}
	}

	switch strings.ToLower(s.LogFormat) {
	case "console", "json":
	default:
		return gtaerrors.ConfigError{
			Field:      KeyLogFormat,
			Value:      s.LogFormat,
			Message:    "unknown log format",
			Suggestion: "Use console or json",
		}
	}
	return nil
}

// FilePath joins name onto the conf dir unless it is absolute.
func (s Settings) FilePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.ConfDir, name)
}
