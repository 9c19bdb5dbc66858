package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"docexport/internal/domain"
	"docexport/internal/etl"
	"docexport/internal/logger"
	"docexport/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. DOCEXPORT_OUTPUT.
const EnvPrefix = "DOCEXPORT"

// Config is the full runtime configuration. It is built once at startup and
// passed down explicitly.
type Config struct {
	CredentialsPath string        `mapstructure:"credentials"`
	OutputPath      string        `mapstructure:"output"`
	Driver          string        `mapstructure:"driver"`
	ProjectID       string        `mapstructure:"project"`
	Database        string        `mapstructure:"database"`
	Collections     []string      `mapstructure:"collections"` // empty = all
	MaxDepth        int           `mapstructure:"max_depth"`
	Log             logger.Config `mapstructure:"log"`
	History         HistoryConfig `mapstructure:"history"`
}

// HistoryConfig selects where run history is recorded.
type HistoryConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
}

// Connection returns the store connection described by c.
func (c *Config) Connection() domain.StoreConnection {
	return domain.StoreConnection{
		Driver:          domain.StoreDriver(c.Driver),
		CredentialsPath: c.CredentialsPath,
		ProjectID:       c.ProjectID,
		Database:        c.Database,
	}
}

// Validate checks c. Failures are configuration errors.
func (c *Config) Validate() error {
	if c.CredentialsPath == "" {
		return etl.NewConfigurationError("credentials", errors.New("credentials path is required"))
	}
	if c.OutputPath == "" {
		return etl.NewConfigurationError("output", errors.New("output path is required"))
	}
	switch domain.StoreDriver(c.Driver) {
	case domain.StoreDriverFirestore, domain.StoreDriverMongoDB, domain.StoreDriverMemory:
	default:
		return etl.NewConfigurationError("driver", fmt.Errorf("unsupported driver %q", c.Driver))
	}
	if c.MaxDepth < 0 {
		return etl.NewConfigurationError("max_depth", fmt.Errorf("must be >= 0 (got %d)", c.MaxDepth))
	}
	if err := c.Log.Validate(); err != nil {
		return etl.NewConfigurationError("log", err)
	}
	if !c.History.Disabled {
		switch c.History.Driver {
		case storage.DriverSQLite, storage.DriverPostgres, storage.DriverMySQL:
		default:
			return etl.NewConfigurationError("history.driver", fmt.Errorf("unsupported history driver %q", c.History.Driver))
		}
	}
	return nil
}

// ── Loading ────────────────────────────────────────────────
// Precedence, lowest first: defaults, YAML config file, .env file and process
// environment (DOCEXPORT_*), then command-line flags that were set.

// FileSystem abstracts the file checks the loader makes (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	ConfigFile string         // optional YAML file
	EnvFile    string         // optional .env file; ".env" is tried when empty
	Flags      *pflag.FlagSet // optional; bound via FlagKeys
	FileSystem FileSystem
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"credentials":    "credentials",
	"output":         "output",
	"driver":         "driver",
	"project":        "project",
	"database":       "database",
	"collection":     "collections",
	"max-depth":      "max_depth",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"history-driver": "history.driver",
	"history-dsn":    "history.dsn",
	"no-history":     "history.disabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("credentials", "serviceAccountKey.json")
	v.SetDefault("output", "data.csv")
	v.SetDefault("driver", string(domain.StoreDriverFirestore))
	v.SetDefault("project", "")
	v.SetDefault("database", "")
	v.SetDefault("collections", []string{})
	v.SetDefault("max_depth", etl.DefaultMaxDepth)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.no_color", false)
	v.SetDefault("history.disabled", false)
	v.SetDefault("history.driver", storage.DriverSQLite)
	v.SetDefault("history.dsn", "docexport-history.db")
}

// Load resolves the configuration. It does not validate it.
func Load(opts LoadOptions) (*Config, error) {
	fs := opts.FileSystem
	if fs == nil {
		fs = RealFileSystem{}
	}

	v := viper.New()
	setDefaults(v)

	// 1. YAML config file
	if opts.ConfigFile != "" {
		if !fs.Exists(opts.ConfigFile) {
			return nil, etl.NewConfigurationError(opts.ConfigFile, os.ErrNotExist)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, etl.NewConfigurationError(opts.ConfigFile, err)
		}
	}

	// 2. .env file, then the environment
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if fs.Exists(envFile) {
		if err := fs.LoadEnv(envFile); err != nil {
			return nil, etl.NewConfigurationError(envFile, err)
		}
	} else if opts.EnvFile != "" {
		return nil, etl.NewConfigurationError(opts.EnvFile, os.ErrNotExist)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Flags
	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, etl.NewConfigurationError("config", fmt.Errorf("unmarshal: %w", err))
	}
	cfg.Collections = splitList(cfg.Collections)
	cfg.Log.ApplyDefaults()
	return &cfg, nil
}

// splitList accepts both repeated values and a single comma-separated one,
// as DOCEXPORT_COLLECTIONS=users,orders arrives.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
