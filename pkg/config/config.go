package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides, e.g.
	// ROBOTDB_DATABASE_DRIVER=sqlite.
	EnvPrefix = "ROBOTDB"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultInput is the default path of the Robot Framework output file.
	DefaultInput = "results/output.xml"

	// DefaultDriver is the default database driver.
	DefaultDriver = "postgres"

	// DefaultSSLMode is the default PostgreSQL sslmode.
	DefaultSSLMode = "disable"

	// DefaultConnectTimeout bounds the initial database ping.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultArchivePrefix is the default key prefix for archived reports.
	DefaultArchivePrefix = "reports"
)

// ErrMissingDatabaseSetting is returned when a required connection setting
// is absent.
var ErrMissingDatabaseSetting = errors.New("missing database setting")

// legacyEnv maps the plain DB_* variables onto config keys.
var legacyEnv = map[string]string{
	"database.postgres.user":     "DB_USERNAME",
	"database.postgres.password": "DB_PASSWORD",
	"database.postgres.host":     "DB_HOST",
	"database.postgres.port":     "DB_PORT",
	"database.postgres.database": "DB_DATABASE",
}

// Config is the root configuration for robotdb.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Archive  ArchiveConfig  `yaml:"archive,omitempty" mapstructure:"archive"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// Load reads the given config files in order, later files overriding
// earlier ones, then applies environment overrides and defaults. Calling
// Load without files builds the configuration from the environment alone.
func Load(paths ...string) (*Config, error) {
	v := newViper()

	for i, path := range paths {
		v.SetConfigFile(path)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}

		if err := read(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.StringToTimeDurationHookFunc(),
	)); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// newViper returns a viper instance with every known key bound to its
// ROBOTDB_* variable and the legacy DB_* variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.postgres.ssl_mode", DefaultSSLMode)

	// Unmarshal only sees env values for keys viper already knows about.
	for _, key := range knownKeys {
		_ = v.BindEnv(key)
	}

	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	return v
}

var knownKeys = []string{
	"global.log_level",
	"database.driver",
	"database.connect_timeout",
	"database.sqlite.path",
	"database.postgres.ssl_mode",
	"archive.s3.enabled",
	"archive.s3.endpoint_url",
	"archive.s3.region",
	"archive.s3.bucket",
	"archive.s3.prefix",
	"archive.s3.access_key_id",
	"archive.s3.secret_access_key",
	"archive.s3.force_path_style",
	"archive.s3.storage_class",
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}

	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}

	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = DefaultSSLMode
	}

	if c.Archive.S3 != nil && c.Archive.S3.Prefix == "" {
		c.Archive.S3.Prefix = DefaultArchivePrefix
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	return nil
}
