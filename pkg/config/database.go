package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver         string               `yaml:"driver" mapstructure:"driver"`
	ConnectTimeout time.Duration        `yaml:"connect_timeout,omitempty" mapstructure:"connect_timeout"`
	SQLite         SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres       PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// DSN returns the key/value connection string understood by pgx.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.Database,
		p.SSLMode,
	)
}

// Validate checks that the settings for the selected driver are present.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite.path", ErrMissingDatabaseSetting)
		}
	case DriverPostgres:
		var missing []string

		if d.Postgres.User == "" {
			missing = append(missing, "user (DB_USERNAME)")
		}

		if d.Postgres.Password == "" {
			missing = append(missing, "password (DB_PASSWORD)")
		}

		if d.Postgres.Host == "" {
			missing = append(missing, "host (DB_HOST)")
		}

		if d.Postgres.Port == 0 {
			missing = append(missing, "port (DB_PORT)")
		}

		if d.Postgres.Database == "" {
			missing = append(missing, "database (DB_DATABASE)")
		}

		if len(missing) > 0 {
			return fmt.Errorf("%w: postgres %s",
				ErrMissingDatabaseSetting, strings.Join(missing, ", "))
		}

		if d.Postgres.Port < 0 || d.Postgres.Port > 65535 {
			return fmt.Errorf("postgres port %d out of range", d.Postgres.Port)
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", d.Driver)
	}

	return nil
}
