package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
global:
  log_level: info
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    user: robot
    password: secret
    database: results
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
				assert.Equal(t, 5432, cfg.Database.Postgres.Port)
				assert.Equal(t, "results", cfg.Database.Postgres.Database)
			},
		},
		{
			name: "prefixed override - log_level",
			envVars: map[string]string{
				"ROBOTDB_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "legacy override - DB_HOST",
			envVars: map[string]string{
				"DB_HOST": "other.internal",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "other.internal", cfg.Database.Postgres.Host)
			},
		},
		{
			name: "legacy override - DB_PORT parsed as int",
			envVars: map[string]string{
				"DB_PORT": "6543",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6543, cfg.Database.Postgres.Port)
			},
		},
		{
			name: "prefixed variable wins over legacy",
			envVars: map[string]string{
				"ROBOTDB_DATABASE_POSTGRES_USER": "prefixed",
				"DB_USERNAME":                    "legacy",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "prefixed", cfg.Database.Postgres.User)
			},
		},
		{
			name: "duration override - connect_timeout",
			envVars: map[string]string{
				"ROBOTDB_DATABASE_CONNECT_TIMEOUT": "3s",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsAppliedWhenEmpty(t *testing.T) {
	configPath := writeConfig(t, "global: {}\n")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultSSLMode, cfg.Database.Postgres.SSLMode)
	assert.Equal(t, DefaultConnectTimeout, cfg.Database.ConnectTimeout)
	assert.Nil(t, cfg.Archive.S3)
	assert.False(t, cfg.Archive.IsEnabled())
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("DB_USERNAME", "robot")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_DATABASE", "results")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t,
		"host=localhost port=5432 user=robot password=secret dbname=results sslmode=disable",
		cfg.Database.Postgres.DSN())
}

func TestLoad_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, `
database:
  driver: postgres
  sqlite:
    path: base.db
`)
	override := writeConfig(t, `
database:
  driver: sqlite
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "base.db", cfg.Database.SQLite.Path)
}

func TestLoad_ArchivePrefixDefault(t *testing.T) {
	configPath := writeConfig(t, `
archive:
  s3:
    enabled: true
    bucket: reports-bucket
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	require.NotNil(t, cfg.Archive.S3)
	assert.True(t, cfg.Archive.IsEnabled())
	assert.Equal(t, DefaultArchivePrefix, cfg.Archive.S3.Prefix)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "database: [unterminated\n")

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestDatabaseConfig_Validate(t *testing.T) {
	complete := PostgresConfig{
		Host: "localhost", Port: 5432, User: "robot",
		Password: "secret", Database: "results",
	}

	tests := []struct {
		name        string
		cfg         DatabaseConfig
		wantErr     bool
		wantMissing bool
		errContains string
	}{
		{
			name: "complete postgres",
			cfg:  DatabaseConfig{Driver: DriverPostgres, Postgres: complete},
		},
		{
			name:        "postgres missing everything",
			cfg:         DatabaseConfig{Driver: DriverPostgres},
			wantErr:     true,
			wantMissing: true,
			errContains: "DB_USERNAME",
		},
		{
			name: "postgres missing password",
			cfg: func() DatabaseConfig {
				p := complete
				p.Password = ""

				return DatabaseConfig{Driver: DriverPostgres, Postgres: p}
			}(),
			wantErr:     true,
			wantMissing: true,
			errContains: "DB_PASSWORD",
		},
		{
			name: "postgres port out of range",
			cfg: func() DatabaseConfig {
				p := complete
				p.Port = 70000

				return DatabaseConfig{Driver: DriverPostgres, Postgres: p}
			}(),
			wantErr:     true,
			errContains: "out of range",
		},
		{
			name: "sqlite with path",
			cfg: DatabaseConfig{
				Driver: DriverSQLite,
				SQLite: SQLiteDatabaseConfig{Path: "robot.db"},
			},
		},
		{
			name:        "sqlite without path",
			cfg:         DatabaseConfig{Driver: DriverSQLite},
			wantErr:     true,
			wantMissing: true,
			errContains: "sqlite.path",
		},
		{
			name:        "unknown driver",
			cfg:         DatabaseConfig{Driver: "mysql"},
			wantErr:     true,
			errContains: "unsupported database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)

			if tt.wantMissing {
				assert.ErrorIs(t, err, ErrMissingDatabaseSetting)
			}
		})
	}
}

func TestArchiveConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ArchiveConfig
		wantErr bool
	}{
		{name: "not configured", cfg: ArchiveConfig{}},
		{name: "disabled without bucket", cfg: ArchiveConfig{S3: &S3ArchiveConfig{}}},
		{
			name:    "enabled without bucket",
			cfg:     ArchiveConfig{S3: &S3ArchiveConfig{Enabled: true}},
			wantErr: true,
		},
		{
			name: "enabled with half credentials",
			cfg: ArchiveConfig{S3: &S3ArchiveConfig{
				Enabled: true, Bucket: "b", AccessKeyID: "key",
			}},
			wantErr: true,
		},
		{
			name: "enabled with bucket",
			cfg:  ArchiveConfig{S3: &S3ArchiveConfig{Enabled: true, Bucket: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
