// Package config defines the application configuration model and its loader.
// Settings come from three layers, later ones winning: code defaults, an
// optional YAML file, and LOGIFLOW_-prefixed environment variables. Load
// decodes them into one Config value that main constructs and hands to the
// components; nothing reads configuration globally.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the decoded application configuration.
type Config struct {
	API        API          `mapstructure:"api"`
	Database   Database     `mapstructure:"database"`
	Paths      Paths        `mapstructure:"paths"`
	Load       LoadSettings `mapstructure:"load"`
	Validation Validation   `mapstructure:"validation"`
	Logging    Logging      `mapstructure:"logging"`
	Metrics    Metrics      `mapstructure:"metrics"`
}

// API groups the upstream API sources.
type API struct {
	FakeStore FakeStore `mapstructure:"fake_store"`
}

// FakeStore configures the Fake Store API client.
type FakeStore struct {
	// BaseURL is the API root, e.g. "https://fakestoreapi.com".
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `mapstructure:"retry_attempts"`

	// RetryDelay is the initial backoff; it doubles per retry.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Database selects and configures the destination backend.
type Database struct {
	// Type is "sqlite" or "postgresql" ("postgres" is accepted too).
	Type string `mapstructure:"type"`

	// DropExisting drops the managed tables before creating them.
	DropExisting bool `mapstructure:"drop_existing"`

	SQLite     SQLite     `mapstructure:"sqlite"`
	PostgreSQL PostgreSQL `mapstructure:"postgresql"`
}

// SQLite configures the sqlite backend.
type SQLite struct {
	// Path is the database file path; parent directories are created on open.
	Path string `mapstructure:"path"`
}

// PostgreSQL configures the postgres backend.
type PostgreSQL struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// SSLMode is appended to the URL when set (e.g. "disable", "require").
	SSLMode string `mapstructure:"sslmode"`
}

// URL renders the pgx connection URL. The password is escaped, so it may
// contain any characters.
func (p PostgreSQL) URL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   p.Database,
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	if p.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", p.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// DSN returns the connection string for the configured backend type.
func (d Database) DSN() (string, error) {
	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "sqlite":
		return d.SQLite.Path, nil
	case "postgres", "postgresql":
		return d.PostgreSQL.URL(), nil
	}
	return "", fmt.Errorf("unsupported database.type=%q", d.Type)
}

// Paths locates the file-based inputs and outputs.
type Paths struct {
	// OlistData is the directory holding the Olist CSV exports.
	OlistData string `mapstructure:"olist_data"`

	// RawData is where API snapshots are written; empty disables snapshots.
	RawData string `mapstructure:"raw_data"`
}

// LoadSettings tunes the loader.
type LoadSettings struct {
	// BatchSize is the rows-per-statement batch for append and bulk loads.
	BatchSize int `mapstructure:"batch_size"`
}

// Validation configures the rule engine.
type Validation struct {
	// RulesDir holds YAML rule-set files layered over the built-in presets.
	// Empty means presets only.
	RulesDir string `mapstructure:"rules_dir"`
}

// Logging configures the root logger.
type Logging struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`

	// File duplicates the log stream into a file when set.
	File string `mapstructure:"file"`
}

// Metrics selects an optional metrics backend.
type Metrics struct {
	// Backend is "pushgateway" or "datadog"; "" or "none" disables metrics.
	Backend string `mapstructure:"backend"`

	// Job labels pushed metrics; defaults to "logiflow".
	Job string `mapstructure:"job"`

	// GatewayURL is the Pushgateway base URL (pushgateway backend).
	GatewayURL string `mapstructure:"gateway_url"`

	// StatsdAddr is the DogStatsD address (datadog backend).
	StatsdAddr string `mapstructure:"statsd_addr"`

	// Namespace prefixes Datadog metric names when set.
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.fake_store.base_url", "https://fakestoreapi.com")
	v.SetDefault("api.fake_store.timeout", "30s")
	v.SetDefault("api.fake_store.retry_attempts", 3)
	v.SetDefault("api.fake_store.retry_delay", "5s")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.drop_existing", false)
	v.SetDefault("database.sqlite.path", "data/logiflow.db")
	v.SetDefault("database.postgresql.host", "localhost")
	v.SetDefault("database.postgresql.port", 5432)
	v.SetDefault("database.postgresql.username", "")
	v.SetDefault("database.postgresql.password", "")
	v.SetDefault("database.postgresql.database", "logiflow")
	v.SetDefault("database.postgresql.sslmode", "")

	v.SetDefault("paths.olist_data", "data/raw/olist")
	v.SetDefault("paths.raw_data", "data/raw")

	v.SetDefault("load.batch_size", 1000)

	v.SetDefault("validation.rules_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("metrics.backend", "")
	v.SetDefault("metrics.job", "logiflow")
	v.SetDefault("metrics.gateway_url", "")
	v.SetDefault("metrics.statsd_addr", "")
	v.SetDefault("metrics.namespace", "")
}

// Load reads the configuration. When path is non-empty that exact file must
// exist; otherwise config.yaml is searched for in "." and "./config" and its
// absence is fine. Environment variables override the file: key
// database.postgresql.password becomes LOGIFLOW_DATABASE_POSTGRESQL_PASSWORD.
//
// Error-severity findings from ValidateConfig fail the load; warnings are
// returned for the caller to surface.
func Load(path string) (Config, []Issue, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LOGIFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("decode config: %w", err)
	}

	issues := ValidateConfig(cfg)
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return Config{}, issues, fmt.Errorf("invalid config: %w", iss)
		}
	}
	return cfg, issues, nil
}
