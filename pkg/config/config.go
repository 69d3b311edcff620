package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sqlhaven-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords,
// tokens) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Engines   EnginesConfig   `yaml:"engines"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Execution ExecutionConfig `yaml:"execution"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// EnginesConfig holds connection settings for every backend engine. An engine
// with an empty host is treated as unconfigured and the router reports it as
// unavailable rather than failing startup.
type EnginesConfig struct {
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Trino    TrinoConfig    `yaml:"trino"`
	Spark    SparkConfig    `yaml:"spark"`

	// SparkThresholdBytes is the estimated-data-size cutoff above which the
	// analytics umbrella dialect resolves to Spark instead of Trino.
	SparkThresholdBytes int64 `yaml:"spark_threshold_bytes" env:"ANALYTICS_SPARK_THRESHOLD_BYTES" env-default:"536870912"`
}

// MySQLConfig holds MySQL backend configuration.
type MySQLConfig struct {
	Host     string `yaml:"host" env:"MYSQL_HOST" env-default:""`
	Port     int    `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"MYSQL_USER" env-default:"root"`
	Password string `yaml:"-" env:"MYSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"MYSQL_DATABASE" env-default:"sales"`
}

// PostgresConfig holds PostgreSQL backend configuration.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:""`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"sales"`
	Schema   string `yaml:"schema" env:"PGSCHEMA" env-default:"public"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// TrinoConfig holds Trino coordinator configuration.
type TrinoConfig struct {
	Host    string `yaml:"host" env:"TRINO_HOST" env-default:""`
	Port    int    `yaml:"port" env:"TRINO_PORT" env-default:"8080"`
	User    string `yaml:"user" env:"TRINO_USER" env-default:"sqlhaven"`
	Catalog string `yaml:"catalog" env:"TRINO_CATALOG" env-default:"mysql"`
	Schema  string `yaml:"schema" env:"TRINO_SCHEMA" env-default:"sales"`
}

// SparkConfig holds the Spark SQL warehouse endpoint configuration.
type SparkConfig struct {
	Host        string `yaml:"host" env:"SPARK_HOST" env-default:""`
	Port        int    `yaml:"port" env:"SPARK_PORT" env-default:"443"`
	HTTPPath    string `yaml:"http_path" env:"SPARK_HTTP_PATH" env-default:""`
	AccessToken string `yaml:"-" env:"SPARK_ACCESS_TOKEN"` // Secret - not in YAML
	Schema      string `yaml:"schema" env:"SPARK_SCHEMA" env-default:"default"`
}

// RedisConfig holds Redis configuration for the durable context store.
// An empty host falls back to the in-memory store (single-process only).
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AnalyticsConfig holds settings for the query-pattern analytics store.
type AnalyticsConfig struct {
	// Path is the SQLite database file for query patterns.
	Path string `yaml:"path" env:"ANALYTICS_DB_PATH" env-default:"query_analytics.db"`
	// MigrationsPath is the directory holding the analytics schema migrations.
	MigrationsPath string `yaml:"migrations_path" env:"ANALYTICS_MIGRATIONS_PATH" env-default:"migrations"`
	// RetentionDays is how long query patterns are kept before the sweep job
	// deletes them.
	RetentionDays int `yaml:"retention_days" env:"ANALYTICS_RETENTION_DAYS" env-default:"30"`
	// SweepSchedule is the cron expression for the retention sweep.
	SweepSchedule string `yaml:"sweep_schedule" env:"ANALYTICS_SWEEP_SCHEDULE" env-default:"17 3 * * *"`
}

// ExecutionConfig bounds backend round trips.
type ExecutionConfig struct {
	// TimeoutSeconds caps a single backend round trip.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"EXECUTION_TIMEOUT_SECONDS" env-default:"30"`
	// MaxRows caps the number of rows returned from a row-producing statement.
	MaxRows int `yaml:"max_rows" env:"EXECUTION_MAX_ROWS" env-default:"1000"`
}

// LedgerConfig bounds the per-project query intent history.
type LedgerConfig struct {
	// MaxRecords is the per-project retention cap; oldest records are evicted
	// first.
	MaxRecords int `yaml:"max_records" env:"LEDGER_MAX_RECORDS" env-default:"200"`
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that cleanenv defaults cannot express.
func (c *Config) Validate() error {
	if c.Execution.TimeoutSeconds <= 0 {
		return fmt.Errorf("execution.timeout_seconds must be positive, got %d", c.Execution.TimeoutSeconds)
	}
	if c.Execution.MaxRows <= 0 {
		return fmt.Errorf("execution.max_rows must be positive, got %d", c.Execution.MaxRows)
	}
	if c.Ledger.MaxRecords <= 0 {
		return fmt.Errorf("ledger.max_records must be positive, got %d", c.Ledger.MaxRecords)
	}
	if c.Analytics.RetentionDays <= 0 {
		return fmt.Errorf("analytics.retention_days must be positive, got %d", c.Analytics.RetentionDays)
	}
	if c.Engines.SparkThresholdBytes <= 0 {
		return fmt.Errorf("engines.spark_threshold_bytes must be positive, got %d", c.Engines.SparkThresholdBytes)
	}
	return nil
}
