// Package config provides configuration management for ballotbox.
// Configuration can be loaded from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverText     = "text"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
	LockNone   = "none"
)

// Config represents the complete application configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Election ElectionConfig `mapstructure:"election"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Session  SessionConfig  `mapstructure:"session"`
	Security SecurityConfig `mapstructure:"security"`
	Lock     LockConfig     `mapstructure:"lock"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DataConfig names the text files, relative to Dir.
type DataConfig struct {
	Dir            string `mapstructure:"dir"`
	UsersFile      string `mapstructure:"users_file"`
	CandidatesFile string `mapstructure:"candidates_file"`
	ElectionFile   string `mapstructure:"election_file"`
	ActivityFile   string `mapstructure:"activity_file"`
	ResultsFile    string `mapstructure:"results_file"`
}

// Path joins name onto the data directory.
func (c DataConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	// Driver is one of "text", "sqlite" or "postgres".
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ElectionConfig holds election policy.
type ElectionConfig struct {
	DefaultDurationDays  int    `mapstructure:"default_duration_days"`
	SeedCandidates       bool   `mapstructure:"seed_candidates"`
	AllowRemoveWithVotes bool   `mapstructure:"allow_remove_with_votes"`
	AdminPassphrase      string `mapstructure:"admin_passphrase"`

	// Location is the IANA zone used for admin-entered datetimes.
	// Empty means the process local zone.
	Location string `mapstructure:"location"`
}

// LoadLocation resolves Location.
func (c ElectionConfig) LoadLocation() (*time.Location, error) {
	if c.Location == "" || strings.EqualFold(c.Location, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Location)
}

// LimitsConfig bounds the collections.
type LimitsConfig struct {
	MaxUsers      int `mapstructure:"max_users"`
	MaxCandidates int `mapstructure:"max_candidates"`
}

// SessionConfig holds voter session settings.
type SessionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SecurityConfig holds credential hashing settings.
type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LockConfig selects the write lock.
type LockConfig struct {
	// Backend is one of "memory", "redis" or "none".
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackupConfig holds backup and export destinations.
type BackupConfig struct {
	Dir    string   `mapstructure:"dir"`
	OnExit bool     `mapstructure:"on_exit"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config holds the optional S3 mirror for backups and exports.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled starts the ops HTTP endpoint.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the listen address for the ops endpoint.
	Addr string `mapstructure:"addr"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with BALLOTBOX_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BALLOTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ballotbox")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Data files
	v.SetDefault("data.dir", ".")
	v.SetDefault("data.users_file", "users.txt")
	v.SetDefault("data.candidates_file", "candidates.txt")
	v.SetDefault("data.election_file", "election_config.txt")
	v.SetDefault("data.activity_file", "activity_log.txt")
	v.SetDefault("data.results_file", "election_results.txt")

	// Storage defaults
	v.SetDefault("storage.driver", DriverText)
	v.SetDefault("storage.sqlite.path", "./ballotbox.db")
	v.SetDefault("storage.sqlite.journal_mode", "WAL")
	v.SetDefault("storage.sqlite.busy_timeout", 5000)
	v.SetDefault("storage.sqlite.synchronous_mode", "NORMAL")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "ballotbox")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.database", "ballotbox")
	v.SetDefault("storage.postgres.ssl_mode", "prefer")
	v.SetDefault("storage.postgres.max_open_conns", 10)
	v.SetDefault("storage.postgres.max_idle_conns", 2)
	v.SetDefault("storage.postgres.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("storage.postgres.conn_max_idle_time", 5*time.Minute)

	// Election defaults
	v.SetDefault("election.default_duration_days", 7)
	v.SetDefault("election.seed_candidates", true)
	v.SetDefault("election.allow_remove_with_votes", false)
	v.SetDefault("election.admin_passphrase", "admin123")
	v.SetDefault("election.location", "")

	v.SetDefault("limits.max_users", 1000)
	v.SetDefault("limits.max_candidates", 10)

	v.SetDefault("session.timeout", 300*time.Second)

	v.SetDefault("security.bcrypt_cost", 10)

	// Lock defaults
	v.SetDefault("lock.backend", LockMemory)
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retries", 50)
	v.SetDefault("lock.retry_delay", 100*time.Millisecond)
	v.SetDefault("lock.redis.host", "localhost")
	v.SetDefault("lock.redis.port", 6379)
	v.SetDefault("lock.redis.password", "")
	v.SetDefault("lock.redis.db", 0)
	v.SetDefault("lock.redis.pool_size", 4)
	v.SetDefault("lock.redis.dial_timeout", 5*time.Second)

	// Backup defaults
	v.SetDefault("backup.dir", ".")
	v.SetDefault("backup.on_exit", true)
	v.SetDefault("backup.s3.enabled", false)
	v.SetDefault("backup.s3.region", "us-east-1")
	v.SetDefault("backup.s3.prefix", "ballotbox/")
	v.SetDefault("backup.s3.use_path_style", false)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9091")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverText:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for text driver")
		}
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required for postgres driver")
		}
		if c.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.database is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'text', 'sqlite' or 'postgres'")
	}

	if c.Election.DefaultDurationDays < 1 || c.Election.DefaultDurationDays > 365 {
		return fmt.Errorf("election.default_duration_days must be between 1 and 365")
	}
	if c.Election.AdminPassphrase == "" {
		return fmt.Errorf("election.admin_passphrase is required")
	}
	if _, err := c.Election.LoadLocation(); err != nil {
		return fmt.Errorf("election.location: %w", err)
	}

	if c.Limits.MaxUsers < 1 {
		return fmt.Errorf("limits.max_users must be positive")
	}
	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be positive")
	}

	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}

	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("security.bcrypt_cost must be between 4 and 31")
	}

	switch c.Lock.Backend {
	case LockMemory, LockNone:
	case LockRedis:
		if c.Lock.Redis.Host == "" {
			return fmt.Errorf("lock.redis.host is required for redis lock backend")
		}
	default:
		return fmt.Errorf("lock.backend must be 'memory', 'redis' or 'none'")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}

	if c.Backup.S3.Enabled && c.Backup.S3.Bucket == "" {
		return fmt.Errorf("backup.s3.bucket is required when backup.s3.enabled is set")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
