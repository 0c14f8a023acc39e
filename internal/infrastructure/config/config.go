package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Snapshot backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config represents the application configuration
type Config struct {
	Snapshot SnapshotConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
}

// SnapshotConfig selects where and how the role/user snapshot is stored
type SnapshotConfig struct {
	Backend string // memory, file, postgres or redis
	Codec   string // json or proto
	File    string // Path used by the file backend
	Key     string // Row key (postgres) or key (redis); empty uses the backend default
}

// CacheConfig represents decision cache configuration
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTLSeconds int // Zero keeps entries until the directory changes or they are evicted
}

// TTL returns the entry lifetime as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig represents redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")

	// Embedders run outside this repository, so a missing go.mod only means
	// there is no config file to read
	if projectRoot, err := findProjectRoot(); err == nil {
		viper.AddConfigPath(projectRoot)
	}
	viper.AddConfigPath(".")

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	SetDefaults()
	return nil
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("SNAPSHOT_BACKEND", BackendFile)
	viper.SetDefault("SNAPSHOT_CODEC", "json")
	viper.SetDefault("SNAPSHOT_FILE", "rolegate-snapshot.json")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "rolegate")
	viper.SetDefault("DB_NAME", "rolegate_dev")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_MAX_ENTRIES", 10000)
	viper.SetDefault("CACHE_TTL_SECONDS", 0)

	viper.SetDefault("LOG_LEVEL", "info")
}

// Load loads configuration from viper
func Load() (*Config, error) {
	config := &Config{
		Snapshot: SnapshotConfig{
			Backend: viper.GetString("SNAPSHOT_BACKEND"),
			Codec:   viper.GetString("SNAPSHOT_CODEC"),
			File:    viper.GetString("SNAPSHOT_FILE"),
			Key:     viper.GetString("SNAPSHOT_KEY"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Enabled:    viper.GetBool("CACHE_ENABLED"),
			MaxEntries: viper.GetInt("CACHE_MAX_ENTRIES"),
			TTLSeconds: viper.GetInt("CACHE_TTL_SECONDS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if c.Snapshot.File == "" {
			return fmt.Errorf("SNAPSHOT_FILE is required for the file backend")
		}
	case BackendPostgres:
		// DB_PASSWORD is required for security
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q (want memory, file, postgres or redis)", c.Snapshot.Backend)
	}

	switch c.Snapshot.Codec {
	case "json", "proto":
	default:
		return fmt.Errorf("unknown SNAPSHOT_CODEC %q (want json or proto)", c.Snapshot.Codec)
	}

	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
