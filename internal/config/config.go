package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Download DownloadConfig `mapstructure:"download"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// CatalogConfig holds the catalog API configuration
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// DownloadConfig holds item download configuration
type DownloadConfig struct {
	CacheRoot            string   `mapstructure:"cache_root"`
	Timeout              int      `mapstructure:"timeout"`
	MaxInFlight          int      `mapstructure:"max_in_flight"`           // 0 means unbounded
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"` // 0 means unlimited
	Proxies              []string `mapstructure:"proxies"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	LockTTL       int    `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func (c CatalogConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c DownloadConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c RedisConfig) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// BindFlags registers command line overrides and binds them to their config keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("base-url", "", "catalog API base URL")
	flags.String("cache-root", "", "directory that receives one sub-directory per album")
	flags.Int("max-in-flight", 0, "maximum concurrent downloads (0 = unbounded)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	bindings := map[string]string{
		"catalog.base_url":       "base-url",
		"download.cache_root":    "cache-root",
		"download.max_in_flight": "max-in-flight",
		"log.level":              "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load loads configuration from an optional YAML file with environment variable overrides.
// An explicit path must exist; without one, config.yaml is looked up in the working directory.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must be set")
	}
	if c.Download.CacheRoot == "" {
		return fmt.Errorf("download.cache_root must be set")
	}
	if c.Download.MaxInFlight < 0 {
		return fmt.Errorf("download.max_in_flight must not be negative, got %d", c.Download.MaxInFlight)
	}
	if c.Download.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("download.max_requests_per_second must not be negative, got %d", c.Download.MaxRequestsPerSecond)
	}
	if c.Redis.Enabled && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lock_ttl must be positive when redis is enabled, got %d", c.Redis.LockTTL)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://jsonplaceholder.typicode.com")
	v.SetDefault("catalog.timeout", 60)

	v.SetDefault("download.cache_root", "./cache")
	v.SetDefault("download.timeout", 60)
	v.SetDefault("download.max_in_flight", 0)
	v.SetDefault("download.max_requests_per_second", 0)
	v.SetDefault("download.proxies", []string{})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "photocache")
	v.SetDefault("database.user", "photocache_user")
	v.SetDefault("database.password", "photocache_pass")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "photocache_consumer")
	v.SetDefault("redis.lock_ttl", 600)

	v.SetDefault("log.level", "info")
}
