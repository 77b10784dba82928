// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Metadata MetadataConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Mode            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// DSN renders the connection settings as a postgres:// URL, the form accepted
// by both pgxpool and golang-migrate.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// RedisConfig contains the metadata cache connection.
type RedisConfig struct {
	URL      string
	Enabled  bool
	CacheTTL time.Duration
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration for
// moderation events.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host             string
	User             string
	Password         string
	Exchange         string
	Queue            string
	RoutingKeyPrefix string
	Port             int
	Enabled          bool
	ConfirmTimeout   time.Duration
}

// URL renders the AMQP connection URL.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.User, r.Password, r.Host, r.Port)
}

// MetadataConfig contains the external video metadata API settings.
type MetadataConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig lists the API keys allowed to enqueue videos. An empty list
// leaves ingestion open.
type AuthConfig struct {
	APIKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// APP_DATABASE_HOST -> database.host
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database minconnections (%d) exceeds maxconnections (%d)",
			c.Database.MinConnections, c.Database.MaxConnections)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis is enabled but redis.url is empty")
	}
	if c.Metadata.BaseURL == "" {
		return fmt.Errorf("metadata baseurl is required")
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 15*time.Second)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "moderation")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.cachettl", time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "moderation.events")
	viper.SetDefault("rabbitmq.queue", "moderation.events.audit")
	viper.SetDefault("rabbitmq.routingkeyprefix", "video")
	viper.SetDefault("rabbitmq.confirmtimeout", 5*time.Second)

	// Metadata
	viper.SetDefault("metadata.baseurl", "https://api.dailymotion.com/video/")
	viper.SetDefault("metadata.timeout", 10*time.Second)

	// Auth
	viper.SetDefault("auth.apikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
