// Package config provides configuration loading for the copilot service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the copilot service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Cases      CasesConfig      `mapstructure:"cases"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the connection string for pgx and golang-migrate.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// OpenSearchConfig holds event index connection settings
type OpenSearchConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

// RedisConfig holds Redis configuration for locks and pass state
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// CasesConfig holds case-management system settings
type CasesConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// AuthConfig holds admin API token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// AnalysisConfig bounds the correlation passes
type AnalysisConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	MaxPages     int           `mapstructure:"max_pages"`
	Lookback     time.Duration `mapstructure:"lookback"`
	WorkerBatch  int           `mapstructure:"worker_batch"`
	Interval     time.Duration `mapstructure:"interval"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	MarkExcluded bool          `mapstructure:"mark_excluded"`

	WazuhFailureThreshold      int `mapstructure:"wazuh_failure_threshold"`
	O365FailureThreshold       int `mapstructure:"o365_failure_threshold"`
	SuricataSignatureThreshold int `mapstructure:"suricata_signature_threshold"`
	SAPDistinctUserThreshold   int `mapstructure:"sap_distinct_user_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "copilot")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "copilot")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.insecure", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.state_ttl", "72h")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("cases.url", "http://localhost:8000")
	v.SetDefault("cases.api_key", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("analysis.batch_size", 500)
	v.SetDefault("analysis.max_pages", 10)
	v.SetDefault("analysis.lookback", "24h")
	v.SetDefault("analysis.worker_batch", 10)
	v.SetDefault("analysis.interval", "5m")
	v.SetDefault("analysis.lock_ttl", "15m")
	v.SetDefault("analysis.mark_excluded", false)
	v.SetDefault("analysis.wazuh_failure_threshold", 5)
	v.SetDefault("analysis.o365_failure_threshold", 5)
	v.SetDefault("analysis.suricata_signature_threshold", 10)
	v.SetDefault("analysis.sap_distinct_user_threshold", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/copilot")
	}

	// Environment variables override (COPILOT_SERVER_PORT, etc.)
	v.SetEnvPrefix("COPILOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config - ignore file not found for defaults
	if err := v.ReadInConfig(); err != nil {
		// Only fail if a specific config path was given
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Otherwise use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
