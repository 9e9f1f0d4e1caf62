package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded from environment
// variables (optionally seeded from a .env file by the caller).
type Config struct {
	Service   ServiceConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Warehouse WarehouseConfig
	Nats      NatsConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds warehouse connection settings.
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
	HealthCheck time.Duration
}

// WarehouseConfig holds review-workflow settings.
type WarehouseConfig struct {
	ViewSchema   string // schema approved views are created under
	PreviewLimit int    // default row limit for query previews
}

// NatsConfig holds notification publishing settings. An empty URL disables
// publishing entirely.
type NatsConfig struct {
	URL           string
	SubjectPrefix string
}

// Load reads configuration from the environment with sane defaults.
// Keys are dot-separated and map to underscore env vars, e.g.
// database.host -> DATABASE_HOST.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service.name", "report-approval")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "warehouse")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_time", "1h")
	v.SetDefault("database.max_idle_time", "30m")
	v.SetDefault("database.health_check", "1m")

	v.SetDefault("warehouse.view_schema", "kyc_gold")
	v.SetDefault("warehouse.preview_limit", 20)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "notifications.reports")

	cfg := &Config{
		Service: ServiceConfig{
			Name:        v.GetString("service.name"),
			Version:     v.GetString("service.version"),
			Environment: v.GetString("service.environment"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("database.host"),
			Port:        v.GetInt("database.port"),
			User:        v.GetString("database.user"),
			Password:    v.GetString("database.password"),
			Database:    v.GetString("database.database"),
			SSLMode:     v.GetString("database.sslmode"),
			MaxConns:    v.GetInt32("database.max_conns"),
			MinConns:    v.GetInt32("database.min_conns"),
			MaxConnTime: v.GetDuration("database.max_conn_time"),
			MaxIdleTime: v.GetDuration("database.max_idle_time"),
			HealthCheck: v.GetDuration("database.health_check"),
		},
		Warehouse: WarehouseConfig{
			ViewSchema:   v.GetString("warehouse.view_schema"),
			PreviewLimit: v.GetInt("warehouse.preview_limit"),
		},
		Nats: NatsConfig{
			URL:           v.GetString("nats.url"),
			SubjectPrefix: v.GetString("nats.subject_prefix"),
		},
	}

	return cfg, nil
}
