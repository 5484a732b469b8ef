package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration of the filterable server
type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`       // Listen address (default: ":8080")
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // Request read timeout
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // Response write timeout
	BodyLimit    int           `mapstructure:"body_limit"`    // Maximum request body size in bytes
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"` // Serve from PostgreSQL instead of the in-memory store
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // Apply bundled migrations on startup
}

// ConnectionString returns the PostgreSQL connection URL
func (dc DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		dc.User,
		url.QueryEscape(dc.Password),
		dc.Host,
		dc.Port,
		dc.Database,
		dc.SSLMode,
	)
}

// Validate validates database configuration
func (dc *DatabaseConfig) Validate() error {
	if !dc.Enabled {
		return nil
	}
	if dc.Host == "" {
		return fmt.Errorf("database host cannot be empty when enabled")
	}
	if dc.Port < 1 || dc.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got: %d", dc.Port)
	}
	if dc.Database == "" {
		return fmt.Errorf("database name cannot be empty when enabled")
	}
	if dc.MaxConnections < 1 {
		return fmt.Errorf("database max_connections must be at least 1, got: %d", dc.MaxConnections)
	}
	if dc.MinConnections < 0 || dc.MinConnections > dc.MaxConnections {
		return fmt.Errorf("database min_connections must be between 0 and max_connections, got: %d", dc.MinConnections)
	}
	return nil
}

// APIConfig contains list endpoint settings
type APIConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`  // Rows per page when pageSize is absent (default: 25)
	MaxPageSize     int `mapstructure:"max_page_size"`      // Cap applied to pageSize (default: 250)
	RateLimitPerMin int `mapstructure:"rate_limit_per_min"` // Requests per minute per client on list endpoints (0 = disabled)
}

// Validate validates API configuration
func (ac *APIConfig) Validate() error {
	if ac.MaxPageSize < 1 {
		return fmt.Errorf("api max_page_size must be at least 1, got: %d", ac.MaxPageSize)
	}
	if ac.DefaultPageSize < 1 || ac.DefaultPageSize > ac.MaxPageSize {
		return fmt.Errorf("api default_page_size must be between 1 and max_page_size, got: %d", ac.DefaultPageSize)
	}
	if ac.RateLimitPerMin < 0 {
		return fmt.Errorf("api rate_limit_per_min cannot be negative, got: %d", ac.RateLimitPerMin)
	}
	return nil
}

// CatalogConfig tells the server which tables are filterable
type CatalogConfig struct {
	Path       string   `mapstructure:"path"`       // YAML catalog file
	Introspect []string `mapstructure:"introspect"` // "schema.table" entries read from information_schema
}

// RedisConfig contains the optional total row count cache settings
type RedisConfig struct {
	URL      string        `mapstructure:"url"`       // redis:// URL (empty = no cache)
	CountTTL time.Duration `mapstructure:"count_ttl"` // Lifetime of cached totals (default: 30s)
}

// Validate validates Redis configuration
func (rc *RedisConfig) Validate() error {
	if rc.URL == "" {
		return nil
	}
	if rc.CountTTL <= 0 {
		return fmt.Errorf("redis count_ttl must be positive, got: %v", rc.CountTTL)
	}
	return nil
}

// TracingConfig contains OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"` // OTLP gRPC endpoint (default: "localhost:4317")
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// Validate validates tracing configuration
func (tc *TracingConfig) Validate() error {
	if !tc.Enabled {
		return nil
	}
	if tc.Endpoint == "" {
		return fmt.Errorf("tracing endpoint cannot be empty when enabled")
	}
	return nil
}

// Validate validates the whole configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if c.Catalog.Path == "" && len(c.Catalog.Introspect) == 0 {
		return fmt.Errorf("catalog path or introspect tables must be configured")
	}
	if len(c.Catalog.Introspect) > 0 && !c.Database.Enabled {
		return fmt.Errorf("catalog introspection requires the database to be enabled")
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	return c.Tracing.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.body_limit", 1*1024*1024)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "filterable")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("api.default_page_size", 25)
	v.SetDefault("api.max_page_size", 250)
	v.SetDefault("api.rate_limit_per_min", 0)

	v.SetDefault("catalog.path", "catalog.yaml")
	v.SetDefault("catalog.introspect", []string{})

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.count_ttl", 30*time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "filterable")
}

// Load reads configuration from an optional file and FILTERABLE_* environment
// variables (e.g. FILTERABLE_DATABASE_HOST), then validates it
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FILTERABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("filterable")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/filterable")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
