package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"

	MinPageSize = 1
	MaxPageSize = 50
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	SlotKey    string `yaml:"slot_key"`
	RedisAddr  string `yaml:"redis_addr"`
	MySQLDSN   string `yaml:"mysql_dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

type CatalogConfig struct {
	BaseURL         string        `yaml:"base_url"`
	PageSize        int           `yaml:"page_size"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type SessionsConfig struct {
	Idle time.Duration `yaml:"idle"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SlotKey:    "cart",
			RedisAddr:  "localhost:6379",
			MySQLDSN:   "root:root@tcp(localhost:3306)/storefront?parseTime=true",
			SQLitePath: "storefront.db",
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://fakestoreapi.com",
			PageSize:        10,
			Timeout:         10 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Sessions: SessionsConfig{
			Idle: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "storefront",
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.MySQLDSN, "MYSQL_DSN")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	setString(&c.HTTP.Addr, "STOREFRONT_HTTP_ADDR")
	setString(&c.GRPC.Addr, "STOREFRONT_GRPC_ADDR")
	setString(&c.Storage.Backend, "STOREFRONT_STORAGE_BACKEND")
	setString(&c.Storage.SlotKey, "STOREFRONT_SLOT_KEY")
	setString(&c.Storage.SQLitePath, "STOREFRONT_SQLITE_PATH")
	setString(&c.Catalog.BaseURL, "STOREFRONT_CATALOG_URL")

	if v := os.Getenv("STOREFRONT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Catalog.PageSize = n
		}
	}
}

// Validate rejects unusable settings and clamps the page size into range.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for the redis backend")
		}
	case BackendMySQL:
		if c.Storage.MySQLDSN == "" {
			return errors.New("storage.mysql_dsn is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Backend == BackendSQLite && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required for the sqlite backend")
	}
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url is required")
	}

	if c.Catalog.PageSize < MinPageSize {
		c.Catalog.PageSize = MinPageSize
	}
	if c.Catalog.PageSize > MaxPageSize {
		c.Catalog.PageSize = MaxPageSize
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
