package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/meltforce/titanlift/internal/kv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Coach     CoachConfig     `yaml:"coach"`
	Draft     DraftConfig     `yaml:"draft"`
	Log       LogConfig       `yaml:"log"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig guards mutating routes. An empty key leaves the API open,
// which is the normal setup behind tailscale.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Namespace string `yaml:"namespace"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type CoachConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Endpoint   string        `yaml:"endpoint"`
	Deployment string        `yaml:"deployment"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type DraftConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	Stdout bool   `yaml:"stdout"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Coach providers.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderAzure  = "azure"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// KVOptions translates the store sections into kv.Open options.
func (c *Config) KVOptions() kv.Options {
	return kv.Options{
		Driver:        c.Store.Driver,
		SQLitePath:    c.SQLite.Path,
		PostgresDSN:   c.Database.DSN(),
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
	}
}

// Defaults returns the configuration used for any field the file leaves out.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Store:  StoreConfig{Driver: kv.DriverSQLite, Namespace: "titanlift_"},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			Name: "titanlift",
			User: "titanlift",
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		SQLite: SQLiteConfig{Path: "data/titanlift.db"},
		Coach: CoachConfig{
			Provider: ProviderNone,
			Model:    "gemini-2.5-flash",
			Timeout:  20 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Draft:     DraftConfig{Debounce: 500 * time.Millisecond},
		Log:       LogConfig{Level: "info", Format: "text", Stdout: true},
		Tailscale: TailscaleConfig{Hostname: "titanlift", StateDir: "data/tsnet"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix TITANLIFT_ and underscore-separated paths:
//
//	TITANLIFT_SERVER_HOST, TITANLIFT_SERVER_PORT, TITANLIFT_AUTH_API_KEY,
//	TITANLIFT_STORE_DRIVER, TITANLIFT_STORE_NAMESPACE, TITANLIFT_SQLITE_PATH,
//	TITANLIFT_DB_HOST, TITANLIFT_DB_PORT, TITANLIFT_DB_NAME,
//	TITANLIFT_DB_USER, TITANLIFT_DB_PASSWORD, TITANLIFT_DB_SSLMODE,
//	TITANLIFT_REDIS_ADDR, TITANLIFT_REDIS_PASSWORD, TITANLIFT_REDIS_DB,
//	TITANLIFT_COACH_PROVIDER, TITANLIFT_COACH_API_KEY, TITANLIFT_COACH_MODEL,
//	TITANLIFT_COACH_ENDPOINT, TITANLIFT_COACH_DEPLOYMENT,
//	TITANLIFT_LOG_LEVEL, TITANLIFT_LOG_FILE
//
// An empty path skips the file and starts from Defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("TITANLIFT_SERVER_HOST", &cfg.Server.Host)
	num("TITANLIFT_SERVER_PORT", &cfg.Server.Port)
	str("TITANLIFT_AUTH_API_KEY", &cfg.Auth.APIKey)

	str("TITANLIFT_STORE_DRIVER", &cfg.Store.Driver)
	str("TITANLIFT_STORE_NAMESPACE", &cfg.Store.Namespace)
	str("TITANLIFT_SQLITE_PATH", &cfg.SQLite.Path)

	str("TITANLIFT_DB_HOST", &cfg.Database.Host)
	num("TITANLIFT_DB_PORT", &cfg.Database.Port)
	str("TITANLIFT_DB_NAME", &cfg.Database.Name)
	str("TITANLIFT_DB_USER", &cfg.Database.User)
	str("TITANLIFT_DB_PASSWORD", &cfg.Database.Password)
	str("TITANLIFT_DB_SSLMODE", &cfg.Database.SSLMode)

	str("TITANLIFT_REDIS_ADDR", &cfg.Redis.Addr)
	str("TITANLIFT_REDIS_PASSWORD", &cfg.Redis.Password)
	num("TITANLIFT_REDIS_DB", &cfg.Redis.DB)

	str("TITANLIFT_COACH_PROVIDER", &cfg.Coach.Provider)
	str("TITANLIFT_COACH_API_KEY", &cfg.Coach.APIKey)
	str("TITANLIFT_COACH_MODEL", &cfg.Coach.Model)
	str("TITANLIFT_COACH_ENDPOINT", &cfg.Coach.Endpoint)
	str("TITANLIFT_COACH_DEPLOYMENT", &cfg.Coach.Deployment)

	str("TITANLIFT_LOG_LEVEL", &cfg.Log.Level)
	str("TITANLIFT_LOG_FILE", &cfg.Log.File)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Store.Namespace == "" {
		return fmt.Errorf("store.namespace is required")
	}

	switch c.Store.Driver {
	case kv.DriverMemory:
	case kv.DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite driver")
		}
	case kv.DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case kv.DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres, redis", c.Store.Driver)
	}

	switch c.Coach.Provider {
	case ProviderNone, "":
	case ProviderGemini:
		if c.Coach.APIKey == "" {
			return fmt.Errorf("coach.api_key is required for gemini")
		}
	case ProviderAzure:
		if c.Coach.APIKey == "" || c.Coach.Endpoint == "" || c.Coach.Deployment == "" {
			return fmt.Errorf("coach.api_key, coach.endpoint and coach.deployment are required for azure")
		}
	default:
		return fmt.Errorf("coach.provider %q is not one of none, gemini, azure", c.Coach.Provider)
	}
	if c.Coach.Timeout <= 0 {
		return fmt.Errorf("coach.timeout must be positive")
	}

	if c.Draft.Debounce < 0 {
		return fmt.Errorf("draft.debounce must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
