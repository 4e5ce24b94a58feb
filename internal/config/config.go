package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/crimpy/internal/intensity"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Auth      AuthConfig       `yaml:"auth"`
	Tailscale TailscaleConfig  `yaml:"tailscale"`
	Import    ImportConfig     `yaml:"import"`
	Log       LogConfig        `yaml:"log"`
	Cache     CacheConfig      `yaml:"cache"`
	Intensity intensity.Params `yaml:"intensity"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type ImportConfig struct {
	DataDir  string `yaml:"data_dir"`
	StateDir string `yaml:"state_dir"`
	// Workers bounds parallel evaluation; 0 uses GOMAXPROCS.
	Workers  int           `yaml:"workers"`
	Debounce time.Duration `yaml:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type CacheConfig struct {
	// SizeMB of zero disables the response cache.
	SizeMB int           `yaml:"size_mb"`
	TTL    time.Duration `yaml:"ttl"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database:  DatabaseConfig{Port: 5432, Name: "crimpy", User: "crimpy"},
		Tailscale: TailscaleConfig{Hostname: "crimpy", StateDir: "tsnet-state"},
		Import:    ImportConfig{DataDir: "data", StateDir: ".crimpy", Debounce: 2 * time.Second},
		Log:       LogConfig{Level: "info", Format: "text"},
		Cache:     CacheConfig{SizeMB: 16, TTL: time.Minute},
		Intensity: intensity.DefaultParams(),
	}
}

// Load reads config from a YAML file on top of Default, then applies environment
// variable overrides. An empty path skips the file. Env vars use the prefix CRIMPY_:
//
//	CRIMPY_SERVER_HOST, CRIMPY_SERVER_PORT,
//	CRIMPY_DB_HOST, CRIMPY_DB_PORT, CRIMPY_DB_NAME,
//	CRIMPY_DB_USER, CRIMPY_DB_PASSWORD, CRIMPY_DB_SSLMODE, CRIMPY_DB_MAX_CONNS,
//	CRIMPY_AUTH_API_KEY,
//	CRIMPY_TAILSCALE_ENABLED, CRIMPY_TAILSCALE_HOSTNAME,
//	CRIMPY_DATA_DIR, CRIMPY_STATE_DIR, CRIMPY_IMPORT_WORKERS,
//	CRIMPY_LOG_LEVEL, CRIMPY_LOG_FORMAT, CRIMPY_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := Default()

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
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("CRIMPY_SERVER_HOST", &cfg.Server.Host)
	setInt("CRIMPY_SERVER_PORT", &cfg.Server.Port)

	setString("CRIMPY_DB_HOST", &cfg.Database.Host)
	setInt("CRIMPY_DB_PORT", &cfg.Database.Port)
	setString("CRIMPY_DB_NAME", &cfg.Database.Name)
	setString("CRIMPY_DB_USER", &cfg.Database.User)
	setString("CRIMPY_DB_PASSWORD", &cfg.Database.Password)
	setString("CRIMPY_DB_SSLMODE", &cfg.Database.SSLMode)
	if v := os.Getenv("CRIMPY_DB_MAX_CONNS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.Database.MaxConns = int32(n)
		}
	}

	setString("CRIMPY_AUTH_API_KEY", &cfg.Auth.APIKey)

	if v := os.Getenv("CRIMPY_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("CRIMPY_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	setString("CRIMPY_DATA_DIR", &cfg.Import.DataDir)
	setString("CRIMPY_STATE_DIR", &cfg.Import.StateDir)
	setInt("CRIMPY_IMPORT_WORKERS", &cfg.Import.Workers)

	setString("CRIMPY_LOG_LEVEL", &cfg.Log.Level)
	setString("CRIMPY_LOG_FORMAT", &cfg.Log.Format)
	setString("CRIMPY_LOG_FILE", &cfg.Log.File)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Import.Workers < 0 {
		return fmt.Errorf("import.workers must not be negative")
	}
	if c.Import.Debounce <= 0 {
		return fmt.Errorf("import.debounce must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Cache.SizeMB < 0 {
		return fmt.Errorf("cache.size_mb must not be negative")
	}
	if c.Cache.SizeMB > 0 && c.Cache.TTL < time.Second {
		return fmt.Errorf("cache.ttl must be at least 1s when the cache is enabled")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return c.Intensity.Validate()
}

// RequireDatabase reports whether the database section is complete. Only commands that
// connect to PostgreSQL call it; the offline report runs without one.
func (c *Config) RequireDatabase() error {
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
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	return nil
}

// RequireServer checks what the API server needs on top of the database.
func (c *Config) RequireServer() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}
