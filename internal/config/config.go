// Package config resolves runtime settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Error names the offending setting.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error { return ErrInvalidConfiguration }

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Admin     AdminConfig     `yaml:"admin"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	TLS             bool          `yaml:"tls"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	CatalogSeed string `yaml:"catalog_seed"`
}

type StorageConfig struct {
	Driver        string        `yaml:"driver"`
	FilePath      string        `yaml:"file_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	CartTTL       time.Duration `yaml:"cart_ttl"`
	CartCacheSize int           `yaml:"cart_cache_size"`
}

// AdminConfig holds the bcrypt hash of the admin API key. Empty disables the admin routes.
type AdminConfig struct {
	KeyHash string `yaml:"key_hash"`
}

type EmailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	StudioEmail string `yaml:"studio_email"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            9394,
			CertFile:        "cert.pem",
			KeyFile:         "key.pem",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data.json",
		},
		Storage: StorageConfig{
			Driver:        "file",
			FilePath:      "./carts.json",
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "studiorent:",
			CartTTL:       7 * 24 * time.Hour,
			CartCacheSize: 1024,
		},
		Email: EmailConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "studiorent",
		},
	}
}

// Load applies defaults, then path (when non-empty), then the environment, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromFile(path string) error {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return &Error{Field: "file", Message: fmt.Sprintf("unsupported extension %q", ext)}
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays STUDIORENT_* variables plus the conventional PORT,
// REDIS_ADDR and SMTP_* names. Unparseable numbers are ignored.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("STUDIORENT_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := firstEnv("STUDIORENT_PORT", "PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("STUDIORENT_TLS"); v != "" {
		c.Server.TLS = parseBool(v)
	}
	if v := os.Getenv("STUDIORENT_CERT_FILE"); v != "" {
		c.Server.CertFile = v
	}
	if v := os.Getenv("STUDIORENT_KEY_FILE"); v != "" {
		c.Server.KeyFile = v
	}

	if v := os.Getenv("STUDIORENT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("STUDIORENT_CATALOG_SEED"); v != "" {
		c.Database.CatalogSeed = v
	}

	if v := os.Getenv("STUDIORENT_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("STUDIORENT_STORAGE_FILE"); v != "" {
		c.Storage.FilePath = v
	}
	if v := firstEnv("STUDIORENT_REDIS_ADDR", "REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("STUDIORENT_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("STUDIORENT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Storage.RedisDB = db
		}
	}
	if v := os.Getenv("STUDIORENT_CART_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Storage.CartTTL = d
		}
	}
	if v := os.Getenv("STUDIORENT_CART_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.CartCacheSize = n
		}
	}

	if v := os.Getenv("STUDIORENT_ADMIN_KEY_HASH"); v != "" {
		c.Admin.KeyHash = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Email.Port = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.Email.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv("STUDIORENT_STUDIO_EMAIL"); v != "" {
		c.Email.StudioEmail = v
	}

	if v := os.Getenv("STUDIORENT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STUDIORENT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("STUDIORENT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &Error{Field: "server.port", Message: fmt.Sprintf("invalid port: %d", c.Server.Port)}
	}
	if c.Database.Path == "" {
		return &Error{Field: "database.path", Message: "required"}
	}
	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.FilePath == "" {
			return &Error{Field: "storage.file_path", Message: "required for the file driver"}
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return &Error{Field: "storage.redis_addr", Message: "required for the redis driver"}
		}
	default:
		return &Error{Field: "storage.driver", Message: fmt.Sprintf("unknown driver %q", c.Storage.Driver)}
	}
	if c.Storage.CartTTL < 0 {
		return &Error{Field: "storage.cart_ttl", Message: "must not be negative"}
	}
	if c.Storage.CartCacheSize < 1 {
		return &Error{Field: "storage.cart_cache_size", Message: "must be positive"}
	}
	if c.Admin.KeyHash != "" && !strings.HasPrefix(c.Admin.KeyHash, "$2") {
		return &Error{Field: "admin.key_hash", Message: "must be a bcrypt hash"}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return &Error{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
