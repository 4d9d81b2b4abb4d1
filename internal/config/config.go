package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable holding the optional YAML config path.
const ConfigFileEnv = "TIBACK_CONFIG"

// Config holds all application configuration
type Config struct {
	// Backend REST API
	API APIConfig `yaml:"api"`

	// Real-time transport
	WebSocket WebSocketConfig `yaml:"websocket"`

	// Where the session is persisted
	Session SessionConfig `yaml:"session"`

	// Real-time sync and polling fallback
	Sync SyncConfig `yaml:"sync"`

	// Optional notification relay
	Kafka KafkaConfig `yaml:"kafka"`

	// Optional image object store
	MinIO MinIOConfig `yaml:"minio"`

	// Local status server of the watch daemon
	Status StatusConfig `yaml:"status"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`

	// Application metadata
	App AppConfig `yaml:"app"`
}

// APIConfig holds backend REST configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WebSocketConfig holds WebSocket configuration. An empty URL means the
// backend origin.
type WebSocketConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	SendBuffer       int           `yaml:"send_buffer"`
}

// Session backends
const (
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionConfig holds session persistence configuration
type SessionConfig struct {
	Backend string `yaml:"backend"`
	// Path and Passphrase apply to the file backend. An empty passphrase
	// stores the session unencrypted.
	Path       string `yaml:"path"`
	Passphrase string `yaml:"passphrase"`
	// Namespace separates sessions sharing one Redis.
	Namespace string        `yaml:"namespace"`
	Redis     RedisConfig   `yaml:"redis"`
	TTL       time.Duration `yaml:"ttl"`
}

// RedisConfig holds the Redis session backend connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SyncConfig holds sync and polling configuration
type SyncConfig struct {
	PollInterval          time.Duration `yaml:"poll_interval"`
	NotificationRetention int           `yaml:"notification_retention"`
	RefetchRPS            float64       `yaml:"refetch_rps"`
	RefetchBurst          int           `yaml:"refetch_burst"`
	RefetchTimeout        time.Duration `yaml:"refetch_timeout"`
	OutboxSize            int           `yaml:"outbox_size"`
	// RefreshWindow renews the access token this long before it expires.
	RefreshWindow time.Duration `yaml:"refresh_window"`
}

// KafkaConfig holds the notification relay configuration. Empty Brokers
// disables the relay.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether the relay is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// MinIOConfig holds the object store configuration. An empty Endpoint keeps
// uploads on the backend.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// Enabled reports whether uploads go to the object store.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// StatusConfig holds the status server configuration
type StatusConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	SyncRPS         float64       `yaml:"sync_rps"`
	SyncBurst       int           `yaml:"sync_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			HandshakeTimeout: 10 * time.Second,
			SendBuffer:       64,
		},
		Session: SessionConfig{
			Backend:   SessionBackendFile,
			Path:      defaultSessionPath(),
			Namespace: "default",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tiback",
			},
		},
		Sync: SyncConfig{
			PollInterval:          5 * time.Second,
			NotificationRetention: 200,
			RefetchRPS:            1,
			RefetchBurst:          2,
			RefetchTimeout:        30 * time.Second,
			OutboxSize:            256,
			RefreshWindow:         2 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic:        "tiback.notifications",
			WriteTimeout: 5 * time.Second,
		},
		MinIO: MinIOConfig{
			Bucket: "tiback-tickets",
			Region: "us-east-1",
		},
		Status: StatusConfig{
			Enabled:         true,
			Addr:            "127.0.0.1:8787",
			SyncRPS:         0.2,
			SyncBurst:       2,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		App: AppConfig{
			Name:        "tiback",
			Version:     "dev",
			Environment: "development",
		},
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tiback", "session.json")
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $TIBACK_CONFIG), then environment variables, which may come from .env.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := cfg.overlayYAML(data); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayYAML decodes data over the current values. Unknown keys are errors
// so typos do not silently fall back to defaults.
func (c *Config) overlayYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnvOrDefault("TIBACK_BACKEND_URL", getEnvOrDefault("BACKEND_URL", c.API.BaseURL))
	c.API.Timeout = getDurationOrDefault("TIBACK_API_TIMEOUT", c.API.Timeout)

	c.WebSocket.URL = getEnvOrDefault("TIBACK_WS_URL", c.WebSocket.URL)
	c.WebSocket.HandshakeTimeout = getDurationOrDefault("WS_HANDSHAKE_TIMEOUT", c.WebSocket.HandshakeTimeout)
	c.WebSocket.SendBuffer = getIntOrDefault("WS_SEND_BUFFER", c.WebSocket.SendBuffer)

	c.Session.Backend = getEnvOrDefault("SESSION_BACKEND", c.Session.Backend)
	c.Session.Path = getEnvOrDefault("SESSION_PATH", c.Session.Path)
	c.Session.Passphrase = getEnvOrDefault("SESSION_PASSPHRASE", c.Session.Passphrase)
	c.Session.Namespace = getEnvOrDefault("SESSION_NAMESPACE", c.Session.Namespace)
	c.Session.TTL = getDurationOrDefault("SESSION_TTL", c.Session.TTL)
	c.Session.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Session.Redis.Addr)
	c.Session.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Session.Redis.Password)
	c.Session.Redis.DB = getIntOrDefault("REDIS_DB", c.Session.Redis.DB)
	c.Session.Redis.Prefix = getEnvOrDefault("REDIS_PREFIX", c.Session.Redis.Prefix)

	c.Sync.PollInterval = getDurationOrDefault("SYNC_POLL_INTERVAL", c.Sync.PollInterval)
	c.Sync.NotificationRetention = getIntOrDefault("SYNC_NOTIFICATION_RETENTION", c.Sync.NotificationRetention)
	c.Sync.RefetchRPS = getFloatOrDefault("SYNC_REFETCH_RPS", c.Sync.RefetchRPS)
	c.Sync.RefetchBurst = getIntOrDefault("SYNC_REFETCH_BURST", c.Sync.RefetchBurst)
	c.Sync.RefetchTimeout = getDurationOrDefault("SYNC_REFETCH_TIMEOUT", c.Sync.RefetchTimeout)
	c.Sync.OutboxSize = getIntOrDefault("SYNC_OUTBOX_SIZE", c.Sync.OutboxSize)
	c.Sync.RefreshWindow = getDurationOrDefault("SYNC_REFRESH_WINDOW", c.Sync.RefreshWindow)

	c.Kafka.Brokers = getStringSliceOrDefault("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnvOrDefault("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.WriteTimeout = getDurationOrDefault("KAFKA_WRITE_TIMEOUT", c.Kafka.WriteTimeout)

	c.MinIO.Endpoint = getEnvOrDefault("MINIO_ENDPOINT", c.MinIO.Endpoint)
	c.MinIO.AccessKey = getEnvOrDefault("MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnvOrDefault("MINIO_SECRET_KEY", c.MinIO.SecretKey)
	c.MinIO.Bucket = getEnvOrDefault("MINIO_BUCKET", c.MinIO.Bucket)
	c.MinIO.Region = getEnvOrDefault("MINIO_REGION", c.MinIO.Region)
	c.MinIO.UseSSL = getBoolOrDefault("MINIO_USE_SSL", c.MinIO.UseSSL)
	c.MinIO.PublicURL = getEnvOrDefault("MINIO_PUBLIC_URL", c.MinIO.PublicURL)

	c.Status.Enabled = getBoolOrDefault("STATUS_ENABLED", c.Status.Enabled)
	c.Status.Addr = getEnvOrDefault("STATUS_ADDR", c.Status.Addr)
	c.Status.AllowedOrigins = getStringSliceOrDefault("STATUS_ALLOWED_ORIGINS", c.Status.AllowedOrigins)
	c.Status.SyncRPS = getFloatOrDefault("STATUS_SYNC_RPS", c.Status.SyncRPS)
	c.Status.SyncBurst = getIntOrDefault("STATUS_SYNC_BURST", c.Status.SyncBurst)
	c.Status.ShutdownTimeout = getDurationOrDefault("STATUS_SHUTDOWN_TIMEOUT", c.Status.ShutdownTimeout)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)

	c.App.Name = getEnvOrDefault("APP_NAME", c.App.Name)
	c.App.Version = getEnvOrDefault("APP_VERSION", c.App.Version)
	c.App.Environment = getEnvOrDefault("APP_ENV", c.App.Environment)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.API.BaseURL == "" {
		errs = append(errs, "TIBACK_BACKEND_URL is required")
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "TIBACK_BACKEND_URL must be an http(s) URL")
	}

	if c.WebSocket.URL != "" {
		if u, err := url.Parse(c.WebSocket.URL); err != nil || u.Host == "" {
			errs = append(errs, "TIBACK_WS_URL must be an absolute URL")
		}
	}

	switch c.Session.Backend {
	case SessionBackendFile:
		if c.Session.Path == "" {
			errs = append(errs, "SESSION_PATH is required for the file backend")
		}
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.Redis.Addr == "" {
			errs = append(errs, "REDIS_ADDR is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("SESSION_BACKEND must be one of file, memory, redis (got %q)", c.Session.Backend))
	}

	if c.Sync.PollInterval <= 0 {
		errs = append(errs, "SYNC_POLL_INTERVAL must be positive")
	}
	if c.Sync.NotificationRetention <= 0 {
		errs = append(errs, "SYNC_NOTIFICATION_RETENTION must be positive")
	}
	if c.Sync.RefetchRPS <= 0 || c.Sync.RefetchBurst <= 0 {
		errs = append(errs, "SYNC_REFETCH_RPS and SYNC_REFETCH_BURST must be positive")
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, "KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.MinIO.Enabled() {
		if c.MinIO.Bucket == "" {
			errs = append(errs, "MINIO_BUCKET is required when MINIO_ENDPOINT is set")
		}
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
		}
	}

	if c.Status.Enabled && c.Status.Addr == "" {
		errs = append(errs, "STATUS_ADDR is required when the status server is enabled")
	}

	// Security validations
	if c.IsProduction() {
		if c.Session.Backend == SessionBackendFile && c.Session.Passphrase == "" {
			errs = append(errs, "SESSION_PASSPHRASE must be set in production")
		}
		if strings.HasPrefix(c.API.BaseURL, "http://") {
			errs = append(errs, "TIBACK_BACKEND_URL must use https in production")
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{API: %s, Session: %s%s, Redis: %s, Kafka: %v, MinIO: %s, Status: %s, Environment: %s}",
		c.API.BaseURL,
		c.Session.Backend,
		redactSecret(" passphrase=", c.Session.Passphrase),
		redactURL(c.Session.Redis.Addr, c.Session.Redis.Password),
		c.Kafka.Brokers,
		redactURL(c.MinIO.Endpoint, c.MinIO.SecretKey),
		c.Status.Addr,
		c.App.Environment,
	)
}

func redactSecret(label, secret string) string {
	if secret == "" {
		return ""
	}
	return label + "[REDACTED]"
}

// redactURL marks an address whose credentials were withheld.
func redactURL(addr, secret string) string {
	if addr == "" {
		return ""
	}
	if secret != "" {
		return "[REDACTED]@" + addr
	}
	return addr
}
