package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/logging"
)

// Config holds all configuration for the configuration bot and its
// collaborator servers.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Store         StoreConfig         `yaml:"store"`
	Health        HealthConfig        `yaml:"health"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// OracleConfig defines Ollama connection settings
type OracleConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
	NumCtx  int    `yaml:"num_ctx"`
}

// GetTimeout returns the timeout as a time.Duration
func (o *OracleConfig) GetTimeout() time.Duration {
	return parseDuration(o.Timeout, 180*time.Second)
}

// CollaboratorsConfig locates the schema and values services.
type CollaboratorsConfig struct {
	SchemaURL string `yaml:"schema_url"`
	ValuesURL string `yaml:"values_url"`
	Timeout   string `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration
func (c *CollaboratorsConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// StoreConfig selects where the collaborator servers read documents from.
type StoreConfig struct {
	Backend   string      `yaml:"backend"`
	SchemaDir string      `yaml:"schema_dir"`
	ValuesDir string      `yaml:"values_dir"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HealthConfig defines dependency probe settings
type HealthConfig struct {
	Schedule string `yaml:"schedule"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 5003},
		Oracle: OracleConfig{
			URL:     "http://host.docker.internal:11434",
			Model:   "qwen2.5:3b-instruct",
			Timeout: "180s",
			NumCtx:  8192,
		},
		Collaborators: CollaboratorsConfig{
			SchemaURL: "http://localhost:5001",
			ValuesURL: "http://localhost:5002",
			Timeout:   "10s",
		},
		Store: StoreConfig{
			Backend:   "file",
			SchemaDir: "/data/schemas",
			ValuesDir: "/data/values",
			Redis:     RedisConfig{Prefix: "configbot"},
		},
		Health:  HealthConfig{Schedule: "@every 30s"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load loads configuration from a YAML file with environment variable
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// A malformed BOT_LISTEN leaves the config unchanged and is returned.
func (c *Config) applyEnvOverrides() error {
	if url := os.Getenv("SCHEMA_SERVICE_URL"); url != "" {
		c.Collaborators.SchemaURL = url
	}
	if url := os.Getenv("VALUES_SERVICE_URL"); url != "" {
		c.Collaborators.ValuesURL = url
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		c.Oracle.URL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Oracle.Model = model
	}
	if timeout := os.Getenv("OLLAMA_TIMEOUT"); timeout != "" {
		c.Oracle.Timeout = timeout
	}
	if listen := os.Getenv("BOT_LISTEN"); listen != "" {
		host, portStr, err := net.SplitHostPort(listen)
		if err != nil {
			return fmt.Errorf("invalid BOT_LISTEN %q: %w", listen, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid BOT_LISTEN port %q", portStr)
		}
		c.Server.Host = host
		c.Server.Port = port
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Redis.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Oracle.URL == "" {
		return fmt.Errorf("oracle URL is required")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle model is required")
	}
	if c.Collaborators.SchemaURL == "" || c.Collaborators.ValuesURL == "" {
		return fmt.Errorf("schema and values service URLs are required")
	}
	for name, d := range map[string]string{"oracle.timeout": c.Oracle.Timeout, "collaborators.timeout": c.Collaborators.Timeout} {
		if d == "" {
			continue
		}
		if v, err := time.ParseDuration(d); err != nil || v <= 0 {
			return fmt.Errorf("invalid %s: %q", name, d)
		}
	}
	switch c.Store.Backend {
	case "file":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires store.redis.addr")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Health.Schedule != "" {
		if _, err := cron.ParseStandard(c.Health.Schedule); err != nil {
			return fmt.Errorf("invalid health schedule %q: %w", c.Health.Schedule, err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
