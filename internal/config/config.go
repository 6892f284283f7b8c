// Package config loads service configuration from a YAML file with
// environment overrides. A .env file, when present, is loaded first so
// local development needs no exported variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/safetycheck/safetycheck/internal/adapter"
	"github.com/safetycheck/safetycheck/internal/cache"
	"github.com/safetycheck/safetycheck/internal/classifier"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/media"
	"github.com/safetycheck/safetycheck/internal/ratelimit"
)

const (
	defaultServerHost      = "0.0.0.0"
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCacheTTL        = time.Hour
	defaultClassifierRPS   = 10
)

// Cache backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the root service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging logger.Config `yaml:"logging"`

	Cache CacheConfig       `yaml:"cache"`
	Media media.CacheConfig `yaml:"media"`

	Quota ratelimit.QuotaConfig `yaml:"quota"`
	Abuse ratelimit.AbuseConfig `yaml:"abuse"`

	Classifier    classifier.OpenAIConfig `yaml:"classifier"`
	ClassifierRPS int                     `yaml:"classifier_rps"`

	Adapters AdapterConfig `yaml:"adapters"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Debug           bool          `yaml:"debug"`
}

// Address returns the listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend string            `yaml:"backend"` // memory or redis
	TTL     time.Duration     `yaml:"ttl"`
	Redis   cache.RedisConfig `yaml:"redis"`
}

// AdapterConfig groups the per-platform adapter settings.
type AdapterConfig struct {
	Reddit   adapter.RedditConfig   `yaml:"reddit"`
	Twitter  adapter.TwitterConfig  `yaml:"twitter"`
	Telegram adapter.TelegramConfig `yaml:"telegram"`
}

// Load reads configuration from path. An empty path or a missing file
// yields the defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.setDefaults()
	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultServerTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultServerTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.ClassifierRPS == 0 {
		c.ClassifierRPS = defaultClassifierRPS
	}

	c.Media.SetDefaults()
	c.Quota.SetDefaults()
	c.Abuse.SetDefaults()
	c.Classifier.SetDefaults()
	c.Adapters.Reddit.SetDefaults()
	c.Adapters.Twitter.SetDefaults()
	c.Adapters.Telegram.SetDefaults()
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = ttl
		}
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Cache.Redis.Address = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.Redis.DB = db
		}
	}
	if v := os.Getenv("MEDIA_CACHE_DIR"); v != "" {
		c.Media.Dir = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Classifier.Model = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		c.Adapters.Reddit.UserAgent = v
	}
}

// Validate checks cross-field constraints not covered by defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.Redis.Address == "" {
			return errors.New("cache.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.ClassifierRPS < 0 {
		return errors.New("classifier_rps must be non-negative")
	}
	return nil
}
