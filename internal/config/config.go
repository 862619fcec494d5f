package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Gazetteer GazetteerConfig `yaml:"gazetteer"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RecentEvaluations sizes the in-memory history behind /evaluations/recent.
	RecentEvaluations int `yaml:"recent_evaluations"`
}

type EngineConfig struct {
	SampleSegments    int           `yaml:"sample_segments"`
	LandingOffset     time.Duration `yaml:"landing_offset"`
	InstrumentMinutes int           `yaml:"instrument_minutes"`
	FlightWindows     []int         `yaml:"flight_windows"` // days
	DutyWindows       []int         `yaml:"duty_windows"`   // days
	ContextCache      bool          `yaml:"context_cache"`
}

type StoreConfig struct {
	Driver          string        `yaml:"driver"` // "sqlite" or "postgres"
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type GazetteerConfig struct {
	Path string `yaml:"path"`
}

type LimitsConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // "DEBUG", "INFO", "WARN", "ERROR"
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.setDefaults()

	// Load from file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RecentEvaluations = 100

	c.Engine.SampleSegments = 200
	c.Engine.LandingOffset = 3 * time.Minute
	c.Engine.InstrumentMinutes = 30
	c.Engine.FlightWindows = []int{7, 28, 365}
	c.Engine.DutyWindows = []int{7, 14}
	c.Engine.ContextCache = true

	c.Store.Driver = "sqlite"
	c.Store.DSN = "logbook.db"
	c.Store.MaxConns = 10
	c.Store.MinConns = 2
	c.Store.MaxConnLifetime = time.Hour
	c.Store.MaxConnIdleTime = 30 * time.Minute

	c.Cache.Addr = "localhost:6379"
	c.Cache.TTL = 10 * time.Minute

	c.RateLimit.RequestsPerSecond = 50
	c.RateLimit.BurstSize = 100

	c.Gazetteer.Path = "configs/airports.yaml"
	c.Limits.Path = "configs/fleet_limits.yaml"

	c.Logging.Level = "INFO"
}

func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}

	if dsn := os.Getenv("STORE_DSN"); dsn != "" {
		c.Store.DSN = dsn
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.Addr = addr
		c.Cache.Enabled = true
	}

	if path := os.Getenv("GAZETTEER_PATH"); path != "" {
		c.Gazetteer.Path = path
	}

	if path := os.Getenv("LIMITS_PATH"); path != "" {
		c.Limits.Path = path
	}

	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.Atoi(rps); err == nil {
			c.RateLimit.RequestsPerSecond = r
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Server.RecentEvaluations < 1 {
		return fmt.Errorf("recent evaluations must be at least 1")
	}

	if c.Engine.SampleSegments < 1 {
		return fmt.Errorf("sample segments must be at least 1")
	}

	if c.Engine.LandingOffset < 0 {
		return fmt.Errorf("landing offset must not be negative")
	}

	if c.Engine.InstrumentMinutes < 0 {
		return fmt.Errorf("instrument minutes must not be negative")
	}

	for _, d := range append(append([]int{}, c.Engine.FlightWindows...), c.Engine.DutyWindows...) {
		if d < 1 {
			return fmt.Errorf("window lengths must be at least 1 day, got %d", d)
		}
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres'")
	}

	if c.Store.DSN == "" {
		return fmt.Errorf("store DSN cannot be empty")
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache address cannot be empty when the cache is enabled")
	}

	if c.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("requests per second must be at least 1")
	}

	if c.RateLimit.BurstSize < 1 {
		return fmt.Errorf("burst size must be at least 1")
	}

	if c.Gazetteer.Path == "" {
		return fmt.Errorf("gazetteer path cannot be empty")
	}

	if c.Limits.Path == "" {
		return fmt.Errorf("limits path cannot be empty")
	}

	c.Logging.Level = strings.ToUpper(c.Logging.Level)
	if c.Logging.Level != "DEBUG" && c.Logging.Level != "INFO" && c.Logging.Level != "WARN" && c.Logging.Level != "ERROR" {
		return fmt.Errorf("log level must be 'DEBUG', 'INFO', 'WARN', or 'ERROR'")
	}

	return nil
}
