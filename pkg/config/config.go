package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Webhook struct {
		RateLimit struct {
			Enabled  bool    `yaml:"enabled" default:"true"`
			Capacity int     `yaml:"capacity" default:"20"`
			Refill   float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
		MaxSignalsPerSource int `yaml:"max_signals_per_source" default:"1000"`
	} `yaml:"webhook"`
	Broadcast struct {
		QueueSize      int           `yaml:"queue_size" default:"16"`
		OverflowPolicy string        `yaml:"overflow_policy" default:"drop_oldest"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"broadcast"`
	Prices struct {
		CacheTTL         time.Duration `yaml:"cache_ttl" default:"1s"`
		RefreshInterval  time.Duration `yaml:"refresh_interval" default:"3s"`
		PrimaryURL       string        `yaml:"primary_url" default:"https://api.binance.us/api/v3/ticker/price"`
		PrimaryTimeout   time.Duration `yaml:"primary_timeout" default:"3s"`
		SecondaryURL     string        `yaml:"secondary_url" default:"https://api.binance.com/api/v3/ticker/price"`
		SecondaryTimeout time.Duration `yaml:"secondary_timeout" default:"3s"`
		TertiaryEnabled  bool          `yaml:"tertiary_enabled" default:"true"`
		TertiaryURL      string        `yaml:"tertiary_url" default:"https://www.okx.com/api/v5/market/tickers?instType=SWAP"`
		TertiaryTimeout  time.Duration `yaml:"tertiary_timeout" default:"2s"`
		DefaultSymbols   []string      `yaml:"default_symbols"`
		Store            struct {
			Backend string        `yaml:"backend" default:"memory"`
			TTL     time.Duration `yaml:"ttl" default:"24h"`
		} `yaml:"store"`
	} `yaml:"prices"`
	Schedule struct {
		Lead          time.Duration  `yaml:"lead" default:"30s"`
		CheckInterval time.Duration  `yaml:"check_interval" default:"1s"`
		Producers     map[string]int `yaml:"producers"`
	} `yaml:"schedule"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"signalhub"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			Topic        string        `yaml:"topic" default:"signals.accepted"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			Topic      string        `yaml:"topic" default:"signals.inbound"`
			GroupID    string        `yaml:"group_id" default:"signalhub"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
			MaxWait    time.Duration `yaml:"max_wait" default:"500ms"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// DefaultProducers are the scanner cadences in minutes.
var DefaultProducers = map[string]int{
	"short_hunter":  15,
	"bounty_seeker": 60,
	"sniper_guru":   45,
}

// DefaultSymbols is the popular set served when no symbols are requested.
var DefaultSymbols = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE",
	"AVAX", "LINK", "DOT", "MATIC", "MANA", "SAND",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.fillCollections()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillCollections()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is tolerated so the service can run on defaults plus env.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		c = Default()
	}

	if v := os.Getenv("SIGNALHUB_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SIGNALHUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PRICE_STORE"); v != "" {
		c.Prices.Store.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_SIGNAL_TOPIC"); v != "" {
		c.Kafka.Producer.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) fillCollections() {
	if len(c.Prices.DefaultSymbols) == 0 {
		c.Prices.DefaultSymbols = append([]string(nil), DefaultSymbols...)
	}
	if len(c.Schedule.Producers) == 0 {
		c.Schedule.Producers = make(map[string]int, len(DefaultProducers))
		for k, v := range DefaultProducers {
			c.Schedule.Producers[k] = v
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Webhook.MaxSignalsPerSource <= 0 {
		return fmt.Errorf("webhook.max_signals_per_source must be positive")
	}
	if c.Broadcast.QueueSize <= 0 {
		return fmt.Errorf("broadcast.queue_size must be positive")
	}
	switch c.Broadcast.OverflowPolicy {
	case "drop_oldest", "disconnect":
	default:
		return fmt.Errorf("broadcast.overflow_policy must be 'drop_oldest' or 'disconnect', got '%s'", c.Broadcast.OverflowPolicy)
	}
	switch c.Prices.Store.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("prices.store.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Prices.Store.Backend)
	}
	if c.Prices.CacheTTL <= 0 {
		return fmt.Errorf("prices.cache_ttl must be positive")
	}
	for name, minutes := range c.Schedule.Producers {
		if minutes <= 0 {
			return fmt.Errorf("schedule.producers.%s must be positive", name)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
