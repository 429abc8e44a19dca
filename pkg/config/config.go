package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Session struct {
		AcquireTimeout      time.Duration `yaml:"acquire_timeout"`
		RestartDelay        time.Duration `yaml:"restart_delay"`
		SelfHealDelay       time.Duration `yaml:"self_heal_delay"`
		ConsistencyInterval time.Duration `yaml:"consistency_interval"`
		Camera              struct {
			Width     int `yaml:"width"`
			Height    int `yaml:"height"`
			FrameRate int `yaml:"frame_rate"`
		} `yaml:"camera"`
	} `yaml:"session"`

	Chat struct {
		HistoryLimit      int           `yaml:"history_limit"`
		MaxMessageLength  int           `yaml:"max_message_length"`
		MessagesPerSecond float64       `yaml:"messages_per_second"`
		Burst             int           `yaml:"burst"`
		SimulatedFeed     bool          `yaml:"simulated_feed"`
		FeedInterval      time.Duration `yaml:"feed_interval"`
		PingInterval      time.Duration `yaml:"ping_interval"`
		PongTimeout       time.Duration `yaml:"pong_timeout"`
		MaxMessageSize    int64         `yaml:"max_message_size_bytes"`
	} `yaml:"chat"`

	Broadcast struct {
		Enabled    bool `yaml:"enabled"`
		ICEServers []struct {
			URLs       []string `yaml:"urls"`
			Username   string   `yaml:"username,omitempty"`
			Credential string   `yaml:"credential,omitempty"`
		} `yaml:"ice_servers"`
		PortRange struct {
			Min uint16 `yaml:"min"`
			Max uint16 `yaml:"max"`
		} `yaml:"port_range"`
	} `yaml:"broadcast"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Session.AcquireTimeout <= 0 {
		return fmt.Errorf("session.acquire_timeout must be > 0")
	}
	if c.Session.RestartDelay <= 0 {
		return fmt.Errorf("session.restart_delay must be > 0")
	}
	if c.Session.SelfHealDelay <= 0 {
		return fmt.Errorf("session.self_heal_delay must be > 0")
	}
	if c.Session.ConsistencyInterval < 0 {
		return fmt.Errorf("session.consistency_interval must be >= 0")
	}
	if c.Session.Camera.Width <= 0 || c.Session.Camera.Height <= 0 {
		return fmt.Errorf("session.camera dimensions must be > 0")
	}
	if c.Session.Camera.FrameRate <= 0 {
		return fmt.Errorf("session.camera.frame_rate must be > 0")
	}

	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be > 0")
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("chat.max_message_length must be > 0")
	}
	if c.Chat.MessagesPerSecond <= 0 {
		return fmt.Errorf("chat.messages_per_second must be > 0")
	}
	if c.Chat.Burst <= 0 {
		return fmt.Errorf("chat.burst must be > 0")
	}
	if c.Chat.PingInterval <= 0 {
		return fmt.Errorf("chat.ping_interval must be > 0")
	}
	if c.Chat.PongTimeout <= 0 {
		return fmt.Errorf("chat.pong_timeout must be > 0")
	}
	if c.Chat.MaxMessageSize < 0 {
		return fmt.Errorf("chat.max_message_size_bytes must be >= 0")
	}

	if c.Broadcast.PortRange.Min > 0 || c.Broadcast.PortRange.Max > 0 {
		if c.Broadcast.PortRange.Min == 0 || c.Broadcast.PortRange.Max == 0 {
			return fmt.Errorf("broadcast.port_range.min and max must both be set when one is set")
		}
		if c.Broadcast.PortRange.Min >= c.Broadcast.PortRange.Max {
			return fmt.Errorf("broadcast.port_range.min must be < max")
		}
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Session.AcquireTimeout = 8 * time.Second
	cfg.Session.RestartDelay = 1 * time.Second
	cfg.Session.SelfHealDelay = 500 * time.Millisecond
	cfg.Session.ConsistencyInterval = 5 * time.Second
	cfg.Session.Camera.Width = 1280
	cfg.Session.Camera.Height = 720
	cfg.Session.Camera.FrameRate = 30

	cfg.Chat.HistoryLimit = 200
	cfg.Chat.MaxMessageLength = 500
	cfg.Chat.MessagesPerSecond = 2
	cfg.Chat.Burst = 5
	cfg.Chat.SimulatedFeed = false
	cfg.Chat.FeedInterval = 15 * time.Second
	cfg.Chat.PingInterval = 30 * time.Second
	cfg.Chat.PongTimeout = 60 * time.Second
	cfg.Chat.MaxMessageSize = 16 * 1024

	cfg.Broadcast.Enabled = false

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "communiconnect-session"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("COMMUNICONNECT_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("COMMUNICONNECT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("COMMUNICONNECT_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if addr := os.Getenv("COMMUNICONNECT_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
