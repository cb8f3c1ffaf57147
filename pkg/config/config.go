package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Signaling struct {
		AppID         string        `yaml:"app_id"`
		Endpoint      string        `yaml:"endpoint"`
		LoginAttempts int           `yaml:"login_attempts"`
		LoginBackoff  time.Duration `yaml:"login_backoff"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`
		PingInterval  time.Duration `yaml:"ping_interval"`
		PongTimeout   time.Duration `yaml:"pong_timeout"`
	} `yaml:"signaling"`

	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		AuthToken      string        `yaml:"auth_token"`
	} `yaml:"backend"`

	Chat struct {
		MinSendInterval time.Duration `yaml:"min_send_interval"`
	} `yaml:"chat"`

	Viewer struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"viewer"`

	Recording struct {
		BaseURL        string        `yaml:"base_url"`
		AppID          string        `yaml:"app_id"`
		Bucket         string        `yaml:"bucket"`
		Region         string        `yaml:"region"`
		ResourceExpiry time.Duration `yaml:"resource_expiry"`
		CredentialTTL  time.Duration `yaml:"credential_ttl"`
		TokenSecret    string        `yaml:"token_secret"`
	} `yaml:"recording"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Signaling
	if c.Signaling.AppID == "" {
		return fmt.Errorf("signaling.app_id must not be empty")
	}
	if c.Signaling.Endpoint == "" {
		return fmt.Errorf("signaling.endpoint must not be empty")
	}
	if c.Signaling.LoginAttempts < 0 {
		return fmt.Errorf("signaling.login_attempts must be >= 0")
	}
	if c.Signaling.LoginBackoff <= 0 {
		return fmt.Errorf("signaling.login_backoff must be > 0")
	}
	if c.Signaling.PingInterval <= 0 {
		return fmt.Errorf("signaling.ping_interval must be > 0")
	}
	if c.Signaling.PongTimeout <= 0 {
		return fmt.Errorf("signaling.pong_timeout must be > 0")
	}

	// Backend
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be > 0")
	}

	// Chat
	if c.Chat.MinSendInterval <= 0 {
		return fmt.Errorf("chat.min_send_interval must be > 0")
	}

	// Viewer
	if c.Viewer.PollInterval <= 0 {
		return fmt.Errorf("viewer.poll_interval must be > 0")
	}
	if c.Viewer.FlushInterval <= 0 {
		return fmt.Errorf("viewer.flush_interval must be > 0")
	}

	// Recording
	if c.Recording.BaseURL == "" {
		return fmt.Errorf("recording.base_url must not be empty")
	}
	if c.Recording.Bucket == "" {
		return fmt.Errorf("recording.bucket must not be empty")
	}
	if c.Recording.ResourceExpiry <= 0 {
		return fmt.Errorf("recording.resource_expiry must be > 0")
	}
	if c.Recording.CredentialTTL <= 0 {
		return fmt.Errorf("recording.credential_ttl must be > 0")
	}
	if c.Recording.TokenSecret == "" {
		return fmt.Errorf("recording.token_secret must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Monitoring
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
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

	cfg.Signaling.AppID = "liveclass-dev"
	cfg.Signaling.Endpoint = "ws://localhost:8081/signaling"
	cfg.Signaling.LoginAttempts = 3
	cfg.Signaling.LoginBackoff = 1 * time.Second
	cfg.Signaling.WriteTimeout = 10 * time.Second
	cfg.Signaling.PingInterval = 30 * time.Second
	cfg.Signaling.PongTimeout = 60 * time.Second

	cfg.Backend.BaseURL = "http://localhost:8080/api"
	cfg.Backend.RequestTimeout = 10 * time.Second

	cfg.Chat.MinSendInterval = 1 * time.Second

	cfg.Viewer.PollInterval = 2 * time.Second
	cfg.Viewer.FlushInterval = 60 * time.Second

	cfg.Recording.BaseURL = "http://localhost:8090/v1"
	cfg.Recording.AppID = "liveclass-dev"
	cfg.Recording.Bucket = "liveclass-recordings"
	cfg.Recording.Region = "us-east-1"
	cfg.Recording.ResourceExpiry = 72 * time.Hour
	cfg.Recording.CredentialTTL = 1 * time.Hour
	cfg.Recording.TokenSecret = "change-me-in-production"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Server.Address = ":8085"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if appID := os.Getenv("LIVECLASS_SIGNALING_APP_ID"); appID != "" {
		c.Signaling.AppID = appID
	}
	if endpoint := os.Getenv("LIVECLASS_SIGNALING_ENDPOINT"); endpoint != "" {
		c.Signaling.Endpoint = endpoint
	}
	if baseURL := os.Getenv("LIVECLASS_BACKEND_URL"); baseURL != "" {
		c.Backend.BaseURL = baseURL
	}
	if token := os.Getenv("LIVECLASS_BACKEND_TOKEN"); token != "" {
		c.Backend.AuthToken = token
	}
	if addr := os.Getenv("LIVECLASS_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if secret := os.Getenv("LIVECLASS_RECORDING_SECRET"); secret != "" {
		c.Recording.TokenSecret = secret
	}
	if level := os.Getenv("LIVECLASS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
