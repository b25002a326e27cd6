package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ANPR       ANPRConfig       `yaml:"anpr"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	Timezone        string  `yaml:"timezone"`
}

// ANPRConfig holds the camera polling configuration. Polling is optional;
// cameras that push events to the HTTP API do not need it.
type ANPRConfig struct {
	Enabled         bool           `yaml:"enabled"`
	IntervalSeconds int            `yaml:"interval_seconds"`
	Interval        time.Duration  `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string         `yaml:"http_proxy"`
	Timezone        string         `yaml:"timezone"`
	Endpoints       []ANPREndpoint `yaml:"endpoints"`
}

// ANPREndpoint defines one camera HTTP endpoint the poller pulls detections from.
type ANPREndpoint struct {
	CameraID string            `yaml:"camera_id"`
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.ANPR.IntervalSeconds <= 0 {
		cfg.ANPR.IntervalSeconds = 5
	}
	cfg.ANPR.Interval = time.Duration(cfg.ANPR.IntervalSeconds) * time.Second

	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "Asia/Kolkata"
	}
	if cfg.ANPR.Timezone == "" {
		cfg.ANPR.Timezone = cfg.Server.Timezone
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
