package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	AssetsStoreDisk  = "disk"
	AssetsStoreDrive = "drive"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// public address of the site, used for canonical urls
	BaseURL        string   `toml:"base_url"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// storage
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`

	// assets: "disk" or "drive"
	AssetsStore         string `toml:"assets_store"`
	AssetsRootPath      string `toml:"assets_root_path"`
	AssetsDriveFolderID string `toml:"assets_drive_folder_id"`

	// rendering
	DiagramServiceURL  string        `toml:"diagram_service_url"`
	DiagramTimeout     time.Duration `toml:"diagram_timeout"`
	DiagramConcurrency int           `toml:"diagram_concurrency"`
	RenderCacheSizeMB  int           `toml:"render_cache_size_mb"`

	// search, empty means search is disabled
	ElasticsearchAddresses []string `toml:"elasticsearch_addresses"`
	ElasticsearchIndex     string   `toml:"elasticsearch_index"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file and returns the section for the given env, with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", env, err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.AssetsStore == "" {
		c.AssetsStore = AssetsStoreDisk
	}
	if c.RenderCacheSizeMB <= 0 {
		c.RenderCacheSizeMB = 32
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 5
	}
	if c.ElasticsearchIndex == "" {
		c.ElasticsearchIndex = "blog-posts"
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("port must be positive, got %d", c.Port)
	}
	switch c.AssetsStore {
	case AssetsStoreDisk:
		if c.AssetsRootPath == "" {
			return fmt.Errorf("assets_root_path is required for the disk assets store")
		}
	case AssetsStoreDrive:
		if c.AssetsDriveFolderID == "" {
			return fmt.Errorf("assets_drive_folder_id is required for the drive assets store")
		}
	default:
		return fmt.Errorf("unknown assets store: %s", c.AssetsStore)
	}
	return nil
}
