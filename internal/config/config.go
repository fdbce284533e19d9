// Package config loads tradedesk settings from defaults, an optional YAML
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL = "http://localhost:8000/api/v1"
	defaultDir    = ".tradedesk"
)

type Config struct {
	APIURL        string        `yaml:"api_url"`
	WebURL        string        `yaml:"web_url"` // sign-in pages; derived from APIURL when empty
	StateDir      string        `yaml:"state_dir"`
	Mirror        string        `yaml:"mirror"` // "file" or "sqlite"
	Timeout       time.Duration `yaml:"timeout"`
	LogoutTimeout time.Duration `yaml:"logout_timeout"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst     int           `yaml:"rate_burst"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	MetricsAddr   string        `yaml:"metrics_addr"` // empty disables the /metrics server

	// Token overrides the mirrored session token. Env only.
	Token string `yaml:"-"`
}

// LogPath is where the TUI writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, "tradedesk.log")
}

// Load reads .env (if present), the config file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	stateDir, err := expandHome(getEnvDefault("TRADEDESK_STATE_DIR", "~/"+defaultDir))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:        DefaultAPIURL,
		StateDir:      stateDir,
		Mirror:        "file",
		Timeout:       30 * time.Second,
		LogoutTimeout: 5 * time.Second,
		RateBurst:     5,
		LogLevel:      "info",
		LogFormat:     "text",
	}

	path := getEnvDefault("TRADEDESK_CONFIG", filepath.Join(stateDir, "config.yaml"))
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.APIURL = getEnvDefault("TRADEDESK_API_URL", cfg.APIURL)
	cfg.WebURL = getEnvDefault("TRADEDESK_WEB_URL", cfg.WebURL)
	cfg.Mirror = getEnvDefault("TRADEDESK_MIRROR", cfg.Mirror)
	cfg.Timeout = getEnvDuration("TRADEDESK_TIMEOUT", cfg.Timeout)
	cfg.LogoutTimeout = getEnvDuration("TRADEDESK_LOGOUT_TIMEOUT", cfg.LogoutTimeout)
	cfg.RateLimit = getEnvFloat("TRADEDESK_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getEnvInt("TRADEDESK_RATE_BURST", cfg.RateBurst)
	cfg.LogLevel = getEnvDefault("TRADEDESK_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvDefault("TRADEDESK_LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsAddr = getEnvDefault("TRADEDESK_METRICS_ADDR", cfg.MetricsAddr)
	cfg.Token = strings.TrimSpace(os.Getenv("TRADEDESK_TOKEN"))

	if cfg.StateDir, err = expandHome(cfg.StateDir); err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.WebURL == "" {
		cfg.WebURL = webURLFromAPI(cfg.APIURL)
	}
	cfg.WebURL = strings.TrimRight(cfg.WebURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TRADEDESK_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.Mirror != "file" && c.Mirror != "sqlite" {
		return fmt.Errorf("TRADEDESK_MIRROR must be 'file' or 'sqlite', got %q", c.Mirror)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("TRADEDESK_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.LogoutTimeout <= 0 {
		return fmt.Errorf("TRADEDESK_LOGOUT_TIMEOUT must be positive, got %s", c.LogoutTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("TRADEDESK_RATE_LIMIT must not be negative, got %v", c.RateLimit)
	}
	return nil
}

// webURLFromAPI strips the API path and an "api." host prefix:
// https://api.example.com/api/v1 becomes https://example.com.
func webURLFromAPI(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return apiURL
	}
	if host := u.Hostname(); strings.HasPrefix(host, "api.") {
		u.Host = strings.TrimPrefix(host, "api.")
		if port := u.Port(); port != "" {
			u.Host += ":" + port
		}
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
