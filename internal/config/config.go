package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the scrollfollow configuration
type Config struct {
	Title     string          `yaml:"title"`
	Server    ServerConfig    `yaml:"server"`
	Preview   PreviewConfig   `yaml:"preview"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// PreviewConfig controls how markdown is rendered
type PreviewConfig struct {
	GFM       bool   `yaml:"gfm"`        // Tables, strikethrough, task lists, autolinks
	Unsafe    bool   `yaml:"unsafe"`     // Pass raw HTML through (default: false)
	HardWraps bool   `yaml:"hard_wraps"` // Render soft line breaks as <br>
	Theme     string `yaml:"theme"`
}

// CacheConfig configures the rendered preview cache
type CacheConfig struct {
	TTL string `yaml:"ttl,omitempty"` // e.g. "5m". Empty disables caching
}

// RateLimitConfig limits HTTP requests and websocket scroll queries
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps,omitempty"`   // Requests per second (default: 10)
	Burst int     `yaml:"burst,omitempty"` // Burst size (default: 20)
}

// WatchConfig configures file watching
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce,omitempty"` // e.g. "100ms"
}

// IsCacheEnabled returns true if preview caching is enabled
func (c CacheConfig) IsCacheEnabled() bool {
	return c.GetTTL() > 0
}

// GetTTL returns the cache TTL (0 if caching is disabled)
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetRPS returns the rate limit requests per second (default: 10)
func (c RateLimitConfig) GetRPS() float64 {
	if c.RPS <= 0 {
		return 10
	}
	return c.RPS
}

// GetBurst returns the rate limit burst size (default: 20)
func (c RateLimitConfig) GetBurst() int {
	if c.Burst <= 0 {
		return 20
	}
	return c.Burst
}

// GetDebounce returns the file change debounce window (default: 100ms)
func (c WatchConfig) GetDebounce() time.Duration {
	if c.Debounce == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d < 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Addr returns host:port for the HTTP listener
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "scrollfollow",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Preview: PreviewConfig{
			GFM:   true,
			Theme: "clean",
		},
		Cache: CacheConfig{
			TTL: "5m",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadFromDir loads configuration from a directory
// Looks for scrollfollow.yaml, then the hidden .scrollfollow.yaml
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "scrollfollow.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return Load(filepath.Join(dir, ".scrollfollow.yaml"))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
