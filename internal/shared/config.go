package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Search     SearchConfig     `toml:"search"`
	Completion CompletionConfig `toml:"completion"`
	Auth       AuthConfig       `toml:"auth"`
	Cache      CacheConfig      `toml:"cache"`
	Prefs      PrefsConfig      `toml:"prefs"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"READX_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host" env:"READX_SERVER_HOST"`
	Port int    `toml:"port" env:"READX_SERVER_PORT"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig contains book catalog API settings.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url" env:"READX_CATALOG_BASE_URL"`
	APIKey            string  `toml:"api_key" env:"READX_CATALOG_API_KEY"`
	PageSize          int     `toml:"page_size"`
	MaxResults        int     `toml:"max_results"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Timeout returns the HTTP timeout for catalog calls.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SearchConfig contains incremental search settings.
type SearchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Debounce returns the quiet period before a query is dispatched.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// CompletionConfig contains language-model completion API settings.
type CompletionConfig struct {
	BaseURL        string  `toml:"base_url" env:"READX_COMPLETION_BASE_URL"`
	APIKey         string  `toml:"api_key" env:"READX_COMPLETION_API_KEY"`
	Model          string  `toml:"model" env:"READX_COMPLETION_MODEL"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout for completion calls.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig contains identity settings.
type AuthConfig struct {
	Secret            string `toml:"secret" env:"READX_AUTH_SECRET"`
	TokenTTLHours     int    `toml:"token_ttl_hours"`
	DefaultYearlyGoal int    `toml:"default_yearly_goal"`
	MaxFailedLogins   int    `toml:"max_failed_logins"`
}

// TokenTTL returns how long issued session tokens stay valid.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// CacheConfig selects and configures the book cache backend ("memory" or "redis").
type CacheConfig struct {
	Backend       string `toml:"backend" env:"READX_CACHE_BACKEND"`
	TTLMinutes    int    `toml:"ttl_minutes"`
	RedisAddr     string `toml:"redis_addr" env:"READX_REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"READX_REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"READX_REDIS_DB"`
}

// TTL returns how long cached books are kept.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// PrefsConfig locates the local-only preferences file.
type PrefsConfig struct {
	Path string `toml:"path" env:"READX_PREFS_PATH"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv loads a .env file when present and overlays READX_* environment variables onto config.
func ApplyEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		_ = godotenv.Load(dotenvPath)
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports configuration values that would break the application at runtime.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Catalog.BaseURL == "":
		return fmt.Errorf("%w: catalog.base_url is required", ErrInvalidConfig)
	case c.Catalog.PageSize <= 0 || c.Catalog.PageSize > c.Catalog.MaxResults:
		return fmt.Errorf("%w: catalog.page_size must be between 1 and max_results", ErrInvalidConfig)
	case c.Auth.Secret == "":
		return fmt.Errorf("%w: auth.secret is required", ErrInvalidConfig)
	case c.Auth.DefaultYearlyGoal < 1:
		return fmt.Errorf("%w: auth.default_yearly_goal must be at least 1", ErrInvalidConfig)
	case c.Cache.Backend != "memory" && c.Cache.Backend != "redis":
		return fmt.Errorf("%w: cache.backend must be memory or redis", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
