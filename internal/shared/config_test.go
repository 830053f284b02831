package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./readx.db" {
			t.Errorf("expected database path ./readx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Catalog.BaseURL != "https://www.googleapis.com/books/v1" {
			t.Errorf("unexpected catalog base URL %s", config.Catalog.BaseURL)
		}

		if config.Search.Debounce().Milliseconds() != 300 {
			t.Errorf("expected 300ms debounce, got %v", config.Search.Debounce())
		}

		if config.Auth.DefaultYearlyGoal != 24 {
			t.Errorf("expected default yearly goal 24, got %d", config.Auth.DefaultYearlyGoal)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[catalog]
api_key = "catalog-key"
page_size = 10

[completion]
api_key = "completion-key"
model = "test-model"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Catalog.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", config.Catalog.PageSize)
		}
		if config.Catalog.MaxResults != 40 {
			t.Errorf("missing values should keep defaults, got max_results %d", config.Catalog.MaxResults)
		}
		if config.Completion.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", config.Completion.Model)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Server.Port = 9999

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", loaded.Server.Port)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("READX_CATALOG_API_KEY", "from-env")
		t.Setenv("READX_SERVER_PORT", "4040")

		config := DefaultConfig()
		if err := ApplyEnv(config, ""); err != nil {
			t.Fatalf("failed to apply env: %v", err)
		}

		if config.Catalog.APIKey != "from-env" {
			t.Errorf("expected catalog api key from env, got %q", config.Catalog.APIKey)
		}
		if config.Server.Port != 4040 {
			t.Errorf("expected port 4040, got %d", config.Server.Port)
		}
		if config.Database.Path != "./readx.db" {
			t.Errorf("unset variables should not clear values, got %q", config.Database.Path)
		}
	})

	t.Run("ApplyEnv With Dotenv File", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("READX_COMPLETION_MODEL=dotenv-model\n"), 0644); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
		t.Setenv("READX_COMPLETION_MODEL", "")
		os.Unsetenv("READX_COMPLETION_MODEL")

		config := DefaultConfig()
		if err := ApplyEnv(config, envPath); err != nil {
			t.Fatalf("failed to apply env: %v", err)
		}
		os.Unsetenv("READX_COMPLETION_MODEL")

		if config.Completion.Model != "dotenv-model" {
			t.Errorf("expected model from .env, got %q", config.Completion.Model)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tt := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }},
			{name: "page size above max", mutate: func(c *Config) { c.Catalog.PageSize = 41 }},
			{name: "empty secret", mutate: func(c *Config) { c.Auth.Secret = "" }},
			{name: "zero yearly goal", mutate: func(c *Config) { c.Auth.DefaultYearlyGoal = 0 }},
			{name: "unknown cache backend", mutate: func(c *Config) { c.Cache.Backend = "disk" }},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				config := DefaultConfig()
				tc.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
