package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-relay
feed:
  url: wss://ws.finnhub.io
  token: test-token
database:
  postgres:
    host: localhost
    port: 5432
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-relay" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-relay")
	}
	if cfg.Feed.URL != "wss://ws.finnhub.io" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://ws.finnhub.io")
	}
	if cfg.Feed.Token != "test-token" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "test-token")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_TOKEN", "secret123")

	yaml := `
instance:
  id: test-relay
feed:
  token: ${TEST_FEED_TOKEN}
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.Token != "secret123" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-relay
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if cfg.Feed.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Feed.ReconnectBaseDelay = %v, want default %v",
			cfg.Feed.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Feed.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Feed.MaxReconnectAttempts = %d, want default %d",
			cfg.Feed.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Hub.SessionBufferSize != DefaultSessionBufferSize {
		t.Errorf("Hub.SessionBufferSize = %d, want default %d",
			cfg.Hub.SessionBufferSize, DefaultSessionBufferSize)
	}
	if cfg.Market.Timezone != DefaultMarketTimezone {
		t.Errorf("Market.Timezone = %q, want default %q", cfg.Market.Timezone, DefaultMarketTimezone)
	}
	if cfg.Market.Open != DefaultMarketOpen {
		t.Errorf("Market.Open = %q, want default %q", cfg.Market.Open, DefaultMarketOpen)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Accounts.InitialCredit != DefaultInitialCredit {
		t.Errorf("Accounts.InitialCredit = %q, want default %q",
			cfg.Accounts.InitialCredit, DefaultInitialCredit)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d",
			cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *ServerConfig) {},
			wantErr: false,
		},
		{
			name:    "missing instance id",
			mutate:  func(c *ServerConfig) { c.Instance.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing db host",
			mutate:  func(c *ServerConfig) { c.Database.Postgres.Host = "" },
			wantErr: true,
		},
		{
			name:    "missing feed url",
			mutate:  func(c *ServerConfig) { c.Feed.URL = "" },
			wantErr: true,
		},
		{
			name:    "zero reconnect attempts",
			mutate:  func(c *ServerConfig) { c.Feed.MaxReconnectAttempts = 0 },
			wantErr: true,
		},
		{
			name: "base delay above max delay",
			mutate: func(c *ServerConfig) {
				c.Feed.ReconnectBaseDelay = 2 * time.Minute
				c.Feed.ReconnectMaxDelay = time.Second
			},
			wantErr: true,
		},
		{
			name:    "zero session buffer",
			mutate:  func(c *ServerConfig) { c.Hub.SessionBufferSize = 0 },
			wantErr: true,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *ServerConfig) { c.Market.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "open not HH:MM",
			mutate:  func(c *ServerConfig) { c.Market.Open = "half past nine" },
			wantErr: true,
		},
		{
			name: "open after close",
			mutate: func(c *ServerConfig) {
				c.Market.Open = "16:00"
				c.Market.Close = "09:30"
			},
			wantErr: true,
		},
		{
			name: "open equals close",
			mutate: func(c *ServerConfig) {
				c.Market.Open = "09:30"
				c.Market.Close = "09:30"
			},
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *ServerConfig) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "initial credit not decimal",
			mutate:  func(c *ServerConfig) { c.Accounts.InitialCredit = "lots" },
			wantErr: true,
		},
		{
			name:    "negative initial credit",
			mutate:  func(c *ServerConfig) { c.Accounts.InitialCredit = "-5" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func validConfig() *ServerConfig {
	cfg := &ServerConfig{
		Instance: InstanceConfig{ID: "test"},
		Database: DatabaseConfig{
			Postgres: DBConfig{
				Host:     "localhost",
				Name:     "db",
				User:     "u",
				Password: "p",
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
