package config

import "time"

// ServerConfig is the root configuration for a relay/ledger server instance.
type ServerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DatabaseConfig `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Hub      HubConfig      `yaml:"hub"`
	Market   MarketConfig   `yaml:"market"`
	Server   HTTPConfig     `yaml:"server"`
	Accounts AccountsConfig `yaml:"accounts"`
}

// InstanceConfig identifies this server.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig holds the Postgres connection for accounts, transactions,
// and reference data.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FeedConfig holds upstream trade feed settings.
type FeedConfig struct {
	URL                  string        `yaml:"url"`
	Token                string        `yaml:"token"` // Appended as ?token= query parameter
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// HubConfig holds broadcast hub settings.
type HubConfig struct {
	SessionBufferSize int `yaml:"session_buffer_size"`
}

// MarketConfig holds the exchange trading calendar.
// Open and Close are "HH:MM" in the exchange timezone.
type MarketConfig struct {
	Timezone string `yaml:"timezone"`
	Open     string `yaml:"open"`
	Close    string `yaml:"close"`
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AccountsConfig holds account provisioning settings.
type AccountsConfig struct {
	InitialCredit string `yaml:"initial_credit"` // Decimal string, e.g. "100000"
}
