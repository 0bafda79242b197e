package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL              = "wss://ws.finnhub.io"
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 60 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultPingInterval         = 30 * time.Second
	DefaultReadTimeout          = 60 * time.Second
	DefaultFeedBufferSize       = 1000
	DefaultSessionBufferSize    = 256
	DefaultMarketTimezone       = "America/New_York"
	DefaultMarketOpen           = "09:30"
	DefaultMarketClose          = "16:00"
	DefaultServerPort           = 8080
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultInitialCredit        = "100000"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
)

func (c *ServerConfig) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.MaxReconnectAttempts == 0 {
		c.Feed.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.ReadTimeout == 0 {
		c.Feed.ReadTimeout = DefaultReadTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Hub defaults
	if c.Hub.SessionBufferSize == 0 {
		c.Hub.SessionBufferSize = DefaultSessionBufferSize
	}

	// Market defaults
	if c.Market.Timezone == "" {
		c.Market.Timezone = DefaultMarketTimezone
	}
	if c.Market.Open == "" {
		c.Market.Open = DefaultMarketOpen
	}
	if c.Market.Close == "" {
		c.Market.Close = DefaultMarketClose
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Accounts defaults
	if c.Accounts.InitialCredit == "" {
		c.Accounts.InitialCredit = DefaultInitialCredit
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
