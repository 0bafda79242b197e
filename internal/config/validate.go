package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if c.Feed.MaxReconnectAttempts < 1 {
		return errors.New("feed.max_reconnect_attempts must be >= 1")
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}
	if c.Feed.ReconnectBaseDelay > c.Feed.ReconnectMaxDelay {
		return fmt.Errorf("feed.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Feed.ReconnectBaseDelay, c.Feed.ReconnectMaxDelay)
	}

	if c.Hub.SessionBufferSize < 1 {
		return errors.New("hub.session_buffer_size must be >= 1")
	}

	if err := c.Market.validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	credit, err := decimal.NewFromString(c.Accounts.InitialCredit)
	if err != nil {
		return fmt.Errorf("accounts.initial_credit is not a decimal: %q", c.Accounts.InitialCredit)
	}
	if credit.IsNegative() {
		return fmt.Errorf("accounts.initial_credit must be >= 0, got %s", credit)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return fmt.Errorf("market.timezone %q is invalid: %w", m.Timezone, err)
	}

	open, err := parseClock(m.Open)
	if err != nil {
		return fmt.Errorf("market.open: %w", err)
	}
	close, err := parseClock(m.Close)
	if err != nil {
		return fmt.Errorf("market.close: %w", err)
	}

	// The trading window must be internally consistent: a window whose
	// bounds cannot both hold would silently close the market forever.
	if open >= close {
		return fmt.Errorf("market.open %q must be strictly before market.close %q", m.Open, m.Close)
	}

	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q has invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%q has invalid minute", s)
	}
	return h*60 + m, nil
}
