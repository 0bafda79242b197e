package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Status is the connector's externally visible state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDegraded     Status = "degraded"
	StatusStopped      Status = "stopped"
)

// TimestampedMessage wraps raw frame bytes with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from the websocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// subscribeCommand is the outbound subscription directive, one per symbol.
type subscribeCommand struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// envelope is used for cheap frame-type extraction.
type envelope struct {
	Type string `json:"type"`
}

// tradeFrame is the inbound trade batch.
type tradeFrame struct {
	Type string       `json:"type"`
	Data []tradeEntry `json:"data"`
}

// tradeEntry is one trade inside a batch, in the upstream's compact form.
type tradeEntry struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Timestamp int64   `json:"t"` // ms since epoch
	Volume    float64 `json:"v"`
}
