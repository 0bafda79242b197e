package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// Config holds hub settings.
type Config struct {
	SessionBufferSize int // Outbound frames buffered per session
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionBufferSize: 256,
	}
}

// Stats contains hub counters.
type Stats struct {
	Sessions  int
	Published int64
	Delivered int64
	Dropped   int64
}

// Hub is the broadcast hub: it tracks subscriber sessions, fans each
// published tick out to all of them, and caches the latest tick per
// symbol as the authoritative execution price source.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	latest   map[string]model.Tick

	published int64
	delivered int64
	dropped   int64
}

// New creates an empty Hub.
func New(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionBufferSize < 1 {
		cfg.SessionBufferSize = DefaultConfig().SessionBufferSize
	}
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[*Session]struct{}),
		latest:   make(map[string]model.Tick),
	}
}

// NewSession creates a session with the configured buffer size. The
// caller must Register it to start receiving frames.
func (h *Hub) NewSession() *Session {
	return newSession(h.cfg.SessionBufferSize)
}

// Register adds a session to the fan-out set.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Debug("session registered", "session", s.ID(), "sessions", count)
}

// Unregister removes a session and closes it.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, found := h.sessions[s]
	delete(h.sessions, s)
	count := len(h.sessions)
	h.mu.Unlock()

	s.Close()
	if found {
		h.logger.Debug("session unregistered", "session", s.ID(), "sessions", count)
	}
}

// Publish updates the latest-tick cache for the tick's symbol, then
// delivers the tick to every registered session. Never blocks: slow
// sessions drop the frame, closed sessions are removed.
func (h *Hub) Publish(tick model.Tick) {
	frame, err := json.Marshal(tradeEnvelope{
		Type: "trade",
		Data: []tradePayload{newTradePayload(tick)},
	})
	if err != nil {
		h.logger.Warn("failed to encode tick", "symbol", tick.Symbol, "error", err)
		return
	}

	// Cache update and fan-out share one critical section so that
	// per-symbol delivery order matches publish order.
	h.mu.Lock()
	h.latest[tick.Symbol] = tick
	h.published++
	h.broadcastLocked(frame)
	h.mu.Unlock()
}

// PublishStatus fans a connection_status frame out to every session.
// The latest-tick cache is untouched.
func (h *Hub) PublishStatus(status string) {
	frame, err := json.Marshal(statusEnvelope{
		Type:   "connection_status",
		Status: status,
	})
	if err != nil {
		h.logger.Warn("failed to encode status", "status", status, "error", err)
		return
	}

	h.mu.Lock()
	h.broadcastLocked(frame)
	h.mu.Unlock()
}

// broadcastLocked delivers one frame to every session. Caller holds h.mu.
func (h *Hub) broadcastLocked(frame []byte) {
	for s := range h.sessions {
		switch s.send(frame) {
		case sendOK:
			h.delivered++
		case sendDropped:
			h.dropped++
		case sendClosed:
			delete(h.sessions, s)
			h.logger.Debug("removed closed session", "session", s.ID())
		}
	}
}

// LatestPrice returns the authoritative execution price for a symbol.
func (h *Hub) LatestPrice(symbol string) (decimal.Decimal, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tick, ok := h.latest[symbol]
	if !ok {
		return decimal.Decimal{}, false
	}
	return tick.Price, true
}

// LatestTick returns the most recent tick for a symbol.
func (h *Hub) LatestTick(symbol string) (model.Tick, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tick, ok := h.latest[symbol]
	return tick, ok
}

// Snapshot returns the latest tick for every symbol seen so far.
func (h *Hub) Snapshot() []model.Tick {
	h.mu.Lock()
	defer h.mu.Unlock()

	ticks := make([]model.Tick, 0, len(h.latest))
	for _, t := range h.latest {
		ticks = append(ticks, t)
	}
	return ticks
}

// SnapshotFrame encodes the current latest-tick set as one trade frame,
// or nil when no ticks have been seen. Used to seed new sessions.
func (h *Hub) SnapshotFrame() []byte {
	ticks := h.Snapshot()
	if len(ticks) == 0 {
		return nil
	}

	payloads := make([]tradePayload, 0, len(ticks))
	for _, t := range ticks {
		payloads = append(payloads, newTradePayload(t))
	}

	frame, err := json.Marshal(tradeEnvelope{Type: "trade", Data: payloads})
	if err != nil {
		h.logger.Warn("failed to encode snapshot frame", "error", err)
		return nil
	}
	return frame
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		Sessions:  len(h.sessions),
		Published: h.published,
		Delivered: h.delivered,
		Dropped:   h.dropped,
	}
}
