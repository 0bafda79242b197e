package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lmaretto/papertrade/internal/hub"
)

// Config holds websocket handler settings.
type Config struct {
	WriteTimeout time.Duration // Per-frame write deadline
	PingInterval time.Duration // Server-to-client keepalive cadence
	PongTimeout  time.Duration // Read deadline, refreshed on each pong
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
	}
}

// Handler upgrades HTTP requests to websocket sessions on the hub.
type Handler struct {
	cfg      Config
	hub      *hub.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler bound to the given hub.
func NewHandler(cfg Config, h *hub.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:    cfg,
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects or the session is closed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			"remote", r.RemoteAddr,
			"error", err,
		)
		return
	}

	session := h.hub.NewSession()
	h.hub.Register(session)

	h.logger.Info("subscriber connected",
		"session", session.ID(),
		"remote", r.RemoteAddr,
		"sessions", h.hub.SessionCount(),
	)

	go h.readPump(conn, session)
	h.writePump(conn, session)

	h.hub.Unregister(session)
	conn.Close()

	h.logger.Info("subscriber disconnected",
		"session", session.ID(),
		"sessions", h.hub.SessionCount(),
	)
}

// writePump seeds the snapshot, then moves frames from the session
// queue to the socket, interleaving keepalive pings.
func (h *Handler) writePump(conn *websocket.Conn, session *hub.Session) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	// New subscribers start from the current latest-tick set so they
	// do not wait for the next live trade on each symbol.
	if frame := h.hub.SnapshotFrame(); frame != nil {
		if err := h.writeFrame(conn, frame); err != nil {
			session.Close()
			return
		}
	}

	for {
		select {
		case <-session.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteTimeout),
			)
			return

		case frame := <-session.Frames():
			if err := h.writeFrame(conn, frame); err != nil {
				h.logger.Debug("write failed, closing session",
					"session", session.ID(),
					"error", err,
				)
				session.Close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				session.Close()
				return
			}
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame []byte) error {
	conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// readPump drains inbound messages so control frames are processed and
// client disconnects are noticed. Subscribers send nothing we act on.
func (h *Handler) readPump(conn *websocket.Conn, session *hub.Session) {
	defer session.Close()

	conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
