package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// SymbolSource provides the tracked symbol universe and best-effort
// enrichment metadata. The reference catalog satisfies this.
type SymbolSource interface {
	Symbols() []string
	Get(symbol string) (model.ReferenceRecord, bool)
}

// TickSink receives parsed, enriched ticks and feed status changes.
// The broadcast hub satisfies this.
type TickSink interface {
	Publish(tick model.Tick)
	PublishStatus(status string)
}

// Config holds connector settings.
type Config struct {
	URL                  string        // Upstream websocket URL
	Token                string        // Auth token, sent as ?token= query parameter
	ReconnectBaseDelay   time.Duration // First reconnect wait, doubles each failure
	ReconnectMaxDelay    time.Duration // Backoff cap
	MaxReconnectAttempts int           // Consecutive failures before degraded
	PingInterval         time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	BufferSize           int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    60 * time.Second,
		MaxReconnectAttempts: 10,
		PingInterval:         30 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         5 * time.Second,
		BufferSize:           1000,
	}
}

// Stats contains connector counters.
type Stats struct {
	Status      Status
	TicksParsed int64
	ParseErrors int64
	Reconnects  int64
}

// Connector owns the single upstream connection and its lifecycle.
type Connector struct {
	cfg     Config
	symbols SymbolSource
	sink    TickSink
	logger  *slog.Logger

	// newClient is swapped out in tests.
	newClient func(ClientConfig, *slog.Logger) Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	client      Client
	status      Status
	ticksParsed int64
	parseErrors int64
	reconnects  int64
}

// New creates a Connector. Nothing connects until Start.
func New(cfg Config, symbols SymbolSource, sink TickSink, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		cfg:       cfg,
		symbols:   symbols,
		sink:      sink,
		logger:    logger,
		newClient: NewClient,
		status:    StatusStopped,
	}
}

// Start launches the connect/consume/reconnect loop in the background.
func (n *Connector) Start(ctx context.Context) error {
	n.ctx, n.cancel = context.WithCancel(ctx)
	n.setStatus(StatusConnecting)

	n.wg.Add(1)
	go n.run()

	n.logger.Info("feed connector started", "url", n.cfg.URL)
	return nil
}

// Stop shuts the connector down and waits for its goroutine.
func (n *Connector) Stop(ctx context.Context) error {
	if n.cancel != nil {
		n.cancel()
	}

	n.mu.Lock()
	client := n.client
	n.client = nil
	n.status = StatusStopped
	n.mu.Unlock()

	if client != nil {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.logger.Info("feed connector stopped")
		return nil
	case <-ctx.Done():
		n.logger.Warn("feed connector stop timed out")
		return ctx.Err()
	}
}

// Status returns the connector's current state.
func (n *Connector) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Stats returns current counters.
func (n *Connector) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return Stats{
		Status:      n.status,
		TicksParsed: n.ticksParsed,
		ParseErrors: n.parseErrors,
		Reconnects:  n.reconnects,
	}
}

// dialURL appends the token to the configured URL.
func (n *Connector) dialURL() string {
	if n.cfg.Token == "" {
		return n.cfg.URL
	}
	u, err := url.Parse(n.cfg.URL)
	if err != nil {
		return n.cfg.URL
	}
	q := u.Query()
	q.Set("token", n.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String()
}

// run is the connect/consume/reconnect loop.
func (n *Connector) run() {
	defer n.wg.Done()

	clientCfg := ClientConfig{
		URL:          n.dialURL(),
		PingInterval: n.cfg.PingInterval,
		ReadTimeout:  n.cfg.ReadTimeout,
		WriteTimeout: n.cfg.WriteTimeout,
		BufferSize:   n.cfg.BufferSize,
	}

	wait := n.cfg.ReconnectBaseDelay
	failures := 0

	for {
		select {
		case <-n.ctx.Done():
			return
		default:
		}

		client := n.newClient(clientCfg, n.logger)
		if err := client.Connect(n.ctx); err != nil {
			failures++
			n.logger.Warn("feed connect failed",
				"attempt", failures,
				"max_attempts", n.cfg.MaxReconnectAttempts,
				"error", err,
			)

			if failures >= n.cfg.MaxReconnectAttempts {
				n.degrade()
				return
			}

			if !n.sleep(wait) {
				return
			}
			wait *= 2
			if wait > n.cfg.ReconnectMaxDelay {
				wait = n.cfg.ReconnectMaxDelay
			}
			continue
		}

		// Connected: reset backoff, resubscribe everything.
		failures = 0
		wait = n.cfg.ReconnectBaseDelay

		n.mu.Lock()
		n.client = client
		n.status = StatusConnected
		n.mu.Unlock()

		n.sink.PublishStatus(string(StatusConnected))
		n.subscribeAll(client)

		err := n.consume(client)
		client.Close()

		select {
		case <-n.ctx.Done():
			return
		default:
		}

		n.logger.Warn("feed connection lost, reconnecting", "error", err)
		n.setStatus(StatusReconnecting)
		n.sink.PublishStatus(string(StatusReconnecting))

		n.mu.Lock()
		n.reconnects++
		n.mu.Unlock()

		if !n.sleep(wait) {
			return
		}
	}
}

// subscribeAll issues one subscription directive per catalog symbol.
// Subscriptions are connection-scoped, so this runs after every connect.
func (n *Connector) subscribeAll(client Client) {
	symbols := n.symbols.Symbols()
	for _, symbol := range symbols {
		cmd, _ := json.Marshal(subscribeCommand{Type: "subscribe", Symbol: symbol})
		if err := client.Send(cmd); err != nil {
			n.logger.Warn("failed to subscribe", "symbol", symbol, "error", err)
		}
	}
	n.logger.Info("subscribed to symbols", "count", len(symbols))
}

// consume reads frames until the connection errors or the context ends.
func (n *Connector) consume(client Client) error {
	for {
		select {
		case <-n.ctx.Done():
			return n.ctx.Err()
		case err := <-client.Errors():
			return err
		case msg, ok := <-client.Messages():
			if !ok {
				return ErrNotConnected
			}
			n.handleFrame(msg)
		}
	}
}

// handleFrame parses one inbound frame and publishes its ticks.
// Malformed frames are dropped and logged, never fatal.
func (n *Connector) handleFrame(msg TimestampedMessage) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		n.recordParseError()
		n.logger.Warn("malformed feed frame", "error", err)
		return
	}

	switch env.Type {
	case "trade":
		var frame tradeFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			n.recordParseError()
			n.logger.Warn("malformed trade frame", "error", err)
			return
		}
		for _, entry := range frame.Data {
			n.publishTrade(entry)
		}

	case "ping":
		// Upstream keepalive, nothing to do.

	default:
		n.logger.Debug("skipping frame type", "type", env.Type)
	}
}

// publishTrade enriches one trade entry and forwards it to the sink.
func (n *Connector) publishTrade(entry tradeEntry) {
	if entry.Symbol == "" {
		n.recordParseError()
		n.logger.Warn("trade entry without symbol dropped")
		return
	}

	tick := model.Tick{
		Symbol:    entry.Symbol,
		Price:     decimal.NewFromFloat(entry.Price),
		Volume:    decimal.NewFromFloat(entry.Volume),
		Timestamp: entry.Timestamp,
	}

	// Enrichment is best-effort: unknown symbols are forwarded bare.
	if ref, ok := n.symbols.Get(entry.Symbol); ok {
		tick.Reference = &ref
	}

	n.mu.Lock()
	n.ticksParsed++
	n.mu.Unlock()

	n.sink.Publish(tick)
}

// degrade marks the feed degraded after exhausting reconnect attempts.
func (n *Connector) degrade() {
	n.logger.Error("feed degraded, giving up reconnecting",
		"attempts", n.cfg.MaxReconnectAttempts,
	)
	n.setStatus(StatusDegraded)
	n.sink.PublishStatus(string(StatusDegraded))
}

func (n *Connector) setStatus(s Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

func (n *Connector) recordParseError() {
	n.mu.Lock()
	n.parseErrors++
	n.mu.Unlock()
}

// sleep waits or returns false if the connector is stopping.
func (n *Connector) sleep(d time.Duration) bool {
	select {
	case <-n.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
