package hub

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

func testTick(symbol string, price string, ts int64) model.Tick {
	return model.Tick{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Volume:    decimal.NewFromInt(100),
		Timestamp: ts,
	}
}

// drain reads every buffered frame from a session without blocking.
func drain(s *Session) [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-s.Frames():
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func decodeTrade(t *testing.T, frame []byte) tradeEnvelope {
	t.Helper()
	var env tradeEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return env
}

func TestPublishFansOutToAllSessions(t *testing.T) {
	h := New(DefaultConfig(), nil)

	a := h.NewSession()
	b := h.NewSession()
	h.Register(a)
	h.Register(b)

	h.Publish(testTick("AAPL", "187.20", 1700000000000))

	for name, s := range map[string]*Session{"a": a, "b": b} {
		frames := drain(s)
		if len(frames) != 1 {
			t.Fatalf("session %s got %d frames, want 1", name, len(frames))
		}
		env := decodeTrade(t, frames[0])
		if env.Type != "trade" {
			t.Errorf("session %s frame type = %q, want trade", name, env.Type)
		}
		if len(env.Data) != 1 || env.Data[0].Symbol != "AAPL" {
			t.Errorf("session %s data = %+v, want one AAPL tick", name, env.Data)
		}
	}
}

func TestPublishUpdatesLatestCache(t *testing.T) {
	h := New(DefaultConfig(), nil)

	if _, ok := h.LatestPrice("AAPL"); ok {
		t.Error("LatestPrice before any tick: found, want absent")
	}

	h.Publish(testTick("AAPL", "187.20", 1))
	h.Publish(testTick("AAPL", "188.05", 2))

	price, ok := h.LatestPrice("AAPL")
	if !ok {
		t.Fatal("LatestPrice(AAPL) absent, want found")
	}
	if !price.Equal(decimal.RequireFromString("188.05")) {
		t.Errorf("LatestPrice(AAPL) = %s, want 188.05", price)
	}

	tick, ok := h.LatestTick("AAPL")
	if !ok || tick.Timestamp != 2 {
		t.Errorf("LatestTick(AAPL) = %+v, %v; want timestamp 2", tick, ok)
	}
}

func TestSlowSessionDropsWithoutBlockingOthers(t *testing.T) {
	h := New(Config{SessionBufferSize: 1}, nil)

	slow := h.NewSession()
	fast := h.NewSession()
	h.Register(slow)
	h.Register(fast)

	// Fill slow's buffer, then keep fast drained.
	h.Publish(testTick("AAPL", "1", 1))
	<-fast.Frames()

	h.Publish(testTick("AAPL", "2", 2))
	<-fast.Frames()
	h.Publish(testTick("AAPL", "3", 3))
	<-fast.Frames()

	// Slow still only has the first frame; publisher never blocked.
	frames := drain(slow)
	if len(frames) != 1 {
		t.Fatalf("slow session got %d frames, want 1", len(frames))
	}
	env := decodeTrade(t, frames[0])
	if !env.Data[0].Price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("slow session price = %s, want 1 (oldest frame kept)", env.Data[0].Price)
	}

	stats := h.Stats()
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
}

func TestClosedSessionIsRemovedOnPublish(t *testing.T) {
	h := New(DefaultConfig(), nil)

	s := h.NewSession()
	h.Register(s)
	s.Close()

	h.Publish(testTick("AAPL", "1", 1))

	if n := h.SessionCount(); n != 0 {
		t.Errorf("SessionCount() = %d after publishing to closed session, want 0", n)
	}

	// Cache must still have been updated.
	if _, ok := h.LatestPrice("AAPL"); !ok {
		t.Error("LatestPrice(AAPL) absent, want found")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := New(DefaultConfig(), nil)

	s := h.NewSession()
	h.Register(s)
	h.Unregister(s)

	h.Publish(testTick("AAPL", "1", 1))

	if frames := drain(s); len(frames) != 0 {
		t.Errorf("unregistered session got %d frames, want 0", len(frames))
	}

	select {
	case <-s.Done():
	default:
		t.Error("session not closed by Unregister")
	}
}

func TestPublishWithoutReferenceRecord(t *testing.T) {
	// A tick for a symbol absent from the catalog is still delivered,
	// with the enrichment field omitted.
	h := New(DefaultConfig(), nil)

	s := h.NewSession()
	h.Register(s)

	h.Publish(testTick("ZZZZ", "4.20", 1))

	frames := drain(s)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frames[0], &raw); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	var data []map[string]json.RawMessage
	if err := json.Unmarshal(raw["data"], &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if _, present := data[0]["referenceRecord"]; present {
		t.Error("referenceRecord present on unenriched tick, want omitted")
	}

	if _, ok := h.LatestPrice("ZZZZ"); !ok {
		t.Error("LatestPrice(ZZZZ) absent, want cached")
	}
}

func TestPublishWithReferenceRecord(t *testing.T) {
	h := New(DefaultConfig(), nil)

	s := h.NewSession()
	h.Register(s)

	tick := testTick("AAPL", "187.20", 1)
	tick.Reference = &model.ReferenceRecord{
		Symbol:   "AAPL",
		Name:     "Apple Inc",
		Exchange: "NASDAQ",
	}
	h.Publish(tick)

	env := decodeTrade(t, drain(s)[0])
	ref := env.Data[0].ReferenceRecord
	if ref == nil {
		t.Fatal("referenceRecord absent, want present")
	}
	if ref.Name != "Apple Inc" {
		t.Errorf("referenceRecord.name = %q, want %q", ref.Name, "Apple Inc")
	}
}

func TestPerSymbolOrderingPreserved(t *testing.T) {
	h := New(Config{SessionBufferSize: 64}, nil)

	s := h.NewSession()
	h.Register(s)

	for i := 1; i <= 20; i++ {
		h.Publish(testTick("AAPL", decimal.NewFromInt(int64(i)).String(), int64(i)))
	}

	frames := drain(s)
	if len(frames) != 20 {
		t.Fatalf("got %d frames, want 20", len(frames))
	}
	for i, f := range frames {
		env := decodeTrade(t, f)
		if env.Data[0].Timestamp != int64(i+1) {
			t.Fatalf("frame %d has timestamp %d, want %d (reordered)", i, env.Data[0].Timestamp, i+1)
		}
	}
}

func TestPublishStatus(t *testing.T) {
	h := New(DefaultConfig(), nil)

	s := h.NewSession()
	h.Register(s)

	h.PublishStatus("degraded")

	frames := drain(s)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	var env statusEnvelope
	if err := json.Unmarshal(frames[0], &env); err != nil {
		t.Fatalf("unmarshal status frame: %v", err)
	}
	if env.Type != "connection_status" || env.Status != "degraded" {
		t.Errorf("status frame = %+v, want connection_status/degraded", env)
	}
}

func TestSnapshotFrame(t *testing.T) {
	h := New(DefaultConfig(), nil)

	if f := h.SnapshotFrame(); f != nil {
		t.Errorf("SnapshotFrame() = %s before any tick, want nil", f)
	}

	h.Publish(testTick("AAPL", "187.20", 1))
	h.Publish(testTick("MSFT", "402.10", 2))

	frame := h.SnapshotFrame()
	if frame == nil {
		t.Fatal("SnapshotFrame() = nil, want frame")
	}
	env := decodeTrade(t, frame)
	if len(env.Data) != 2 {
		t.Errorf("snapshot has %d ticks, want 2", len(env.Data))
	}
}
