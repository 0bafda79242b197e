package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lmaretto/papertrade/internal/model"
)

// Source loads the full reference metadata set from persistent storage.
type Source interface {
	LoadReferenceRecords(ctx context.Context) ([]model.ReferenceRecord, error)
}

// SourceFunc is a function adapter for Source.
type SourceFunc func(ctx context.Context) ([]model.ReferenceRecord, error)

func (f SourceFunc) LoadReferenceRecords(ctx context.Context) ([]model.ReferenceRecord, error) {
	return f(ctx)
}

// Catalog is the in-memory reference metadata lookup table.
//
// The record set is loaded once at startup and replaced wholesale on
// reload; readers never observe a half-updated catalog.
type Catalog struct {
	source Source
	logger *slog.Logger

	mu       sync.RWMutex
	records  map[string]model.ReferenceRecord
	loadedAt time.Time
}

// New creates an empty Catalog backed by the given source.
func New(source Source, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		source:  source,
		logger:  logger,
		records: make(map[string]model.ReferenceRecord),
	}
}

// Load fetches the full record set and swaps it in as one snapshot.
// On error the previous snapshot stays in place.
func (c *Catalog) Load(ctx context.Context) error {
	start := time.Now()

	records, err := c.source.LoadReferenceRecords(ctx)
	if err != nil {
		return fmt.Errorf("load reference records: %w", err)
	}

	snapshot := make(map[string]model.ReferenceRecord, len(records))
	for _, r := range records {
		snapshot[r.Symbol] = r
	}

	c.mu.Lock()
	c.records = snapshot
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("reference catalog loaded",
		"symbols", len(snapshot),
		"duration", time.Since(start),
	)

	return nil
}

// Get returns the reference record for a symbol.
func (c *Catalog) Get(symbol string) (model.ReferenceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[symbol]
	return r, ok
}

// Symbols returns the tracked symbol universe, sorted for stable
// subscription order.
func (c *Catalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	symbols := make([]string, 0, len(c.records))
	for s := range c.records {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Len returns the number of loaded records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// LoadedAt returns when the current snapshot was installed.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
