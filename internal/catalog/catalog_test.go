package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/lmaretto/papertrade/internal/model"
)

func staticSource(records ...model.ReferenceRecord) Source {
	return SourceFunc(func(ctx context.Context) ([]model.ReferenceRecord, error) {
		return records, nil
	})
}

func TestLoadAndGet(t *testing.T) {
	c := New(staticSource(
		model.ReferenceRecord{Symbol: "AAPL", Name: "Apple Inc", Exchange: "NASDAQ"},
		model.ReferenceRecord{Symbol: "MSFT", Name: "Microsoft Corp", Exchange: "NASDAQ"},
	), nil)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	r, ok := c.Get("AAPL")
	if !ok {
		t.Fatal("Get(AAPL) not found")
	}
	if r.Name != "Apple Inc" {
		t.Errorf("Name = %q, want %q", r.Name, "Apple Inc")
	}

	if _, ok := c.Get("TSLA"); ok {
		t.Error("Get(TSLA) found, want absent")
	}
}

func TestSymbolsSorted(t *testing.T) {
	c := New(staticSource(
		model.ReferenceRecord{Symbol: "MSFT"},
		model.ReferenceRecord{Symbol: "AAPL"},
		model.ReferenceRecord{Symbol: "GOOG"},
	), nil)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := c.Symbols()
	want := []string{"AAPL", "GOOG", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadReplacesWholeSnapshot(t *testing.T) {
	records := []model.ReferenceRecord{
		{Symbol: "AAPL"},
		{Symbol: "MSFT"},
	}
	src := SourceFunc(func(ctx context.Context) ([]model.ReferenceRecord, error) {
		out := make([]model.ReferenceRecord, len(records))
		copy(out, records)
		return out, nil
	})

	c := New(src, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Second load with a disjoint set must fully replace the first.
	records = []model.ReferenceRecord{{Symbol: "TSLA"}}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if c.Len() != 1 {
		t.Errorf("Len() = %d after reload, want 1", c.Len())
	}
	if _, ok := c.Get("AAPL"); ok {
		t.Error("Get(AAPL) found after reload, want absent")
	}
	if _, ok := c.Get("TSLA"); !ok {
		t.Error("Get(TSLA) absent after reload, want found")
	}
}

func TestLoadErrorKeepsPreviousSnapshot(t *testing.T) {
	var fail bool
	src := SourceFunc(func(ctx context.Context) ([]model.ReferenceRecord, error) {
		if fail {
			return nil, errors.New("storage unavailable")
		}
		return []model.ReferenceRecord{{Symbol: "AAPL"}}, nil
	})

	c := New(src, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fail = true
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("reload succeeded, want error")
	}

	if _, ok := c.Get("AAPL"); !ok {
		t.Error("previous snapshot lost after failed reload")
	}
}
