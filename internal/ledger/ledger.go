package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
	"github.com/lmaretto/papertrade/internal/store"
)

// PriceSource supplies the authoritative execution price per symbol.
// The broadcast hub satisfies this.
type PriceSource interface {
	LatestPrice(symbol string) (decimal.Decimal, bool)
}

// MarketClock reports whether trading is allowed at a given instant.
type MarketClock interface {
	IsOpen(now time.Time) bool
}

// SymbolCatalog answers whether a symbol is tradeable. The reference
// catalog satisfies this.
type SymbolCatalog interface {
	Get(symbol string) (model.ReferenceRecord, bool)
}

// Execution is the result of a successful order: the account as it
// stands after the order, plus the recorded transaction.
type Execution struct {
	User        model.User
	Transaction model.Transaction
}

// Ledger validates and executes orders.
type Ledger struct {
	store   store.PortfolioStore
	prices  PriceSource
	clock   MarketClock
	catalog SymbolCatalog
	logger  *slog.Logger

	// now is swapped out in tests.
	now func() time.Time

	// locks serializes orders per user. Orders for different users
	// proceed in parallel.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Ledger.
func New(st store.PortfolioStore, prices PriceSource, clock MarketClock, catalog SymbolCatalog, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   st,
		prices:  prices,
		clock:   clock,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Buy executes a market buy for the user at the current cached price.
func (l *Ledger) Buy(ctx context.Context, userID, symbol string, quantity decimal.Decimal) (Execution, error) {
	price, err := l.validate(userID, symbol, quantity)
	if err != nil {
		return Execution{}, err
	}

	unlock := l.lockUser(userID)
	defer unlock()

	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return Execution{}, err
	}

	required := quantity.Mul(price)
	if user.Credit.LessThan(required) {
		return Execution{}, fmt.Errorf("buy %s %s at %s needs %s, have %s: %w",
			quantity, symbol, price, required, user.Credit, ErrInsufficientFunds)
	}

	now := l.now()
	user.Credit = user.Credit.Sub(required)

	pos, held := user.Positions[symbol]
	if held {
		// Quantity-weighted average cost across old and new shares.
		newQty := pos.Quantity.Add(quantity)
		oldValue := pos.Quantity.Mul(pos.AvgCost)
		pos.AvgCost = oldValue.Add(required).Div(newQty)
		pos.Quantity = newQty
	} else {
		pos = model.Position{Symbol: symbol, Quantity: quantity, AvgCost: price}
	}
	pos.LastUpdated = now
	user.Positions[symbol] = pos

	txn := model.NewTransaction(userID, symbol, model.SideBuy, quantity, price, now)
	if err := l.apply(ctx, user, symbol, &pos, txn); err != nil {
		return Execution{}, err
	}

	l.logger.Info("order executed",
		"side", "buy",
		"user", userID,
		"symbol", symbol,
		"quantity", quantity,
		"price", price,
		"total", txn.Total,
	)
	return Execution{User: user, Transaction: txn}, nil
}

// Sell executes a market sell for the user at the current cached price.
func (l *Ledger) Sell(ctx context.Context, userID, symbol string, quantity decimal.Decimal) (Execution, error) {
	price, err := l.validate(userID, symbol, quantity)
	if err != nil {
		return Execution{}, err
	}

	unlock := l.lockUser(userID)
	defer unlock()

	user, err := l.loadUser(ctx, userID)
	if err != nil {
		return Execution{}, err
	}

	pos, held := user.Positions[symbol]
	if !held {
		return Execution{}, fmt.Errorf("sell %s: %w", symbol, ErrNoPosition)
	}
	if quantity.GreaterThan(pos.Quantity) {
		return Execution{}, fmt.Errorf("sell %s of %s held: %w",
			quantity, pos.Quantity, ErrInsufficientShares)
	}

	now := l.now()
	proceeds := quantity.Mul(price)
	user.Credit = user.Credit.Add(proceeds)

	var updated *model.Position
	if quantity.Equal(pos.Quantity) {
		// Fully closed: the position row is deleted, never stored at zero.
		delete(user.Positions, symbol)
	} else {
		pos.Quantity = pos.Quantity.Sub(quantity)
		pos.LastUpdated = now
		user.Positions[symbol] = pos
		updated = &pos
	}

	txn := model.NewTransaction(userID, symbol, model.SideSell, quantity, price, now)
	if err := l.apply(ctx, user, symbol, updated, txn); err != nil {
		return Execution{}, err
	}

	l.logger.Info("order executed",
		"side", "sell",
		"user", userID,
		"symbol", symbol,
		"quantity", quantity,
		"price", price,
		"total", txn.Total,
	)
	return Execution{User: user, Transaction: txn}, nil
}

// Transactions returns the user's ledger, most recent first.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id: %w", ErrMissingField)
	}
	if _, err := l.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.Transactions(ctx, userID)
}

// validate runs the checks shared by both sides and resolves the
// execution price. It touches no state.
func (l *Ledger) validate(userID, symbol string, quantity decimal.Decimal) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, fmt.Errorf("user id: %w", ErrMissingField)
	}
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("symbol: %w", ErrMissingField)
	}
	if !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("quantity %s: %w", quantity, ErrInvalidQuantity)
	}

	// One trading window, applied uniformly to buys and sells.
	if !l.clock.IsOpen(l.now()) {
		return decimal.Zero, ErrMarketClosed
	}

	if _, ok := l.catalog.Get(symbol); !ok {
		return decimal.Zero, fmt.Errorf("symbol %s: %w", symbol, ErrUnknownSymbol)
	}

	price, ok := l.prices.LatestPrice(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("symbol %s: %w", symbol, ErrUnknownPrice)
	}
	return price, nil
}

func (l *Ledger) loadUser(ctx context.Context, userID string) (model.User, error) {
	user, err := l.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return user, nil
}

func (l *Ledger) apply(ctx context.Context, user model.User, symbol string, pos *model.Position, txn model.Transaction) error {
	update := store.OrderUpdate{
		UserID:      user.ID,
		Credit:      user.Credit,
		Symbol:      symbol,
		Position:    pos,
		Transaction: txn,
	}
	if err := l.store.ApplyOrder(ctx, update); err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// lockUser acquires the user's order lock, creating it on first use.
func (l *Ledger) lockUser(userID string) func() {
	l.locksMu.Lock()
	mu, ok := l.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[userID] = mu
	}
	l.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
