package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// Memory is an in-memory PortfolioStore. Safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]model.User
	transactions map[string][]model.Transaction
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]model.User),
		transactions: make(map[string][]model.Transaction),
	}
}

func (m *Memory) GetUser(ctx context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (m *Memory) CreateUser(ctx context.Context, id string, credit decimal.Decimal) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[id]; ok {
		return copyUser(existing), nil
	}

	user := model.User{
		ID:        id,
		Credit:    credit,
		Positions: make(map[string]model.Position),
	}
	m.users[id] = user
	return copyUser(user), nil
}

func (m *Memory) ApplyOrder(ctx context.Context, update OrderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[update.UserID]
	if !ok {
		return ErrUserNotFound
	}

	user.Credit = update.Credit
	if update.Position == nil {
		delete(user.Positions, update.Symbol)
	} else {
		user.Positions[update.Symbol] = *update.Position
	}
	m.users[update.UserID] = user

	m.transactions[update.UserID] = append(m.transactions[update.UserID], update.Transaction)
	return nil
}

func (m *Memory) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.transactions[userID]
	out := make([]model.Transaction, len(stored))
	// Most recent first.
	for i, tx := range stored {
		out[len(stored)-1-i] = tx
	}
	return out, nil
}

// copyUser returns a deep copy so callers cannot mutate stored state.
func copyUser(user model.User) model.User {
	positions := make(map[string]model.Position, len(user.Positions))
	for symbol, pos := range user.Positions {
		positions[symbol] = pos
	}
	user.Positions = positions
	return user
}
