package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// ErrUserNotFound indicates the account does not exist.
var ErrUserNotFound = errors.New("user not found")

// OrderUpdate is the full effect of one executed order. The store
// applies it as a single transactional unit.
type OrderUpdate struct {
	UserID string
	Credit decimal.Decimal // User's credit after the order

	Symbol string
	// Position is the post-order position for Symbol. Nil means the
	// position was fully closed and its row must be deleted.
	Position *model.Position

	Transaction model.Transaction
}

// PortfolioStore persists accounts, positions and transactions.
type PortfolioStore interface {
	// GetUser loads an account with all its positions. Returns
	// ErrUserNotFound for unknown IDs.
	GetUser(ctx context.Context, id string) (model.User, error)

	// CreateUser opens an account with the given starting credit.
	CreateUser(ctx context.Context, id string, credit decimal.Decimal) (model.User, error)

	// ApplyOrder commits one order's effects atomically.
	ApplyOrder(ctx context.Context, update OrderUpdate) error

	// Transactions returns the user's ledger, most recent first.
	Transactions(ctx context.Context, userID string) ([]model.Transaction, error)
}
