package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Reference Data
// -----------------------------------------------------------------------------

// ReferenceRecord is static descriptive metadata for a symbol.
// Records are immutable after load; the catalog replaces whole snapshots.
type ReferenceRecord struct {
	Symbol      string // Primary key (e.g., "AAPL")
	Name        string // Company name
	Sector      string // GICS sector
	Industry    string // GICS industry
	Exchange    string // Listing exchange
	Country     string // Country of incorporation
	Currency    string // Trading currency
	Description string // Short business description
	Website     string // Company website URL
	Logo        string // Logo image URL
}

// -----------------------------------------------------------------------------
// Market Data
// -----------------------------------------------------------------------------

// Tick is one priced trade event for a symbol. Ticks are ephemeral; the
// only persisted derivative is the hub's latest tick per symbol.
type Tick struct {
	Symbol    string          // Market symbol
	Price     decimal.Decimal // Trade price
	Volume    decimal.Decimal // Trade volume
	Timestamp int64           // Upstream timestamp (ms since epoch)

	// Reference is best-effort enrichment; nil when the symbol is not
	// in the catalog. The tick is still delivered.
	Reference *ReferenceRecord
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

// User holds a trading account: free cash plus open positions keyed by symbol.
type User struct {
	ID        string
	Credit    decimal.Decimal     // Free cash, never negative
	Positions map[string]Position // Symbol → position, quantity always > 0
}

// Position is a user's current holding of one symbol.
// A position with quantity zero must not exist; it is deleted instead.
type Position struct {
	Symbol      string
	Quantity    decimal.Decimal // Strictly positive while the entry exists
	AvgCost     decimal.Decimal // Quantity-weighted average purchase price
	LastUpdated time.Time
}

// Side is the direction of an executed order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Transaction is one executed order. Append-only, immutable once written.
type Transaction struct {
	ID        uuid.UUID
	UserID    string
	Symbol    string
	Side      Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal // Execution price from the latest-price cache
	Total     decimal.Decimal // Quantity × Price, exact
	Timestamp time.Time
}

// NewTransaction builds a transaction with a fresh ID and Total derived
// from quantity and price.
func NewTransaction(userID, symbol string, side Side, quantity, price decimal.Decimal, ts time.Time) Transaction {
	return Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Total:     quantity.Mul(price),
		Timestamp: ts,
	}
}
