package ledger

import "errors"

// Order rejection reasons. All are returned to the caller and never
// terminate the process; a rejected order mutates nothing.
var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrUnknownPrice       = errors.New("no current price for symbol")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoPosition         = errors.New("no position in symbol")
	ErrMarketClosed       = errors.New("market is closed")
)
