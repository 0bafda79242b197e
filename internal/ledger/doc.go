// Package ledger executes buy and sell orders against user accounts.
//
// An order is validated first (quantity, market hours, symbol, price,
// account), then applied as one atomic unit: credit mutation, position
// mutation and transaction append commit together. Rejected orders
// leave no trace. Orders for the same user are serialized; orders for
// different users run in parallel.
//
// The execution price always comes from the latest-price cache. A
// caller never supplies a price.
package ledger
