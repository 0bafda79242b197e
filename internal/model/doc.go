// Package model defines shared data types used across the relay and the
// trading ledger.
//
// Conventions:
//   - Money and share quantities: shopspring decimal, never floats
//   - Tick timestamps: int64 milliseconds since Unix epoch (upstream wire unit)
//   - IDs: string for users and symbols, uuid.UUID for transactions
package model
