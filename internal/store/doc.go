// Package store persists trading accounts and the append-only
// transaction ledger. An executed order is applied as one atomic
// update: the user's credit, the affected position, and the new
// transaction row all commit together or not at all.
//
// Two implementations are provided: Postgres for production and an
// in-memory store for tests.
package store
