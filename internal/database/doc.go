// Package database manages the Postgres connection pool.
//
// One database holds all persistent state: user accounts with their
// positions, the append-only transaction history, and the reference
// metadata the catalog loads at startup.
package database
