// Package catalog holds static per-symbol reference metadata.
//
// The catalog defines the tracked symbol universe: the feed connector
// subscribes to every symbol it contains, and the ledger rejects orders
// for symbols it does not. Lookups are O(1); reloads replace the whole
// snapshot atomically.
package catalog
