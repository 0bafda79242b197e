// Package feed maintains the single connection to the external trade
// source and turns its frames into enriched ticks.
//
// The connector owns exactly one websocket connection. On connect it
// subscribes to every symbol in the reference catalog; on disconnect it
// reconnects with bounded exponential backoff and re-issues every
// subscription (subscriptions are connection-scoped). After too many
// consecutive failures the connector reports a degraded status instead
// of crashing. Malformed frames are logged and dropped.
package feed
