// Package hub fans enriched ticks out to subscriber sessions and keeps
// the authoritative latest-price cache.
//
// Each session has a bounded outbound buffer. Delivery is isolated: a
// slow session drops its own frames, a broken session is removed, and
// neither affects delivery to the others or blocks the publisher.
// Within one symbol, delivery order matches publish order; across
// symbols there is no ordering guarantee.
package hub
