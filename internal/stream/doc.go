// Package stream exposes the broadcast hub over websocket. Each
// accepted connection becomes one hub session: the handler upgrades the
// request, seeds the subscriber with the latest-tick snapshot, then
// pumps frames from the session queue to the socket until either side
// goes away.
package stream
