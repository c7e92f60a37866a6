// Package broadcast receives the UDP announcements controllers multicast
// while their broadcast mode is enabled.
//
// A Listener is either stopped or listening. Start binds the socket, joins
// the group and returns; datagrams are then handed to the Handler from the
// listener's own goroutine as typed events:
//
//   - RawMessage for every datagram, decoded as UTF-8
//   - DeviceAnnounced the first time an address sends JSON with a device_id
//   - Error when the socket fails; the loop then stops
//   - Stopped once the socket has been closed
//
// The listener never transmits.
package broadcast
