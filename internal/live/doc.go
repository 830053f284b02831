// Package live fans full-collection snapshots out to subscribers.
//
// A [Hub] is keyed (user id, book id, ...) and backed by a [Loader] that reads the current
// collection for a key. Subscribing delivers the current snapshot immediately; every [Hub.Publish]
// reloads the collection and delivers it to all subscribers of that key.
//
// Delivery is latest-wins: each subscriber channel holds at most one snapshot, and an undelivered
// snapshot is replaced by a newer one. Publishes are serialized, so a subscriber never observes an
// older snapshot after a newer one. Slow consumers never block publishers.
package live
