// Package library is the signed-in user's saved-book store.
//
// A [Store] mirrors the user's collection through a live subscription and exposes the mutations
// readers perform: save, remove, progress and page updates, and notes. Membership checks are
// answered synchronously from the last delivered snapshot.
//
// Saves are serialized per store and checked against the snapshot before the write, so saving
// the same book twice fails with [shared.ErrDuplicateEntry]. The backing table carries a unique
// (user, book) index as well, and collisions there are reported the same way.
package library
