// Package tasks runs long catalog operations with real-time progress reporting.
//
// # Refreshing books
//
// Library entries keep a snapshot of the book they were saved from. [RefreshBooks] re-fetches
// current catalog records for a set of volume ids using a bounded worker pool paced by a shared
// rate limiter, so a large library does not trip the catalog's quota. Failures are recorded per id
// and never abort the batch.
//
// # Progress Reporting
//
// Operations accept an optional send-only channel of [ProgressUpdate]. Sends never block: when the
// channel is full the update is dropped.
package tasks
