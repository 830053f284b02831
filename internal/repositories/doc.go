// Package repositories implements SQLite persistence for readx entities.
//
// Each repository handles CRUD operations with atomic sequence generation for stable ordering.
// Users are soft-deleted via deleted_at; library entries and comments are hard-deleted.
//
// Key Implementations:
//   - [UserRepository] : local accounts with email lookups and yearly goals
//   - [LibraryRepository] : per-user saved books with progress, page, and notes
//   - [CommentRepository] : per-book comments with author-checked deletes
//
// Update and delete statements on owned rows always include the owner id, so storage enforces
// ownership even when a caller skips its own check.
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
