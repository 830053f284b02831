// Package models defines the domain entities shared by the readx stores, services, and transports.
//
// The package contains three categories of types:
//
// 1. Catalog records: immutable data fetched from the external book catalog
//   - [Book] : canonical, normalized volume metadata
//   - [SearchFilters] : structured search qualifiers (print type, availability, language, subject)
//
// 2. Persistent entities: rows owned by a user or a book
//   - [User] : local identity with hashed password and yearly reading goal
//   - [LibraryEntry] : a saved book snapshot plus progress, page, and notes
//   - [Comment] : a per-book discussion message with its author
//
// 3. Session state: values that live only in memory or on the local device
//   - [Session] : the signed-in user as observed by stores and transports
//   - [ChatMessage] : one turn of an assistant transcript
//   - [ReadingSettings] : accessibility presentation settings
//   - [Stats] : derived reading statistics
//
// Persistent entities implement Validate so stores can reject malformed input before it reaches storage.
package models
