// Package services wraps the external HTTP collaborators readx talks to.
//
// # Catalog
//
// [CatalogClient] queries a Google Books compatible volumes API. Every response passes through
// [NormalizeVolume], the single canonical normalizer, so callers only ever see [models.Book].
// Requests are paced with a [rate.Limiter] and single-volume lookups go through a [BookCache].
//
// # Completion
//
// [CompletionClient] posts chat transcripts to an OpenAI compatible chat completions endpoint.
// The API key is attached as a bearer token through an [oauth2.StaticTokenSource].
//
// # Book cache
//
// [MemoryBookCache] keeps books in process with a TTL; [RedisBookCache] shares them through Redis.
// Both report [shared.ErrCacheMiss] for absent or expired keys.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status
//   - [shared.ErrBookNotFound] : volume id unknown to the catalog
//   - [shared.ErrFetchFailed] : single-volume fetch failed for any other reason
//   - [shared.ErrMalformedResponse] : body could not be decoded or had no usable content
package services
