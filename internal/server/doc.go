// Package server exposes the reading tracker over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/library/{id}").
//
// # API
//
// [API] registers the REST routes under /api and the live routes under /ws. Every route except
// sign-up, sign-in, search and single-book lookup requires a bearer token issued by the identity
// service; websocket clients may pass it as a token query parameter instead.
//
// Each signed-in user gets one library store, bound on first use and kept current by its live
// subscription, so reads never hit the database. Chat sessions are kept per user and book.
//
// # Live Updates
//
// /ws/library and /ws/books/{id}/comments push a full snapshot on connect and after every change,
// as JSON frames of the form {"type": ..., "data": [...]}.
package server
