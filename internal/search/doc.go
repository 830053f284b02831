// Package search implements incremental catalog search.
//
// A [Controller] owns the query text, filters, and accumulated results of one search session.
// Text changes are debounced; filter changes re-run the current query immediately; LoadMore
// appends the next page. Every dispatched request carries a sequence number and only the
// response matching the latest number is applied, so a slow response for an old query can
// never overwrite newer results.
package search
