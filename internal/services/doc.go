// Package services wraps the Spotify Web API behind a resilient client.
//
// [SpotifyClient] owns the authentication lifecycle (lazy refresh-token
// grant, forced refresh on 401) and the retry policy for rate limits and
// transient server failures. Higher layers consume the [CollectionAPI]
// interface, which exposes exactly the operations the sync engine needs:
// snapshot reads, positioned inserts, single-item range moves, and
// remove-all-occurrences deletes.
//
// All operations are blocking with bounded retry-driven sleeps; there is no
// internal parallelism. The token refresh path is mutex-guarded so that
// concurrent playlist workers sharing one client never race refreshes.
package services
