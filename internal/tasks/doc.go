// package tasks contains the pin reconciliation engine.
//
// The engine reads a remote playlist snapshot, removes duplicate tracks, and
// moves or inserts pinned tracks so each one sits at its configured 1-based
// position. All remote mutations go through [services.CollectionAPI] and
// thread the playlist's snapshot token so concurrent edits are detected
// rather than silently overwritten. Long-running operations report progress
// through non-blocking channels.
package tasks
