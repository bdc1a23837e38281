// Package models defines the data model for the playlist pin manager.
//
// Pins declare where a track must sit inside a managed playlist; playlist
// entries are the ephemeral, per-snapshot view of the remote ordering.
// All records are strongly typed with required fields rather than the
// dict-shaped blobs of ad-hoc JSON configs.
package models
