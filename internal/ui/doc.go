// Package ui implements interactive terminal pickers using bubbletea's Elm architecture.
//
// Two pickers are provided: one over the user's Spotify playlists (used when
// registering a playlist without knowing its ID) and one over a playlist's
// tracks (used when pinning a track by eye instead of by URI). Each runs a
// single [list.Model] view and returns the selection, or [ErrCancelled] when
// the user backs out.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
