package models

import (
	"fmt"
	"strings"
	"time"
)

// Pin declares that a track must sit at a fixed 1-based position in a
// managed playlist. Pins are created by the pin-management commands and
// consumed read-only by the sync engine.
type Pin struct {
	TrackURI    string `json:"track_uri"`   // canonical spotify:track:<id> URI
	Position    int    `json:"position"`    // 1-based target position, unique per playlist
	DisplayName string `json:"display_name,omitempty"` // cached label, best-effort, never authoritative
}

// Validate checks that the pin has a canonical track URI and a positive position.
func (p Pin) Validate() error {
	if !strings.HasPrefix(p.TrackURI, "spotify:track:") {
		return fmt.Errorf("pin track URI %q is not canonical", p.TrackURI)
	}
	if p.Position < 1 {
		return fmt.Errorf("pin position must be >= 1, got %d", p.Position)
	}
	return nil
}

// PlaylistEntry is one entry observed in a remote playlist snapshot.
//
// Ephemeral: recomputed on every snapshot fetch, never persisted.
type PlaylistEntry struct {
	TrackURI   string   `json:"track_uri"`
	Index      int      `json:"index"` // 0-based position as currently observed
	Title      string   `json:"title,omitempty"`
	Artist     string   `json:"artist,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	ArtistIDs  []string `json:"artist_ids,omitempty"`
}

// ManagedPlaylist is one row of the local playlist registry.
type ManagedPlaylist struct {
	Name        string `json:"name"` // registry key, filesystem-safe
	SpotifyID   string `json:"spotify_id"`
	DisplayName string `json:"display_name"`
	Default     bool   `json:"default"`
}

// Validate checks that the registry row names a real remote playlist.
func (m ManagedPlaylist) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("managed playlist name is required")
	}
	if m.SpotifyID == "" {
		return fmt.Errorf("managed playlist %q has no spotify ID", m.Name)
	}
	return nil
}

// ConflictPolicy controls what happens when a pin targets a position that is
// already pinned to a different track. There is no interactive fallback; the
// policy is always explicit.
type ConflictPolicy int

const (
	ConflictReject ConflictPolicy = iota
	ConflictReplace
	ConflictKeep
)

func (c ConflictPolicy) String() string {
	switch c {
	case ConflictReject:
		return "reject"
	case ConflictReplace:
		return "replace"
	case ConflictKeep:
		return "keep"
	default:
		return "unknown"
	}
}

// ParseConflictPolicy converts a flag value into a ConflictPolicy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch s {
	case "", "reject":
		return ConflictReject, nil
	case "replace":
		return ConflictReplace, nil
	case "keep":
		return ConflictKeep, nil
	default:
		return ConflictReject, fmt.Errorf("unknown conflict policy %q (want reject, replace, or keep)", s)
	}
}

// RunStatus describes the outcome of one playlist sync pass.
type RunStatus string

const (
	RunSucceeded RunStatus = "ok"
	RunPartial   RunStatus = "partial" // some pins skipped, playlist otherwise converged
	RunFailed    RunStatus = "failed"
)

// SyncRun records the outcome of syncing one playlist.
type SyncRun struct {
	PlaylistName      string    `json:"playlist_name"`
	Status            RunStatus `json:"status"`
	Inserts           int       `json:"inserts"`
	Moves             int       `json:"moves"`
	Skips             int       `json:"skips"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}
