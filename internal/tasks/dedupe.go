package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackpin/internal/services"
)

// duplicatedURIs returns, in first-seen order, every track URI that occurs
// two or more times in the snapshot.
func duplicatedURIs(snap *services.Snapshot) ([]string, int) {
	counts := make(map[string]int, len(snap.Entries))
	var order []string

	for _, entry := range snap.Entries {
		if counts[entry.TrackURI] == 0 {
			order = append(order, entry.TrackURI)
		}
		counts[entry.TrackURI]++
	}

	var dups []string
	removed := 0
	for _, uri := range order {
		if counts[uri] >= 2 {
			dups = append(dups, uri)
			removed += counts[uri] - 1
		}
	}

	return dups, removed
}

// EnsureUnique removes duplicate tracks from the playlist.
//
// Only identifiers with two or more occurrences are touched: every copy is
// removed, then a single copy of each is appended at the tail in first-seen
// order. Unique tracks keep their positions untouched. When the snapshot has
// no duplicates this makes zero remote calls and returns the snapshot as-is.
//
// Because removal collapses indexes held by the caller, a fresh snapshot is
// fetched after mutating and returned alongside the count of extra copies
// removed.
func (e *PinEngine) EnsureUnique(ctx context.Context, snap *services.Snapshot) (*services.Snapshot, int, error) {
	dups, removed := duplicatedURIs(snap)
	if len(dups) == 0 {
		return snap, 0, nil
	}

	e.logger.Info("removing duplicate tracks", "playlist", snap.PlaylistID, "unique_duplicated", len(dups), "extra_copies", removed)

	if _, err := e.api.RemoveAllOccurrences(ctx, snap.PlaylistID, dups); err != nil {
		return nil, 0, fmt.Errorf("failed to remove duplicates: %w", err)
	}

	if _, err := e.api.AddTracks(ctx, snap.PlaylistID, dups, nil); err != nil {
		return nil, 0, fmt.Errorf("failed to re-append deduplicated tracks: %w", err)
	}

	fresh, err := e.api.PlaylistItems(ctx, snap.PlaylistID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to re-read playlist after dedup: %w", err)
	}

	return fresh, removed, nil
}
