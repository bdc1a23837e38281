package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/trackpin/internal/models"
)

// CollectionAPI defines the remote ordered-collection operations the sync
// engine depends on. SpotifyClient is the production implementation; tests
// substitute an in-memory fake playlist.
type CollectionAPI interface {
	// PlaylistItems fetches the complete, order-preserving snapshot of a
	// playlist, paginating transparently. Entries without a resolvable track
	// URI (local uploads) are excluded.
	PlaylistItems(ctx context.Context, playlistID string) (*Snapshot, error)

	// AddTracks inserts tracks at the given 0-based index, or appends when
	// position is nil. Returns the new snapshot version token.
	AddTracks(ctx context.Context, playlistID string, uris []string, position *int) (string, error)

	// Reorder moves rangeLength items starting at rangeStart to sit
	// immediately before insertBefore. The snapshot token fences the write
	// against concurrent edits. Returns the new snapshot version token.
	Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int, snapshotID string) (string, error)

	// RemoveAllOccurrences deletes every occurrence of each given track URI.
	// The remote API cannot delete by index, only by value.
	RemoveAllOccurrences(ctx context.Context, playlistID string, uris []string) (string, error)
}

// Snapshot is a full read of a playlist's ordering at one point in time.
type Snapshot struct {
	PlaylistID string
	SnapshotID string // opaque version token, fences subsequent mutations
	Entries    []models.PlaylistEntry
}

// URIs returns the ordered track URIs of the snapshot.
func (s *Snapshot) URIs() []string {
	uris := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		uris[i] = e.TrackURI
	}
	return uris
}

// apiResponse is a raw API response with status and body, retained across
// retry attempts so the caller can inspect the final failure.
type apiResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}
