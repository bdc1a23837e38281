package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/trackpin/internal/models"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., pin #42, run #15).
// They are NOT exposed in CLI output but used internally for sorting and debugging.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// Store bundles the pin and playlist repositories behind the engine's
// read-only view of local state (tasks.PinStore).
type Store struct {
	Pins      *PinRepository
	Playlists *PlaylistRepository
}

// NewStore creates a Store over one database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Pins:      NewPinRepository(db),
		Playlists: NewPlaylistRepository(db),
	}
}

// LoadPins resolves a registry name (empty means the default playlist) to its
// registry name, Spotify ID, and declared pins. The name is returned so run
// records carry the real registry key even when the caller passed "".
func (s *Store) LoadPins(ctx context.Context, playlistName string) (string, string, []models.Pin, error) {
	var playlist *models.ManagedPlaylist
	var err error

	if playlistName == "" {
		playlist, err = s.Playlists.Default()
	} else {
		playlist, err = s.Playlists.Get(playlistName)
	}
	if err != nil {
		return "", "", nil, err
	}

	pins, err := s.Pins.List(playlist.Name)
	if err != nil {
		return "", "", nil, err
	}

	return playlist.Name, playlist.SpotifyID, pins, nil
}

// ListManaged returns every playlist in the registry.
func (s *Store) ListManaged(ctx context.Context) ([]models.ManagedPlaylist, error) {
	return s.Playlists.List()
}
