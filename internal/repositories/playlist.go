package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
)

// PlaylistRepository stores the managed playlist registry.
//
// Registry names are local aliases for remote Spotify playlists; one entry is
// marked as the default so most commands can omit the --playlist flag.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist into the registry. The first registered playlist
// automatically becomes the default.
func (r *PlaylistRepository) Create(playlist models.ManagedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	spotifyID, err := shared.NormalizePlaylistID(playlist.SpotifyID)
	if err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM playlists").Scan(&count); err != nil {
		return fmt.Errorf("failed to count playlists: %w", err)
	}
	isDefault := playlist.Default || count == 0

	if isDefault {
		if _, err := r.db.Exec("UPDATE playlists SET is_default = 0"); err != nil {
			return fmt.Errorf("failed to clear default flag: %w", err)
		}
	}

	now := time.Now()
	query := `
		INSERT INTO playlists (id, sequence, name, spotify_id, display_name, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		shared.GenerateID(),
		sequence,
		playlist.Name,
		spotifyID,
		playlist.DisplayName,
		isDefault,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist %q: %w", playlist.Name, err)
	}

	return nil
}

// Get retrieves a registry entry by name.
func (r *PlaylistRepository) Get(name string) (*models.ManagedPlaylist, error) {
	query := `
		SELECT name, spotify_id, display_name, is_default
		FROM playlists
		WHERE name = ?
	`

	return r.scanOne(r.db.QueryRow(query, name), name)
}

// Default retrieves the registry entry marked as default.
func (r *PlaylistRepository) Default() (*models.ManagedPlaylist, error) {
	query := `
		SELECT name, spotify_id, display_name, is_default
		FROM playlists
		WHERE is_default = 1
	`

	return r.scanOne(r.db.QueryRow(query), "default")
}

// List returns all registry entries ordered by registration.
func (r *PlaylistRepository) List() ([]models.ManagedPlaylist, error) {
	query := `
		SELECT name, spotify_id, display_name, is_default
		FROM playlists
		ORDER BY sequence
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.ManagedPlaylist
	for rows.Next() {
		var pl models.ManagedPlaylist
		if err := rows.Scan(&pl.Name, &pl.SpotifyID, &pl.DisplayName, &pl.Default); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, pl)
	}

	return playlists, rows.Err()
}

// SetDefault marks one registry entry as the default, clearing the flag on
// all others.
func (r *PlaylistRepository) SetDefault(name string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE playlists SET is_default = 0"); err != nil {
		return fmt.Errorf("failed to clear default flag: %w", err)
	}

	result, err := tx.Exec("UPDATE playlists SET is_default = 1, updated_at = ? WHERE name = ?", time.Now(), name)
	if err != nil {
		return fmt.Errorf("failed to set default playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}

	return tx.Commit()
}

// Remove deletes a registry entry along with its pins.
func (r *PlaylistRepository) Remove(name string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM playlists WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete playlist %q: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}

	if _, err := tx.Exec("DELETE FROM pins WHERE playlist_name = ?", name); err != nil {
		return fmt.Errorf("failed to delete pins for %q: %w", name, err)
	}

	return tx.Commit()
}

func (r *PlaylistRepository) scanOne(row *sql.Row, name string) (*models.ManagedPlaylist, error) {
	var pl models.ManagedPlaylist
	err := row.Scan(&pl.Name, &pl.SpotifyID, &pl.DisplayName, &pl.Default)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &pl, nil
}
