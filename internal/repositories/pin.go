package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
)

// PinRepository stores declared pins, one row per (playlist, track).
//
// Positions are unique within a playlist; what happens when a new pin wants
// an occupied position is decided by the caller's [models.ConflictPolicy].
type PinRepository struct {
	db *sql.DB
}

// NewPinRepository creates a new PinRepository with the given database connection
func NewPinRepository(db *sql.DB) *PinRepository {
	return &PinRepository{db: db}
}

// Upsert inserts a pin or moves an existing pin for the same track to a new
// position.
//
// When another track already holds the target position the policy decides:
// reject fails with ErrPinConflict, replace unpins the occupant, keep leaves
// the occupant and discards the new pin without error.
func (r *PinRepository) Upsert(playlistName string, pin models.Pin, policy models.ConflictPolicy) error {
	if playlistName == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	uri, err := shared.NormalizeTrackURI(pin.TrackURI)
	if err != nil {
		return err
	}
	pin.TrackURI = uri

	if err := pin.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	occupant, err := r.at(playlistName, pin.Position)
	if err != nil {
		return err
	}

	if occupant != "" && occupant != pin.TrackURI {
		switch policy {
		case models.ConflictReject:
			return fmt.Errorf("%w: position %d in %q is held by %s", shared.ErrPinConflict, pin.Position, playlistName, occupant)
		case models.ConflictKeep:
			return nil
		case models.ConflictReplace:
			if err := r.Remove(playlistName, occupant); err != nil {
				return fmt.Errorf("failed to replace pin at %d: %w", pin.Position, err)
			}
		}
	}

	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE pins
		SET position = ?, display_name = ?, updated_at = ?
		WHERE playlist_name = ? AND track_uri = ?
	`, pin.Position, pin.DisplayName, now, playlistName, pin.TrackURI)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	sequence, err := NextSequence(r.db, "pins")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO pins (id, sequence, playlist_name, track_uri, position, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, shared.GenerateID(), sequence, playlistName, pin.TrackURI, pin.Position, pin.DisplayName, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert pin: %w", err)
	}

	return nil
}

// List returns a playlist's pins in ascending position order.
func (r *PinRepository) List(playlistName string) ([]models.Pin, error) {
	rows, err := r.db.Query(`
		SELECT track_uri, position, display_name
		FROM pins
		WHERE playlist_name = ?
		ORDER BY position
	`, playlistName)
	if err != nil {
		return nil, fmt.Errorf("failed to list pins: %w", err)
	}
	defer rows.Close()

	var pins []models.Pin
	for rows.Next() {
		var pin models.Pin
		if err := rows.Scan(&pin.TrackURI, &pin.Position, &pin.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}
		pins = append(pins, pin)
	}

	return pins, rows.Err()
}

// Remove unpins a track.
func (r *PinRepository) Remove(playlistName, trackRef string) error {
	uri, err := shared.NormalizeTrackURI(trackRef)
	if err != nil {
		return err
	}

	result, err := r.db.Exec("DELETE FROM pins WHERE playlist_name = ? AND track_uri = ?", playlistName, uri)
	if err != nil {
		return fmt.Errorf("failed to delete pin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s is not pinned in %q", shared.ErrPinNotFound, uri, playlistName)
	}

	return nil
}

// Move changes an existing pin's position, applying the conflict policy when
// the target position is occupied.
func (r *PinRepository) Move(playlistName, trackRef string, position int, policy models.ConflictPolicy) error {
	uri, err := shared.NormalizeTrackURI(trackRef)
	if err != nil {
		return err
	}

	var displayName string
	err = r.db.QueryRow(
		"SELECT display_name FROM pins WHERE playlist_name = ? AND track_uri = ?",
		playlistName, uri,
	).Scan(&displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s is not pinned in %q", shared.ErrPinNotFound, uri, playlistName)
	}
	if err != nil {
		return fmt.Errorf("failed to look up pin: %w", err)
	}

	return r.Upsert(playlistName, models.Pin{TrackURI: uri, Position: position, DisplayName: displayName}, policy)
}

// at returns the track URI pinned at a position, or empty when the slot is free.
func (r *PinRepository) at(playlistName string, position int) (string, error) {
	var uri string
	err := r.db.QueryRow(
		"SELECT track_uri FROM pins WHERE playlist_name = ? AND position = ?",
		playlistName, position,
	).Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check position %d: %w", position, err)
	}
	return uri, nil
}
