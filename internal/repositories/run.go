package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
)

// SyncRunRepository stores the outcome of every sync for later inspection.
// Implements tasks.RunRecorder.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Record persists one sync run.
func (r *SyncRunRepository) Record(ctx context.Context, run models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, sequence, playlist_name, status, inserts, moves, skips, duplicates_removed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shared.GenerateID(),
		sequence,
		run.PlaylistName,
		string(run.Status),
		run.Inserts,
		run.Moves,
		run.Skips,
		run.DuplicatesRemoved,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	return nil
}

// History returns the most recent runs for a playlist, newest first. An empty
// name returns runs across all playlists.
func (r *SyncRunRepository) History(playlistName string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT playlist_name, status, inserts, moves, skips, duplicates_removed, error, started_at, finished_at
		FROM sync_runs
	`
	args := []any{}
	if playlistName != "" {
		query += " WHERE playlist_name = ?"
		args = append(args, playlistName)
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var status string
		if err := rows.Scan(&run.PlaylistName, &status, &run.Inserts, &run.Moves, &run.Skips, &run.DuplicatesRemoved, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.Status = models.RunStatus(status)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
