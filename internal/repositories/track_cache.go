package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TrackNameCache stores human-readable labels for track URIs.
//
// Labels are cosmetic (pin listings, CSV export) and never authoritative;
// looking up an uncached URI is not an error.
type TrackNameCache struct {
	db *sql.DB
}

// NewTrackNameCache creates a new TrackNameCache with the given database connection
func NewTrackNameCache(db *sql.DB) *TrackNameCache {
	return &TrackNameCache{db: db}
}

// Put caches a track's name and primary artist, replacing any earlier entry.
func (c *TrackNameCache) Put(uri, name, artist string) error {
	_, err := c.db.Exec(`
		INSERT INTO track_names (uri, name, artist, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (uri) DO UPDATE SET name = excluded.name, artist = excluded.artist, cached_at = excluded.cached_at
	`, uri, name, artist, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cache track name: %w", err)
	}
	return nil
}

// Label returns "Artist - Title" for a cached URI, or empty when unknown.
func (c *TrackNameCache) Label(uri string) string {
	var name, artist string
	err := c.db.QueryRow("SELECT name, artist FROM track_names WHERE uri = ?", uri).Scan(&name, &artist)
	if errors.Is(err, sql.ErrNoRows) || err != nil {
		return ""
	}
	if artist == "" {
		return name
	}
	return fmt.Sprintf("%s - %s", artist, name)
}

// Labels resolves a batch of URIs in one query. Missing URIs are absent from
// the result map.
func (c *TrackNameCache) Labels(uris []string) (map[string]string, error) {
	labels := make(map[string]string, len(uris))
	if len(uris) == 0 {
		return labels, nil
	}

	query := "SELECT uri, name, artist FROM track_names WHERE uri IN (?" + strings.Repeat(",?", len(uris)-1) + ")"
	args := make([]any, len(uris))
	for i, uri := range uris {
		args[i] = uri
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up track names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uri, name, artist string
		if err := rows.Scan(&uri, &name, &artist); err != nil {
			return nil, fmt.Errorf("failed to scan track name: %w", err)
		}
		if artist == "" {
			labels[uri] = name
		} else {
			labels[uri] = fmt.Sprintf("%s - %s", artist, name)
		}
	}

	return labels, rows.Err()
}
