// package formatter renders playlist snapshots for human consumption (CSV export, pin tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/trackpin/internal/models"
)

// ExportRow is one line of a playlist CSV export.
type ExportRow struct {
	ArtistTitle string   // "Artist - Title", artists comma-joined
	Popularity  int      // Spotify popularity score, 0-100
	Pinned      bool     // whether the track is in the playlist's pin set
	Genres      []string // deduplicated genres across the track's artists
}

// BuildExportRows combines a snapshot's entries with the pin set and the
// artist genre map into export rows, preserving playlist order.
func BuildExportRows(entries []models.PlaylistEntry, pins []models.Pin, genresByArtist map[string][]string) []ExportRow {
	pinned := make(map[string]bool, len(pins))
	for _, pin := range pins {
		pinned[pin.TrackURI] = true
	}

	rows := make([]ExportRow, 0, len(entries))
	for _, entry := range entries {
		artist := entry.Artist
		if artist == "" {
			artist = "Unknown Artist"
		}
		title := entry.Title
		if title == "" {
			title = "Unknown"
		}

		seen := make(map[string]bool)
		var genres []string
		for _, artistID := range entry.ArtistIDs {
			for _, genre := range genresByArtist[artistID] {
				if !seen[genre] {
					seen[genre] = true
					genres = append(genres, genre)
				}
			}
		}

		rows = append(rows, ExportRow{
			ArtistTitle: fmt.Sprintf("%s - %s", artist, title),
			Popularity:  entry.Popularity,
			Pinned:      pinned[entry.TrackURI],
			Genres:      genres,
		})
	}

	return rows
}

// ExportToCSV renders rows as CSV with columns: Artist - Title, Popularity, Pinned, Genre
func ExportToCSV(rows []ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Artist - Title", "Popularity", "Pinned", "Genre"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		pinned := "No"
		if row.Pinned {
			pinned = "Yes"
		}
		genre := "Unknown"
		if len(row.Genres) > 0 {
			genre = strings.Join(row.Genres, ", ")
		}

		record := []string{
			row.ArtistTitle,
			strconv.Itoa(row.Popularity),
			pinned,
			genre,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteCSVExport renders rows and writes them to path.
func WriteCSVExport(rows []ExportRow, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is required")
	}

	data, err := ExportToCSV(rows)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

// FormatPinTable renders pins as aligned plain text for terminal output.
// Labels are optional display names keyed by track URI.
func FormatPinTable(pins []models.Pin, labels map[string]string) string {
	if len(pins) == 0 {
		return "No pins configured.\n"
	}

	var buf bytes.Buffer
	for _, pin := range pins {
		label := labels[pin.TrackURI]
		if label == "" {
			label = pin.DisplayName
		}
		if label == "" {
			label = pin.TrackURI
		}
		fmt.Fprintf(&buf, "%4d  %s\n", pin.Position, label)
	}
	return buf.String()
}
