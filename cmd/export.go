package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackpin/internal/formatter"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/urfave/cli/v3"
)

// ExportCSV writes the current playlist contents to a CSV file.
//
// Columns are artist/title, popularity, whether the track is pinned, and the
// track's genres looked up through its artists.
func (r *Runner) ExportCSV(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}
	if err := r.requireClient(); err != nil {
		return err
	}

	playlist, err := r.resolvePlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	r.logger.Infof("exporting playlist %v", playlist.Name)

	snap, err := r.client.PlaylistItems(ctx, playlist.SpotifyID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	pins, err := r.store.Pins.List(playlist.Name)
	if err != nil {
		return err
	}

	genres, err := r.fetchGenres(ctx, snap.Entries)
	if err != nil {
		r.logger.Warnf("failed to fetch genres, exporting without them %v", err)
		genres = map[string][]string{}
	}

	for _, entry := range snap.Entries {
		r.cacheTrackName(entry.TrackURI, entry.Title, entry.Artist)
	}

	rows := formatter.BuildExportRows(snap.Entries, pins, genres)

	outputPath := cmd.String("output")
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s_export.csv", playlist.Name)
	}

	path, err := formatter.WriteCSVExport(rows, outputPath)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Exported %d tracks to %s\n", len(rows), path)
}

// fetchGenres resolves genres for every artist appearing in the snapshot,
// batching artist lookups to the API's 50 id limit.
func (r *Runner) fetchGenres(ctx context.Context, entries []models.PlaylistEntry) (map[string][]string, error) {
	seen := map[string]bool{}
	ids := []string{}
	for _, entry := range entries {
		for _, id := range entry.ArtistIDs {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	genres := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += 50 {
		end := min(start+50, len(ids))
		artists, err := r.client.SeveralArtists(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, artist := range artists {
			genres[artist.ID] = artist.Genres
		}
	}

	return genres, nil
}

// exportCommand handles playlist exports.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlist data",
		Commands: []*cli.Command{
			{
				Name:  "csv",
				Usage: "Export a playlist to CSV with pin and genre columns",
				Flags: []cli.Flag{
					playlistFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.ExportCSV,
			},
		},
	}
}
