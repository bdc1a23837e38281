package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/trackpin/internal/formatter"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/desertthunder/trackpin/internal/ui"
	"github.com/urfave/cli/v3"
)

// PinAdd pins a track to a 1-based position in a registered playlist.
//
// The track comes from the positional argument (URI, bare ID, or open.spotify
// URL) or, with --pick, from an interactive picker over the playlist's current
// tracks. Track names are cached locally so `pin list` stays readable offline.
func (r *Runner) PinAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	playlist, err := r.resolvePlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	policy, err := models.ParseConflictPolicy(cmd.String("on-conflict"))
	if err != nil {
		return err
	}

	position := cmd.Int("position")
	pin := models.Pin{TrackURI: cmd.StringArg("track"), Position: position}

	if cmd.Bool("pick") {
		if err := r.requireClient(); err != nil {
			return err
		}

		snap, err := r.client.PlaylistItems(ctx, playlist.SpotifyID)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		if len(snap.Entries) == 0 {
			return fmt.Errorf("%w: playlist %q has no tracks", shared.ErrTrackNotFound, playlist.Name)
		}

		choice, err := ui.PickTrack(snap.Entries)
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				return r.writePlain("Cancelled.\n")
			}
			return err
		}

		pin.TrackURI = choice.TrackURI
		pin.DisplayName = fmt.Sprintf("%s - %s", choice.Artist, choice.Title)
		r.cacheTrackName(choice.TrackURI, choice.Title, choice.Artist)
	} else if pin.TrackURI == "" {
		return fmt.Errorf("%w: a track URI or --pick is required", shared.ErrMissingArgument)
	} else if r.client != nil {
		// Best effort metadata lookup, pins work fine without it.
		if track, err := r.client.Track(ctx, pin.TrackURI); err == nil && len(track.Artists) > 0 {
			pin.DisplayName = fmt.Sprintf("%s - %s", track.Artists[0].Name, track.Name)
			r.cacheTrackName(pin.TrackURI, track.Name, track.Artists[0].Name)
		}
	}

	if err := r.store.Pins.Upsert(playlist.Name, pin, policy); err != nil {
		return err
	}

	label := pin.DisplayName
	if label == "" {
		label = pin.TrackURI
	}
	r.logger.Infof("pinned %v at position %v in %v", pin.TrackURI, position, playlist.Name)
	return r.writePlain("✓ Pinned %s at position %d in %q\n", label, position, playlist.Name)
}

// PinList prints the pins of a playlist ordered by position.
func (r *Runner) PinList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	playlist, err := r.resolvePlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	pins, err := r.store.Pins.List(playlist.Name)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pins, cmd.Bool("pretty"))
	}

	uris := make([]string, len(pins))
	for i, p := range pins {
		uris[i] = p.TrackURI
	}
	labels, err := r.names.Labels(uris)
	if err != nil {
		r.logger.Warnf("failed to load cached track names %v", err)
	}

	r.writePlain("Pins for %q:\n", playlist.Name)
	return r.writePlain("%s", formatter.FormatPinTable(pins, labels))
}

// PinRemove unpins a track. The playlist itself is not touched until the next sync.
func (r *Runner) PinRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	playlist, err := r.resolvePlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	trackRef := cmd.StringArg("track")
	if trackRef == "" {
		return fmt.Errorf("%w: a track URI is required", shared.ErrMissingArgument)
	}

	if err := r.store.Pins.Remove(playlist.Name, trackRef); err != nil {
		return err
	}
	return r.writePlain("✓ Unpinned %s from %q\n", trackRef, playlist.Name)
}

// PinMove changes the pinned position of an already pinned track.
func (r *Runner) PinMove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	playlist, err := r.resolvePlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	trackRef := cmd.StringArg("track")
	if trackRef == "" {
		return fmt.Errorf("%w: a track URI is required", shared.ErrMissingArgument)
	}

	policy, err := models.ParseConflictPolicy(cmd.String("on-conflict"))
	if err != nil {
		return err
	}

	position := cmd.Int("position")
	if err := r.store.Pins.Move(playlist.Name, trackRef, position, policy); err != nil {
		return err
	}
	return r.writePlain("✓ Moved %s to position %d in %q\n", trackRef, position, playlist.Name)
}

func (r *Runner) cacheTrackName(trackRef, title, artist string) {
	uri, err := shared.NormalizeTrackURI(trackRef)
	if err != nil {
		return
	}
	if err := r.names.Put(uri, title, artist); err != nil {
		r.logger.Warnf("failed to cache track name %v", err)
	}
}

// playlistFlag selects the registered playlist, the default playlist when omitted.
func playlistFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "playlist",
		Aliases: []string{"p"},
		Usage:   "Registered playlist name (default playlist when omitted)",
	}
}

// conflictFlag selects the position conflict policy.
func conflictFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "on-conflict",
		Usage: "What to do when the position is taken: reject, replace, or keep",
		Value: "reject",
	}
}

// pinCommand handles pin management.
func pinCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "pin",
		Usage: "Pin tracks to fixed playlist positions",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Pin a track to a 1-based position",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					playlistFlag(),
					conflictFlag(),
					&cli.IntFlag{
						Name:     "position",
						Aliases:  []string{"at"},
						Usage:    "Target position, 1 is the top of the playlist",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pick",
						Usage: "Choose the track interactively from the playlist",
					},
				},
				Action: r.PinAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List pins ordered by position",
				Flags: []cli.Flag{
					playlistFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PinList,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Unpin a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{playlistFlag()},
				Action: r.PinRemove,
			},
			{
				Name:    "move",
				Aliases: []string{"mv"},
				Usage:   "Move a pinned track to a new position",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					playlistFlag(),
					conflictFlag(),
					&cli.IntFlag{
						Name:     "position",
						Aliases:  []string{"at"},
						Usage:    "New target position",
						Required: true,
					},
				},
				Action: r.PinMove,
			},
		},
	}
}
