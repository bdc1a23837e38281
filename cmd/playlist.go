package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/desertthunder/trackpin/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistAdd registers a playlist under a short local name.
//
// The Spotify ID comes from the positional argument or, with --pick, from an
// interactive picker over the user's own playlists.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	spotifyID := cmd.StringArg("id")
	displayName := cmd.String("display-name")

	if cmd.Bool("pick") {
		if err := r.requireClient(); err != nil {
			return err
		}

		playlists, err := r.client.OwnedPlaylists(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		if len(playlists) == 0 {
			return fmt.Errorf("%w: no playlists owned by this account", shared.ErrPlaylistNotFound)
		}

		choice, err := ui.PickPlaylist(playlists)
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				return r.writePlain("Cancelled.\n")
			}
			return err
		}

		spotifyID = choice.ID
		if displayName == "" {
			displayName = choice.Name
		}
	}

	if spotifyID == "" {
		return fmt.Errorf("%w: a Spotify playlist ID or --pick is required", shared.ErrMissingArgument)
	}

	playlist := models.ManagedPlaylist{
		Name:        name,
		SpotifyID:   spotifyID,
		DisplayName: displayName,
		Default:     cmd.Bool("default"),
	}

	if err := r.store.Playlists.Create(playlist); err != nil {
		return err
	}

	r.logger.Infof("registered playlist %v -> %v", name, spotifyID)
	return r.writePlain("✓ Registered playlist %q\n", name)
}

// PlaylistList prints the playlist registry.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	playlists, err := r.store.Playlists.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists registered. Use 'trackpin playlist add'.\n")
	}

	for _, p := range playlists {
		marker := " "
		if p.Default {
			marker = "*"
		}
		label := p.DisplayName
		if label == "" {
			label = p.SpotifyID
		}
		r.writePlain("%s %-16s %s\n", marker, p.Name, label)
	}
	return nil
}

// PlaylistDefault marks a registered playlist as the default target.
func (r *Runner) PlaylistDefault(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	if err := r.store.Playlists.SetDefault(name); err != nil {
		return err
	}
	return r.writePlain("✓ %q is now the default playlist\n", name)
}

// PlaylistRemove drops a playlist and its pins from the registry.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	if err := r.store.Playlists.Remove(name); err != nil {
		return err
	}
	return r.writePlain("✓ Removed playlist %q and its pins\n", name)
}

// playlistCommand handles the local playlist registry.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage the local playlist registry",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a Spotify playlist under a short name",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pick",
						Usage: "Choose from your Spotify playlists interactively",
					},
					&cli.StringFlag{
						Name:  "display-name",
						Usage: "Human readable label for listings",
					},
					&cli.BoolFlag{
						Name:  "default",
						Usage: "Make this the default playlist",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List registered playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "default",
				Usage: "Set the default playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistDefault,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a playlist and its pins",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRemove,
			},
		},
	}
}
