package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/desertthunder/trackpin/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun reconciles one playlist, or the whole registry with --all.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}
	if err := r.requireClient(); err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			if !useJSON {
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	if cmd.Bool("all") {
		opts := tasks.SyncAllOpts{
			NumWorkers: cmd.Int("workers"),
			RateLimit:  cmd.Float64("rate"),
		}
		if opts.NumWorkers == 0 {
			opts.NumWorkers = r.config.Sync.Workers
		}
		if opts.RateLimit == 0 {
			opts.RateLimit = r.config.Sync.RateLimit
		}

		result, err := r.engine.SyncAll(ctx, prog, nil, opts)
		close(prog)
		<-done
		if err != nil {
			return err
		}

		if useJSON {
			return r.writeJSON(result, pretty)
		}

		r.writePlainln("Synced %d playlists: %d succeeded, %d failed", result.TotalPlaylists, result.Succeeded, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%w: %d of %d playlists failed to sync", shared.ErrAPIRequest, result.Failed, result.TotalPlaylists)
		}
		return nil
	}

	result, err := r.engine.SyncPlaylist(ctx, prog, cmd.String("playlist"))
	close(prog)
	<-done

	if result != nil && useJSON {
		if werr := r.writeJSON(result, pretty); werr != nil {
			return werr
		}
	} else if result != nil {
		r.writePlainln("%s: %d inserted, %d moved, %d skipped, %d duplicates removed (%d passes)",
			result.PlaylistName, result.Inserts, result.Moves, result.Skips, result.DuplicatesRemoved, result.Passes)
	}

	return err
}

// SyncHistory prints past sync outcomes, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	runs, err := r.runs.History(cmd.String("playlist"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded yet.\n")
	}

	r.writePlainHeader("Sync History")
	for _, run := range runs {
		r.writePlain("%s  %-7s %-16s +%d ~%d -%d dup:%d\n",
			run.StartedAt.Format("2006-01-02 15:04"), run.Status, run.PlaylistName,
			run.Inserts, run.Moves, run.Skips, run.DuplicatesRemoved)
		if run.Error != "" {
			r.writePlain("    %s\n", run.Error)
		}
	}
	return nil
}

// syncCommand handles playlist reconciliation.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push pinned positions to Spotify",
		Flags: []cli.Flag{
			playlistFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every registered playlist",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers for --all (0 uses the config value)",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "Playlists dispatched per second for --all (0 uses the config value)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.SyncRun,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Show past sync runs",
				Flags: []cli.Flag{
					playlistFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SyncHistory,
			},
		},
	}
}
