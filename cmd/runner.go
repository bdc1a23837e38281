package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/repositories"
	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/desertthunder/trackpin/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	client *services.SpotifyClient
	db     *sql.DB
	store  *repositories.Store
	names  *repositories.TrackNameCache
	runs   *repositories.SyncRunRepository
	engine *tasks.PinEngine
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Client *services.SpotifyClient
	DB     *sql.DB
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// The database and Spotify client are optional; commands that need them
// report what is missing instead of panicking, so `trackpin setup` and
// `trackpin auth login` work on a fresh machine.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config: opts.Config,
		client: opts.Client,
		db:     opts.DB,
		logger: opts.Logger,
		output: opts.Output,
	}

	if opts.DB != nil {
		r.store = repositories.NewStore(opts.DB)
		r.names = repositories.NewTrackNameCache(opts.DB)
		r.runs = repositories.NewSyncRunRepository(opts.DB)
	}
	if opts.Client != nil && r.store != nil {
		r.engine = tasks.NewPinEngine(opts.Client, r.store, r.runs, opts.Logger)
	}

	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistCommand, pinCommand, syncCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireStore ensures the local database was opened at startup.
func (r *Runner) requireStore() error {
	if r.store == nil {
		return fmt.Errorf("%w: database not initialized, run 'trackpin setup' first", shared.ErrMissingConfig)
	}
	return nil
}

// requireClient ensures Spotify credentials were present in the config.
func (r *Runner) requireClient() error {
	if r.client == nil {
		return fmt.Errorf("%w: set client_id and client_secret in config.toml, then run 'trackpin auth login'", shared.ErrMissingCredentials)
	}
	return nil
}

// resolvePlaylist maps a playlist name to its registry entry, falling back to
// the default playlist when name is empty.
func (r *Runner) resolvePlaylist(name string) (*models.ManagedPlaylist, error) {
	if name == "" {
		return r.store.Playlists.Default()
	}
	return r.store.Playlists.Get(name)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
