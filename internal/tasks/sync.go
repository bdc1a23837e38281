package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
	"golang.org/x/time/rate"
)

// maxReconcilePasses bounds how many times a sync restarts after the remote
// playlist changed underneath it (stale snapshot token).
const maxReconcilePasses = 3

// PinStore provides the pins and registry rows the engine reconciles against.
// Satisfied by the repository layer; faked in tests.
type PinStore interface {
	// LoadPins resolves a registry name (empty means the default) to the
	// resolved name, its Spotify playlist ID, and the pins configured for it.
	LoadPins(ctx context.Context, playlistName string) (string, string, []models.Pin, error)

	// ListManaged returns every playlist in the registry.
	ListManaged(ctx context.Context) ([]models.ManagedPlaylist, error)
}

// RunRecorder persists the outcome of a sync for later inspection.
type RunRecorder interface {
	Record(ctx context.Context, run models.SyncRun) error
}

// PinEngine reconciles pinned tracks against remote playlists.
type PinEngine struct {
	api      services.CollectionAPI
	store    PinStore
	recorder RunRecorder
	logger   *log.Logger
}

// NewPinEngine creates a PinEngine. The recorder may be nil when run history
// is not wanted.
func NewPinEngine(api services.CollectionAPI, store PinStore, recorder RunRecorder, logger *log.Logger) *PinEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PinEngine{
		api:      api,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PinEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// SyncResult summarizes a completed playlist sync.
type SyncResult struct {
	PlaylistName      string           `json:"playlist_name"`
	PlaylistID        string           `json:"playlist_id"`
	Status            models.RunStatus `json:"status"`
	Inserts           int              `json:"inserts"`
	Moves             int              `json:"moves"`
	Skips             int              `json:"skips"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	Passes            int              `json:"passes"`
}

// SyncPlaylist reconciles one registered playlist.
//
// The flow is snapshot, dedup, reconcile. When a mutation fails with a stale
// snapshot token the whole pass restarts from a fresh snapshot, bounded by
// maxReconcilePasses; mutations already applied are not undone, the next pass
// simply observes them. The outcome is recorded whether the sync succeeded or
// not.
func (e *PinEngine) SyncPlaylist(ctx context.Context, prog chan<- ProgressUpdate, playlistName string) (*SyncResult, error) {
	started := time.Now()

	resolvedName, playlistID, pins, err := e.store.LoadPins(ctx, playlistName)
	if err != nil {
		return nil, fmt.Errorf("failed to load pins for %q: %w", playlistName, err)
	}

	result := &SyncResult{PlaylistName: resolvedName, PlaylistID: playlistID}

	var lastErr error
	for pass := 0; pass < maxReconcilePasses; pass++ {
		result.Passes = pass + 1

		e.sendProgress(prog, fetchSnapshotUpdate(1, 1, resolvedName))
		snap, err := e.api.PlaylistItems(ctx, playlistID)
		if err != nil {
			lastErr = err
			break
		}

		snap, removed, err := e.EnsureUnique(ctx, snap)
		if err != nil {
			if errors.Is(err, shared.ErrStaleSnapshot) {
				e.logger.Warn("playlist changed during dedup, restarting", "playlist", resolvedName, "pass", pass+1)
				lastErr = err
				continue
			}
			lastErr = err
			break
		}
		result.DuplicatesRemoved += removed
		if removed > 0 {
			e.sendProgress(prog, duplicatesRemovedUpdate(1, 1, removed))
		}

		rec, err := e.Reconcile(ctx, prog, snap, pins)
		result.Inserts += rec.Inserts
		result.Moves += rec.Moves
		result.Skips = rec.Skips
		if err != nil {
			if errors.Is(err, shared.ErrStaleSnapshot) {
				e.logger.Warn("playlist changed during reconcile, restarting", "playlist", resolvedName, "pass", pass+1)
				lastErr = err
				continue
			}
			lastErr = err
			break
		}

		lastErr = nil
		break
	}

	switch {
	case lastErr == nil:
		result.Status = models.RunSucceeded
	case result.Inserts > 0 || result.Moves > 0 || result.DuplicatesRemoved > 0:
		result.Status = models.RunPartial
	default:
		result.Status = models.RunFailed
	}

	e.record(ctx, result, lastErr, started)

	if lastErr != nil {
		return result, fmt.Errorf("sync of %q failed: %w", resolvedName, lastErr)
	}
	return result, nil
}

func (e *PinEngine) record(ctx context.Context, result *SyncResult, runErr error, started time.Time) {
	if e.recorder == nil {
		return
	}

	run := models.SyncRun{
		PlaylistName:      result.PlaylistName,
		Status:            result.Status,
		Inserts:           result.Inserts,
		Moves:             result.Moves,
		Skips:             result.Skips,
		DuplicatesRemoved: result.DuplicatesRemoved,
		StartedAt:         started,
		FinishedAt:        time.Now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := e.recorder.Record(ctx, run); err != nil {
		e.logger.Warn("failed to record sync run", "playlist", result.PlaylistName, "error", err)
	}
}

// SyncAllOpts contains configuration for syncing multiple playlists.
type SyncAllOpts struct {
	NumWorkers int     // Concurrent workers (default: 1)
	RateLimit  float64 // Playlists dispatched per second (default: 5)
}

// SyncAllResult aggregates per-playlist outcomes of a bulk sync.
type SyncAllResult struct {
	TotalPlaylists int          `json:"total_playlists"`
	Succeeded      int          `json:"succeeded"`
	Failed         int          `json:"failed"`
	Results        []SyncResult `json:"results"`
}

type syncJob struct {
	step int
	name string
}

// SyncAll reconciles every named playlist, or the whole registry when names
// is empty.
//
// Playlists are independent: one failing sync is reported in the aggregate
// result and never stops the others. Work is dispatched to a small worker
// pool behind a rate limiter so parallel syncs do not hammer the API.
func (e *PinEngine) SyncAll(ctx context.Context, prog chan<- ProgressUpdate, names []string, opts SyncAllOpts) (*SyncAllResult, error) {
	if len(names) == 0 {
		managed, err := e.store.ListManaged(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, pl := range managed {
			names = append(names, pl.Name)
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no playlists registered", shared.ErrInvalidInput)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	aggregate := &SyncAllResult{
		TotalPlaylists: len(names),
		Results:        make([]SyncResult, 0, len(names)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan syncJob, len(names))
	results := make(chan SyncResult, len(names))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.syncWorker(ctx, &wg, prog, jobs, results, len(names))
	}

	go func() {
		defer close(jobs)
		for i, name := range names {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			jobs <- syncJob{step: i + 1, name: name}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		aggregate.Results = append(aggregate.Results, res)
		if res.Status == models.RunSucceeded {
			aggregate.Succeeded++
		} else {
			aggregate.Failed++
		}
	}

	return aggregate, nil
}

// syncWorker is a worker goroutine that syncs playlists from the jobs channel.
func (e *PinEngine) syncWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	prog chan<- ProgressUpdate,
	jobs <-chan syncJob,
	results chan<- SyncResult,
	total int,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := e.SyncPlaylist(ctx, prog, job.name)
		if err != nil {
			if res == nil {
				res = &SyncResult{PlaylistName: job.name, Status: models.RunFailed}
			}
			e.sendProgress(prog, playlistFailedUpdate(job.step, total, job.name, err))
		} else {
			e.sendProgress(prog, playlistSyncedUpdate(job.step, total, job.name, res))
		}

		results <- *res
	}
}
