package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/services"
)

// ReconcileResult summarizes one reconciliation over a playlist.
type ReconcileResult struct {
	Inserts    int    // Insert calls issued for absent pinned tracks
	Moves      int    // Move calls issued for misplaced pinned tracks
	Skips      int    // Pins that needed no mutation, plus pins skipped as invalid
	SnapshotID string // Version token after the last mutation
}

// mirror is the local bookkeeping copy of the remote track order.
//
// Every remote mutation is simulated against it in the same pass, so later
// pins compute their target indexes against current reality instead of the
// stale snapshot. After each mutation the mirror matches the true remote
// order exactly.
type mirror struct {
	uris []string
}

func newMirror(snap *services.Snapshot) *mirror {
	m := &mirror{uris: make([]string, len(snap.Entries))}
	for i, entry := range snap.Entries {
		m.uris[i] = entry.TrackURI
	}
	return m
}

// indexOf returns the current index of uri, or -1 when absent.
func (m *mirror) indexOf(uri string) int {
	for i, u := range m.uris {
		if u == uri {
			return i
		}
	}
	return -1
}

func (m *mirror) insert(index int, uri string) {
	m.uris = append(m.uris, "")
	copy(m.uris[index+1:], m.uris[index:])
	m.uris[index] = uri
}

func (m *mirror) move(from, to int) {
	uri := m.uris[from]
	m.uris = append(m.uris[:from], m.uris[from+1:]...)
	m.insert(to, uri)
}

// state returns a comparable fingerprint of the current order.
func (m *mirror) state() string {
	return strings.Join(m.uris, "\x00")
}

// beyondEnd counts pins whose declared position falls past the end of the
// mirror. They all clamp into the same tail region.
func beyondEnd(m *mirror, ordered []models.Pin) int {
	n := 0
	for _, pin := range ordered {
		if pin.Position-1 > len(m.uris)-1 {
			n++
		}
	}
	return n
}

// Reconcile applies pins against a deduplicated snapshot until every pinned
// track sits at its declared 1-based position, clamped to the end of the
// list.
//
// Pins are processed in ascending position order so earlier placements shift
// later ones predictably. A downward move can still displace an already
// placed pin (removing a track from before it shifts it left by one), so
// after each pass the mirror is re-checked and another pass runs if any pin
// drifted. The mirror tracks the true remote order exactly, which makes the
// final verification pass pure local math with zero remote calls; a playlist
// that is already converged therefore produces no mutations at all.
func (e *PinEngine) Reconcile(ctx context.Context, prog chan<- ProgressUpdate, snap *services.Snapshot, pins []models.Pin) (*ReconcileResult, error) {
	result := &ReconcileResult{SnapshotID: snap.SnapshotID}

	var ordered []models.Pin
	for _, pin := range pins {
		if err := pin.Validate(); err != nil {
			e.logger.Warn("skipping invalid pin", "playlist", snap.PlaylistID, "track", pin.TrackURI, "error", err)
			result.Skips++
			continue
		}
		ordered = append(ordered, pin)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	m := newMirror(snap)
	mutated := make(map[string]bool, len(ordered))

	// len(ordered)+1 passes always suffice: each extra pass only repairs
	// pins displaced by a previous pass's downward moves. Passes are
	// deterministic in the mirror order, so a repeated order means the pins
	// demand more final slots than exist and no pass count will settle them.
	seen := map[string]bool{m.state(): true}
	for pass := 0; pass <= len(ordered); pass++ {
		changed, err := e.applyPins(ctx, prog, snap.PlaylistID, m, ordered, mutated, result)
		if err != nil {
			return result, err
		}
		if !changed {
			break
		}
		if seen[m.state()] {
			e.logger.Warn("pins compete for the same slots, stopping", "playlist", snap.PlaylistID, "pass", pass+1)
			break
		}
		seen[m.state()] = true
	}

	for _, pin := range ordered {
		if !mutated[pin.TrackURI] {
			result.Skips++
		}
	}

	return result, nil
}

// applyPins runs one ascending pass over the pins, mutating the remote
// playlist and the mirror in lockstep. Reports whether any mutation was
// issued.
func (e *PinEngine) applyPins(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlistID string,
	m *mirror,
	ordered []models.Pin,
	mutated map[string]bool,
	result *ReconcileResult,
) (bool, error) {
	changed := false

	for i, pin := range ordered {
		desired := pin.Position - 1
		cur := m.indexOf(pin.TrackURI)

		if cur == -1 {
			insertAt := desired
			if insertAt > len(m.uris) {
				insertAt = len(m.uris)
			}

			e.sendProgress(prog, applyPinUpdate(i+1, len(ordered), pin.TrackURI, pin.Position))
			token, err := e.api.AddTracks(ctx, playlistID, []string{pin.TrackURI}, &insertAt)
			if err != nil {
				return changed, fmt.Errorf("failed to insert %s at %d: %w", pin.TrackURI, pin.Position, err)
			}

			m.insert(insertAt, pin.TrackURI)
			result.SnapshotID = token
			result.Inserts++
			mutated[pin.TrackURI] = true
			changed = true
			continue
		}

		target := desired
		if target > len(m.uris)-1 {
			// Every pin declared past the end clamps into the same tail
			// region. One already parked anywhere in that region stays put,
			// otherwise two beyond-end pins would displace each other on
			// every pass forever.
			if tail := len(m.uris) - beyondEnd(m, ordered); cur >= tail {
				continue
			}
			target = len(m.uris) - 1
		}

		if cur == target {
			continue
		}

		// insert_before is interpreted before the moved item is removed, so
		// a downward move needs one extra slot.
		insertBefore := target
		if target > cur {
			insertBefore = target + 1
		}

		e.sendProgress(prog, applyPinUpdate(i+1, len(ordered), pin.TrackURI, pin.Position))
		token, err := e.api.Reorder(ctx, playlistID, cur, insertBefore, 1, result.SnapshotID)
		if err != nil {
			return changed, fmt.Errorf("failed to move %s to %d: %w", pin.TrackURI, pin.Position, err)
		}

		m.move(cur, target)
		result.SnapshotID = token
		result.Moves++
		mutated[pin.TrackURI] = true
		changed = true
	}

	return changed, nil
}
