// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
)

// FakeCollection is an in-memory test double for [services.CollectionAPI].
//
// It applies every mutation to a real track list and bumps a version token,
// so tests can assert that an engine's local bookkeeping produced exactly the
// remote order it intended. With EnforceToken set, reorders carrying an
// outdated token fail the way the live API does.
type FakeCollection struct {
	mu      sync.Mutex
	tracks  map[string][]string
	version int

	EnforceToken  bool
	Err           error    // when set, every call fails with this error
	StaleReorders int      // fail this many reorder calls with a stale token before succeeding
	Log           []string // one line per remote call, in order
}

func NewFakeCollection(playlists map[string][]string) *FakeCollection {
	tracks := make(map[string][]string, len(playlists))
	for id, uris := range playlists {
		tracks[id] = append([]string(nil), uris...)
	}
	return &FakeCollection{tracks: tracks}
}

// Tracks returns a copy of the playlist's current track order.
func (f *FakeCollection) Tracks(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tracks[playlistID]...)
}

// MutationCount returns how many mutating calls the fake has served.
func (f *FakeCollection) MutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, line := range f.Log {
		if line[0] != 'G' {
			count++
		}
	}
	return count
}

// Bump simulates a concurrent edit by another client, invalidating any
// snapshot token handed out earlier.
func (f *FakeCollection) Bump(playlistID string, uris []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[playlistID] = append([]string(nil), uris...)
	f.version++
}

func (f *FakeCollection) token() string {
	return fmt.Sprintf("v%d", f.version)
}

func (f *FakeCollection) PlaylistItems(ctx context.Context, playlistID string) (*services.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Log = append(f.Log, fmt.Sprintf("GET %s", playlistID))
	if f.Err != nil {
		return nil, f.Err
	}

	uris, ok := f.tracks[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	snap := &services.Snapshot{PlaylistID: playlistID, SnapshotID: f.token()}
	for i, uri := range uris {
		snap.Entries = append(snap.Entries, models.PlaylistEntry{TrackURI: uri, Index: i})
	}
	return snap, nil
}

func (f *FakeCollection) AddTracks(ctx context.Context, playlistID string, uris []string, position *int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Log = append(f.Log, fmt.Sprintf("ADD %s %v at %v", playlistID, uris, position))
	if f.Err != nil {
		return "", f.Err
	}

	current := f.tracks[playlistID]
	at := len(current)
	if position != nil {
		at = *position
		if at > len(current) {
			at = len(current)
		}
	}

	updated := make([]string, 0, len(current)+len(uris))
	updated = append(updated, current[:at]...)
	updated = append(updated, uris...)
	updated = append(updated, current[at:]...)
	f.tracks[playlistID] = updated
	f.version++

	return f.token(), nil
}

func (f *FakeCollection) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int, snapshotID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Log = append(f.Log, fmt.Sprintf("MOVE %s %d->%d len %d", playlistID, rangeStart, insertBefore, rangeLength))
	if f.Err != nil {
		return "", f.Err
	}
	if f.StaleReorders > 0 {
		f.StaleReorders--
		return "", fmt.Errorf("%w: playlist %s changed", shared.ErrStaleSnapshot, playlistID)
	}
	if f.EnforceToken && snapshotID != "" && snapshotID != f.token() {
		return "", fmt.Errorf("%w: playlist %s changed", shared.ErrStaleSnapshot, playlistID)
	}

	current := f.tracks[playlistID]
	if rangeStart < 0 || rangeStart+rangeLength > len(current) || insertBefore < 0 || insertBefore > len(current) {
		return "", fmt.Errorf("%w: reorder out of range", shared.ErrAPIRequest)
	}

	moved := append([]string(nil), current[rangeStart:rangeStart+rangeLength]...)
	rest := append([]string(nil), current[:rangeStart]...)
	rest = append(rest, current[rangeStart+rangeLength:]...)

	at := insertBefore
	if at > rangeStart {
		at -= rangeLength
	}

	updated := make([]string, 0, len(current))
	updated = append(updated, rest[:at]...)
	updated = append(updated, moved...)
	updated = append(updated, rest[at:]...)
	f.tracks[playlistID] = updated
	f.version++

	return f.token(), nil
}

func (f *FakeCollection) RemoveAllOccurrences(ctx context.Context, playlistID string, uris []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Log = append(f.Log, fmt.Sprintf("DEL %s %v", playlistID, uris))
	if f.Err != nil {
		return "", f.Err
	}

	doomed := make(map[string]bool, len(uris))
	for _, uri := range uris {
		doomed[uri] = true
	}

	var kept []string
	for _, uri := range f.tracks[playlistID] {
		if !doomed[uri] {
			kept = append(kept, uri)
		}
	}
	f.tracks[playlistID] = kept
	f.version++

	return f.token(), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
