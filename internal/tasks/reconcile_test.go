package tasks

import (
	"context"
	"testing"

	"github.com/desertthunder/trackpin/internal/models"
	tu "github.com/desertthunder/trackpin/internal/testing"
)

const reconcilePlaylist = "0000000000000000000pl1"

func track(suffix string) string { return "spotify:track:" + suffix }

func assertOrder(t *testing.T, fake *tu.FakeCollection, want []string) {
	t.Helper()
	got := fake.Tracks(reconcilePlaylist)
	if len(got) != len(want) {
		t.Fatalf("expected %d tracks, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i+1, want[i], got[i])
		}
	}
}

func reconcileOnce(t *testing.T, fake *tu.FakeCollection, pins []models.Pin) *ReconcileResult {
	t.Helper()

	engine := newTestEngine(fake, nil)
	snap, err := fake.PlaylistItems(context.Background(), reconcilePlaylist)
	if err != nil {
		t.Fatalf("PlaylistItems failed: %v", err)
	}

	result, err := engine.Reconcile(context.Background(), nil, snap, pins)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	return result
}

func TestReconcile(t *testing.T) {
	t.Run("moves a track up to its pinned position", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c"), track("d")},
		})
		fake.EnforceToken = true

		result := reconcileOnce(t, fake, []models.Pin{{TrackURI: track("c"), Position: 1}})

		assertOrder(t, fake, []string{track("c"), track("a"), track("b"), track("d")})
		if result.Moves != 1 || result.Inserts != 0 {
			t.Errorf("expected 1 move, got %+v", result)
		}
	})

	t.Run("moves a track down accounting for removal shift", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c"), track("d")},
		})
		fake.EnforceToken = true

		result := reconcileOnce(t, fake, []models.Pin{{TrackURI: track("a"), Position: 4}})

		assertOrder(t, fake, []string{track("b"), track("c"), track("d"), track("a")})
		if result.Moves != 1 {
			t.Errorf("expected 1 move, got %+v", result)
		}
	})

	t.Run("later pins see the shifts of earlier ones", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c"), track("d")},
		})
		fake.EnforceToken = true

		pins := []models.Pin{
			{TrackURI: track("c"), Position: 1},
			{TrackURI: track("a"), Position: 2},
		}
		result := reconcileOnce(t, fake, pins)

		// Pinning c to 1 already pushed a into slot 2.
		assertOrder(t, fake, []string{track("c"), track("a"), track("b"), track("d")})
		if result.Moves != 1 || result.Skips != 1 {
			t.Errorf("expected 1 move and 1 skip, got %+v", result)
		}
	})

	t.Run("inserts an absent pinned track at its position", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c")},
		})
		fake.EnforceToken = true

		result := reconcileOnce(t, fake, []models.Pin{{TrackURI: track("x"), Position: 2}})

		assertOrder(t, fake, []string{track("a"), track("x"), track("b"), track("c")})
		if result.Inserts != 1 || result.Moves != 0 {
			t.Errorf("expected 1 insert, got %+v", result)
		}
	})

	t.Run("clamps an absent pin beyond the end to an append", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c"), track("d"), track("e")},
		})
		fake.EnforceToken = true

		result := reconcileOnce(t, fake, []models.Pin{{TrackURI: track("x"), Position: 100}})

		assertOrder(t, fake, []string{track("a"), track("b"), track("c"), track("d"), track("e"), track("x")})
		if result.Inserts != 1 {
			t.Errorf("expected 1 insert, got %+v", result)
		}
	})

	t.Run("clamps a present pin beyond the end to the last slot", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c")},
		})
		fake.EnforceToken = true

		result := reconcileOnce(t, fake, []models.Pin{{TrackURI: track("a"), Position: 100}})

		assertOrder(t, fake, []string{track("b"), track("c"), track("a")})
		if result.Moves != 1 {
			t.Errorf("expected 1 move, got %+v", result)
		}
	})

	t.Run("two pins past the end settle into the tail and stay", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c")},
		})
		fake.EnforceToken = true

		pins := []models.Pin{
			{TrackURI: track("a"), Position: 50},
			{TrackURI: track("b"), Position: 60},
		}

		first := reconcileOnce(t, fake, pins)
		assertOrder(t, fake, []string{track("c"), track("a"), track("b")})
		if first.Moves != 2 {
			t.Errorf("expected 2 moves on first run, got %+v", first)
		}

		before := fake.MutationCount()
		second := reconcileOnce(t, fake, pins)
		if got := fake.MutationCount(); got != before {
			t.Errorf("expected zero mutations on second run, got %d new: %v", got-before, fake.Log)
		}
		if second.Moves != 0 || second.Skips != len(pins) {
			t.Errorf("expected both tail pins left in place, got %+v", second)
		}
	})

	t.Run("competing demands on the last slot stop instead of looping", func(t *testing.T) {
		// a wants exactly the last slot and b clamps into it too, which no
		// order can satisfy. The run must still terminate cleanly.
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c")},
		})
		fake.EnforceToken = true

		pins := []models.Pin{
			{TrackURI: track("a"), Position: 3},
			{TrackURI: track("b"), Position: 50},
		}
		result := reconcileOnce(t, fake, pins)

		if result.Moves != 4 {
			t.Errorf("expected the repeated order to stop the run after 4 moves, got %+v", result)
		}
		if got := fake.Tracks(reconcilePlaylist); len(got) != 3 {
			t.Errorf("expected 3 tracks, got %v", got)
		}
	})

	t.Run("second run over a converged playlist makes zero calls", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b"), track("c"), track("d")},
		})
		fake.EnforceToken = true

		pins := []models.Pin{
			{TrackURI: track("d"), Position: 1},
			{TrackURI: track("b"), Position: 3},
		}

		first := reconcileOnce(t, fake, pins)
		if first.Moves == 0 {
			t.Fatalf("expected first run to mutate, got %+v", first)
		}

		before := fake.MutationCount()
		second := reconcileOnce(t, fake, pins)
		if got := fake.MutationCount(); got != before {
			t.Errorf("expected zero mutations on second run, got %d new: %v", got-before, fake.Log)
		}
		if second.Skips != len(pins) {
			t.Errorf("expected all pins skipped as in place, got %+v", second)
		}
	})

	t.Run("skips pins with non-canonical URIs", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {track("a"), track("b")},
		})

		pins := []models.Pin{
			{TrackURI: "not-a-uri", Position: 1},
			{TrackURI: track("b"), Position: 1},
		}
		result := reconcileOnce(t, fake, pins)

		assertOrder(t, fake, []string{track("b"), track("a")})
		if result.Skips != 1 || result.Moves != 1 {
			t.Errorf("expected invalid pin skipped and valid pin applied, got %+v", result)
		}
	})

	t.Run("mirror matches remote order after every pass", func(t *testing.T) {
		// The fake enforces its version token, so any drift between the
		// engine's bookkeeping and the true order fails the reorder call.
		fake := tu.NewFakeCollection(map[string][]string{
			reconcilePlaylist: {
				track("a"), track("b"), track("c"), track("d"),
				track("e"), track("f"), track("g"),
			},
		})
		fake.EnforceToken = true

		pins := []models.Pin{
			{TrackURI: track("g"), Position: 1},
			{TrackURI: track("x"), Position: 2},
			{TrackURI: track("a"), Position: 5},
			{TrackURI: track("c"), Position: 7},
			{TrackURI: track("y"), Position: 50},
		}
		result := reconcileOnce(t, fake, pins)

		got := fake.Tracks(reconcilePlaylist)
		if len(got) != 9 {
			t.Fatalf("expected 9 tracks, got %v", got)
		}
		wantAt := map[int]string{
			0: track("g"),
			1: track("x"),
			4: track("a"),
			6: track("c"),
			8: track("y"),
		}
		for idx, uri := range wantAt {
			if got[idx] != uri {
				t.Errorf("position %d: expected %s, got %s (order %v)", idx+1, uri, got[idx], got)
			}
		}
		// The move of c passes over a's slot and displaces it, so a second
		// pass moves a back into place.
		if result.Inserts != 2 || result.Moves != 4 {
			t.Errorf("expected 2 inserts and 4 moves, got %+v", result)
		}
	})
}
