package tasks

import (
	"context"
	"testing"

	tu "github.com/desertthunder/trackpin/internal/testing"
)

func newTestEngine(fake *tu.FakeCollection, store PinStore) *PinEngine {
	return NewPinEngine(fake, store, nil, nil)
}

func TestEnsureUnique(t *testing.T) {
	ctx := context.Background()
	const playlistID = "0000000000000000000pl1"

	t.Run("removes all copies and re-appends one at the tail", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			playlistID: {
				"spotify:track:aaa",
				"spotify:track:bbb",
				"spotify:track:aaa",
				"spotify:track:ccc",
				"spotify:track:bbb",
			},
		})
		engine := newTestEngine(fake, nil)

		snap, err := fake.PlaylistItems(ctx, playlistID)
		if err != nil {
			t.Fatalf("PlaylistItems failed: %v", err)
		}

		fresh, removed, err := engine.EnsureUnique(ctx, snap)
		if err != nil {
			t.Fatalf("EnsureUnique failed: %v", err)
		}

		if removed != 2 {
			t.Errorf("expected 2 extra copies removed, got %d", removed)
		}

		// Duplicated tracks land at the tail in first-seen order; the only
		// unique track keeps its relative spot.
		want := []string{"spotify:track:ccc", "spotify:track:aaa", "spotify:track:bbb"}
		got := fake.Tracks(playlistID)
		if len(got) != len(want) {
			t.Fatalf("expected %d tracks, got %v", len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("track %d: expected %s, got %s", i, want[i], got[i])
			}
		}

		if len(fresh.Entries) != 3 {
			t.Errorf("expected fresh snapshot with 3 entries, got %d", len(fresh.Entries))
		}
		if fresh.SnapshotID == snap.SnapshotID {
			t.Error("expected snapshot token to advance after mutations")
		}
	})

	t.Run("makes zero remote calls when no duplicates exist", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			playlistID: {"spotify:track:aaa", "spotify:track:bbb"},
		})
		engine := newTestEngine(fake, nil)

		snap, err := fake.PlaylistItems(ctx, playlistID)
		if err != nil {
			t.Fatalf("PlaylistItems failed: %v", err)
		}

		fresh, removed, err := engine.EnsureUnique(ctx, snap)
		if err != nil {
			t.Fatalf("EnsureUnique failed: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected 0 removed, got %d", removed)
		}
		if fresh != snap {
			t.Error("expected the original snapshot back untouched")
		}
		if got := fake.MutationCount(); got != 0 {
			t.Errorf("expected 0 mutations, got %d: %v", got, fake.Log)
		}
	})

	t.Run("leaves singleton positions untouched", func(t *testing.T) {
		fake := tu.NewFakeCollection(map[string][]string{
			playlistID: {
				"spotify:track:keep1",
				"spotify:track:dup",
				"spotify:track:keep2",
				"spotify:track:dup",
			},
		})
		engine := newTestEngine(fake, nil)

		snap, _ := fake.PlaylistItems(ctx, playlistID)
		if _, _, err := engine.EnsureUnique(ctx, snap); err != nil {
			t.Fatalf("EnsureUnique failed: %v", err)
		}

		got := fake.Tracks(playlistID)
		if got[0] != "spotify:track:keep1" || got[1] != "spotify:track:keep2" {
			t.Errorf("unique tracks moved: %v", got)
		}
		if got[2] != "spotify:track:dup" {
			t.Errorf("expected duplicated track at tail, got %v", got)
		}
	})
}
