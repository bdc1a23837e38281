package shared

import (
	"testing"
)

func TestMigrations(t *testing.T) {
	t.Run("RunMigrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"playlists", "pins", "track_names", "sync_runs"} {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("expected table %s to exist: %v", table, err)
			}
		}

		// Running again is a no-op.
		if err := RunMigrations(db); err != nil {
			t.Fatalf("re-running migrations should succeed: %v", err)
		}
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='pins'").Scan(&name)
		if err == nil {
			t.Error("pins table should be dropped after rollback")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("rollback with no applied migrations should fail")
		}
	})
}
