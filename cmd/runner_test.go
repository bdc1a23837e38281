package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
	tu "github.com/desertthunder/trackpin/internal/testing"
	"github.com/urfave/cli/v3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestApp(r *Runner) *cli.Command {
	return &cli.Command{Name: "trackpin", Commands: r.register()}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}
			db := setupTestDB(t)
			client, err := services.NewSpotifyClient(map[string]string{
				"client_id":     "test_id",
				"client_secret": "test_secret",
			}, logger)
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Client: client,
				DB:     db,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.client != client {
				t.Error("expected client to be set")
			}
			if runner.store == nil || runner.names == nil || runner.runs == nil {
				t.Error("expected repositories to be built from the database")
			}
			if runner.engine == nil {
				t.Error("expected engine to be built when client and database are present")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("without database leaves repositories nil", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.store != nil || runner.engine != nil {
				t.Error("expected no repositories or engine without a database")
			}
			if err := runner.requireStore(); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
			if err := runner.requireClient(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing, Logger: shared.NewLogger(io.Discard)})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter, Logger: shared.NewLogger(io.Discard)})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing, Logger: shared.NewLogger(io.Discard)})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
		commands := runner.register()

		if len(commands) != 6 {
			t.Errorf("expected 6 commands, got %d", len(commands))
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer) {
		t.Helper()
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			DB:     setupTestDB(t),
			Output: output,
			Logger: shared.NewLogger(io.Discard),
		})
		return runner, output
	}

	t.Run("add and list", func(t *testing.T) {
		runner, output := newRunner(t)
		app := newTestApp(runner)
		ctx := context.Background()

		err := app.Run(ctx, []string{"trackpin", "playlist", "add", "mix", "37i9dQZF1DXcBWIGoYBM5M", "--display-name", "Morning Mix"})
		if err != nil {
			t.Fatalf("playlist add failed: %v", err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"trackpin", "playlist", "list"}); err != nil {
			t.Fatalf("playlist list failed: %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "mix") || !strings.Contains(result, "Morning Mix") {
			t.Errorf("expected listing to include the playlist, got %q", result)
		}
		if !strings.Contains(result, "*") {
			t.Errorf("expected the first playlist to be marked default, got %q", result)
		}
	})

	t.Run("add requires a name", func(t *testing.T) {
		runner, _ := newRunner(t)
		app := newTestApp(runner)

		err := app.Run(context.Background(), []string{"trackpin", "playlist", "add"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("add requires an id or --pick", func(t *testing.T) {
		runner, _ := newRunner(t)
		app := newTestApp(runner)

		err := app.Run(context.Background(), []string{"trackpin", "playlist", "add", "mix"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("default and remove", func(t *testing.T) {
		runner, output := newRunner(t)
		app := newTestApp(runner)
		ctx := context.Background()

		for _, args := range [][]string{
			{"trackpin", "playlist", "add", "mix", "37i9dQZF1DXcBWIGoYBM5M"},
			{"trackpin", "playlist", "add", "gym", "5FJXhjdILmRA2z5bvz4nzf"},
			{"trackpin", "playlist", "default", "gym"},
		} {
			if err := app.Run(ctx, args); err != nil {
				t.Fatalf("%v failed: %v", args, err)
			}
		}

		playlist, err := runner.resolvePlaylist("")
		if err != nil {
			t.Fatalf("failed to resolve default: %v", err)
		}
		if playlist.Name != "gym" {
			t.Errorf("expected gym to be default, got %s", playlist.Name)
		}

		if err := app.Run(ctx, []string{"trackpin", "playlist", "remove", "mix"}); err != nil {
			t.Fatalf("playlist remove failed: %v", err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"trackpin", "playlist", "list"}); err != nil {
			t.Fatalf("playlist list failed: %v", err)
		}
		if strings.Contains(output.String(), "mix") {
			t.Errorf("expected mix to be gone, got %q", output.String())
		}
	})

	t.Run("list without database fails", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		app := newTestApp(runner)

		err := app.Run(context.Background(), []string{"trackpin", "playlist", "list"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestPinCommands(t *testing.T) {
	const trackA = "spotify:track:4uLU6hMCjMI75M1A2tKUQC"
	const trackB = "spotify:track:7qiZfU4dY1lWllzX7mPBI3"

	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer, *cli.Command) {
		t.Helper()
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			DB:     setupTestDB(t),
			Output: output,
			Logger: shared.NewLogger(io.Discard),
		})
		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"trackpin", "playlist", "add", "mix", "37i9dQZF1DXcBWIGoYBM5M"}); err != nil {
			t.Fatalf("failed to register playlist: %v", err)
		}
		output.Reset()
		return runner, output, app
	}

	t.Run("add and list", func(t *testing.T) {
		runner, output, app := newRunner(t)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackA, "--position", "2"}); err != nil {
			t.Fatalf("pin add failed: %v", err)
		}
		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackB, "--position", "1"}); err != nil {
			t.Fatalf("pin add failed: %v", err)
		}

		if err := runner.names.Put(trackA, "Song A", "Artist A"); err != nil {
			t.Fatalf("failed to seed name cache: %v", err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"trackpin", "pin", "list"}); err != nil {
			t.Fatalf("pin list failed: %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Artist A - Song A") {
			t.Errorf("expected cached label in listing, got %q", result)
		}
		if strings.Index(result, trackB) > strings.Index(result, "Song A") {
			t.Errorf("expected position order in listing, got %q", result)
		}
	})

	t.Run("conflicting position is rejected by default", func(t *testing.T) {
		_, _, app := newRunner(t)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackA, "--position", "1"}); err != nil {
			t.Fatalf("pin add failed: %v", err)
		}

		err := app.Run(ctx, []string{"trackpin", "pin", "add", trackB, "--position", "1"})
		if !errors.Is(err, shared.ErrPinConflict) {
			t.Errorf("expected ErrPinConflict, got %v", err)
		}

		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackB, "--position", "1", "--on-conflict", "replace"}); err != nil {
			t.Fatalf("pin add with replace failed: %v", err)
		}
	})

	t.Run("move and remove", func(t *testing.T) {
		runner, _, app := newRunner(t)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackA, "--position", "1"}); err != nil {
			t.Fatalf("pin add failed: %v", err)
		}
		if err := app.Run(ctx, []string{"trackpin", "pin", "move", trackA, "--position", "5"}); err != nil {
			t.Fatalf("pin move failed: %v", err)
		}

		pins, err := runner.store.Pins.List("mix")
		if err != nil {
			t.Fatalf("failed to list pins: %v", err)
		}
		if len(pins) != 1 || pins[0].Position != 5 {
			t.Errorf("expected one pin at position 5, got %+v", pins)
		}

		if err := app.Run(ctx, []string{"trackpin", "pin", "remove", trackA}); err != nil {
			t.Fatalf("pin remove failed: %v", err)
		}
		err = app.Run(ctx, []string{"trackpin", "pin", "remove", trackA})
		if !errors.Is(err, shared.ErrPinNotFound) {
			t.Errorf("expected ErrPinNotFound on second remove, got %v", err)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		_, output, app := newRunner(t)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"trackpin", "pin", "add", trackA, "--position", "3"}); err != nil {
			t.Fatalf("pin add failed: %v", err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"trackpin", "pin", "list", "--json"}); err != nil {
			t.Fatalf("pin list failed: %v", err)
		}
		if !strings.Contains(output.String(), `"position":3`) {
			t.Errorf("expected JSON output with position, got %q", output.String())
		}
	})
}

func TestSyncHistoryCommand(t *testing.T) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		DB:     setupTestDB(t),
		Output: output,
		Logger: shared.NewLogger(io.Discard),
	})
	app := newTestApp(runner)
	ctx := context.Background()

	if err := app.Run(ctx, []string{"trackpin", "sync", "history"}); err != nil {
		t.Fatalf("sync history failed: %v", err)
	}
	if !strings.Contains(output.String(), "No sync runs recorded") {
		t.Errorf("expected empty history message, got %q", output.String())
	}
}
