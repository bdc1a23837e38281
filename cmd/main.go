package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var client *services.SpotifyClient
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if c, err := services.NewSpotifyClient(config.Credentials.Spotify.Map(), logger); err == nil {
			client = c
		}
	}

	var db *sql.DB
	if _, err := os.Stat(config.Database.Path); err == nil {
		if opened, err := shared.NewDatabase(config.Database.Path); err == nil {
			shared.ConfigureDatabase(opened, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			db = opened
			defer db.Close()
		} else {
			logger.Warnf("failed to open database %v", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Client: client,
		DB:     db,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "trackpin",
		Usage:    "Pin tracks to fixed positions in your Spotify playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
