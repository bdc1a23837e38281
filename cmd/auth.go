package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/trackpin/internal/server"
	"github.com/desertthunder/trackpin/internal/services"
	"github.com/desertthunder/trackpin/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the one-time OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user consent, exchanges
// the auth code, and stores the resulting refresh token in config.toml. Every
// later sync run reuses that refresh token to mint access tokens on its own.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.config

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}

	client := r.client
	if client == nil {
		var err error
		if client, err = services.NewSpotifyClient(config.Credentials.Spotify.Map(), r.logger); err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
	}

	token, err := r.doOAuth(config, client)
	if err != nil {
		return err
	}

	if token.RefreshToken == "" {
		return fmt.Errorf("%w: authorization response did not include a refresh token", shared.ErrAuthFailed)
	}

	config.Credentials.Spotify.RefreshToken = token.RefreshToken
	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Refresh token saved to %s\n\n", configPath)
	r.writePlain("You can now use: trackpin playlist add --pick\n")

	return nil
}

// AuthStatus verifies the stored credentials by fetching the current user profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}

	me, err := r.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(me, cmd.Bool("pretty"))
	}

	name := me.DisplayName
	if name == "" {
		name = me.ID
	}
	return r.writePlain("✓ Authenticated as %s (%s)\n", name, me.ID)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
func (r *Runner) doOAuth(config *shared.Config, client *services.SpotifyClient) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := client.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(client.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// authCommand handles Spotify authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and store a refresh token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the authenticated Spotify account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}
