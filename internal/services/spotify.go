// Spotify API implementation of [CollectionAPI]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxAttempts bounds the retry loop for one logical call.
	maxAttempts = 5

	// tokenSlack refreshes tokens that are within a minute of expiring.
	tokenSlack = 60 * time.Second

	snapshotFields = "items(track(uri,name,popularity,artists(id,name))),next,snapshot_id"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Tracks simplePlaylistTrack `json:"tracks"`
	URI    string              `json:"uri"`
}

type paginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Next  *string                 `json:"next"`
}

type snapshotPage struct {
	Items []struct {
		Track struct {
			URI        string          `json:"uri"`
			Name       string          `json:"name"`
			Popularity int             `json:"popularity"`
			Artists    []SpotifyArtist `json:"artists"`
		} `json:"track"`
	} `json:"items"`
	Next       *string `json:"next"`
	SnapshotID string  `json:"snapshot_id"`
}

type snapshotResult struct {
	SnapshotID string `json:"snapshot_id"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyClient performs authenticated operations against the Spotify Web
// API, transparently handling token refresh and transient failures.
type SpotifyClient struct {
	baseURL    string
	tokenURL   string
	config     *oauth2.Config
	creds      map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(time.Duration)

	// mu guards the bearer token: refresh is a single-flight critical
	// section when playlists are synced by parallel workers.
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewSpotifyClient creates a Spotify client from credentials.
//
// Requires client_id and client_secret; refresh_token may be empty until the
// auth bootstrap has run (API calls will fail with ErrNoRefreshToken).
func NewSpotifyClient(credentials map[string]string, logger *log.Logger) (*SpotifyClient, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		baseURL:    spotifyBaseURL,
		tokenURL:   spotifyTokenURL,
		config:     config,
		creds:      credentials,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
		logger:     logger,
		sleep:      time.Sleep,
	}, nil
}

// GetAuthURL returns the OAuth2 authorization URL for the one-time bootstrap.
func (s *SpotifyClient) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyClient) OAuthConfig() *oauth2.Config {
	return s.config
}

// ensureToken guarantees a valid bearer token, refreshing when the token is
// absent or within tokenSlack of expiry. staleToken, when non-empty, names a
// token a request was just 401'd on; the refresh then proceeds unless another
// worker already replaced that exact token, so concurrent workers reacting to
// the same rejection perform a single refresh between them while a token
// revoked right after a refresh still gets replaced.
func (s *SpotifyClient) ensureToken(ctx context.Context, staleToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && s.accessToken != staleToken && time.Until(s.expiresAt) > tokenSlack {
		return nil
	}

	refreshToken := s.creds["refresh_token"]
	if refreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", shared.ErrRefreshFailed, resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("%w: failed to decode token response: %v", shared.ErrRefreshFailed, err)
	}

	if token.ExpiresIn <= 0 {
		token.ExpiresIn = 3600
	}

	s.accessToken = token.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	s.logger.Debug("access token refreshed", "expires_in", token.ExpiresIn)

	return nil
}

// do performs one logical API call with up to maxAttempts attempts.
//
// 429 sleeps for the server-provided Retry-After (default 1s); 5xx sleeps
// 1+attempt seconds; 401 forces a token refresh without sleeping. Any other
// status returns immediately. After exhausting attempts the last response is
// returned as-is for the caller to interpret.
func (s *SpotifyClient) do(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var last *apiResponse
	staleToken := ""

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := s.ensureToken(ctx, staleToken); err != nil {
			return nil, err
		}
		staleToken = ""

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		s.mu.Lock()
		usedToken := s.accessToken
		s.mu.Unlock()
		req.Header.Set("Authorization", "Bearer "+usedToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			// Transport failures retry with the same linear backoff as 5xx.
			s.logger.Warn("request failed", "method", method, "path", path, "error", err)
			last = nil
			s.sleep(time.Duration(1+attempt) * time.Second)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response: %w", readErr)
		}

		last = &apiResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: respBody}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			s.logger.Warn("rate limited", "path", path, "retry_after", wait)
			s.sleep(wait)
		case resp.StatusCode == 500 || resp.StatusCode == 502 || resp.StatusCode == 503 || resp.StatusCode == 504:
			s.logger.Warn("server error, retrying", "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			s.sleep(time.Duration(1+attempt) * time.Second)
		case resp.StatusCode == http.StatusUnauthorized:
			s.logger.Info("unauthorized, forcing token refresh", "path", path)
			staleToken = usedToken
		default:
			return last, nil
		}
	}

	if last == nil {
		return nil, fmt.Errorf("%w: %s %s: no response after %d attempts", shared.ErrTransient, method, path, maxAttempts)
	}

	return last, nil
}

// doJSON performs a call, maps non-2xx statuses to taxonomy errors, and
// decodes the response into result when provided.
func (s *SpotifyClient) doJSON(ctx context.Context, method, path string, body, result any) error {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// statusError maps a terminal non-2xx response to the error taxonomy.
func statusError(method, path string, resp *apiResponse) error {
	message := ""
	var se spotifyError
	if err := json.Unmarshal(resp.Body, &se); err == nil {
		message = se.Error.Message
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "snapshot"):
		sentinel = shared.ErrStaleSnapshot
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = shared.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		sentinel = shared.ErrPlaylistNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = shared.ErrTransient
	case resp.StatusCode >= 500:
		sentinel = shared.ErrTransient
	default:
		sentinel = shared.ErrAPIRequest
	}

	if message == "" {
		message = string(resp.Body)
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", sentinel, method, path, resp.StatusCode, message)
}

// retryAfter parses the Retry-After header, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// Me retrieves the current authenticated user's profile.
func (s *SpotifyClient) Me(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doJSON(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// OwnedPlaylists retrieves the playlists owned by the current user,
// paginating until exhausted.
func (s *SpotifyClient) OwnedPlaylists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	me, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}

	var owned []SpotifySimplePlaylist
	path := "/me/playlists?limit=50"

	for path != "" {
		var page paginatedPlaylists
		if err := s.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		for _, pl := range page.Items {
			if pl.Owner.ID == me.ID {
				owned = append(owned, pl)
			}
		}

		path = ""
		if page.Next != nil {
			path = strings.TrimPrefix(*page.Next, s.baseURL)
		}
	}

	return owned, nil
}

// Track retrieves a single track by bare ID or spotify:track: URI.
func (s *SpotifyClient) Track(ctx context.Context, trackRef string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	path := fmt.Sprintf("/tracks/%s", shared.TrackID(trackRef))
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// SeveralTracks retrieves multiple tracks by their IDs (up to 50).
func (s *SpotifyClient) SeveralTracks(ctx context.Context, trackIDs []string) ([]SpotifyTrack, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 track IDs allowed", shared.ErrInvalidArgument)
	}

	path := fmt.Sprintf("/tracks?ids=%s", url.QueryEscape(strings.Join(trackIDs, ",")))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}

	return response.Tracks, nil
}

// SeveralArtists retrieves multiple artists by their IDs (up to 50).
// Genres live on the artist, not the track.
func (s *SpotifyClient) SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error) {
	if len(artistIDs) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrInvalidArgument)
	}
	if len(artistIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 artist IDs allowed", shared.ErrInvalidArgument)
	}

	path := fmt.Sprintf("/artists?ids=%s", url.QueryEscape(strings.Join(artistIDs, ",")))

	var response struct {
		Artists []SpotifyArtist `json:"artists"`
	}
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}

	return response.Artists, nil
}

// PlaylistItems implements [CollectionAPI.PlaylistItems].
//
// The snapshot token comes from the first page; entries whose track has no
// URI (locally-uploaded, non-indexable items) are skipped entirely and never
// targeted by dedup or reconciliation. Any failed page aborts the snapshot.
func (s *SpotifyClient) PlaylistItems(ctx context.Context, playlistID string) (*Snapshot, error) {
	pid, err := shared.NormalizePlaylistID(playlistID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{PlaylistID: pid}
	path := fmt.Sprintf("/playlists/%s/tracks?limit=100&fields=%s", pid, url.QueryEscape(snapshotFields))

	for path != "" {
		var page snapshotPage
		if err := s.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		if snapshot.SnapshotID == "" {
			snapshot.SnapshotID = page.SnapshotID
		}

		for _, item := range page.Items {
			if item.Track.URI == "" {
				continue
			}

			entry := models.PlaylistEntry{
				TrackURI:   item.Track.URI,
				Index:      len(snapshot.Entries),
				Title:      item.Track.Name,
				Popularity: item.Track.Popularity,
			}
			for _, artist := range item.Track.Artists {
				if entry.Artist == "" {
					entry.Artist = artist.Name
				}
				if artist.ID != "" {
					entry.ArtistIDs = append(entry.ArtistIDs, artist.ID)
				}
			}
			snapshot.Entries = append(snapshot.Entries, entry)
		}

		path = ""
		if page.Next != nil {
			path = strings.TrimPrefix(*page.Next, s.baseURL)
		}
	}

	return snapshot, nil
}

// AddTracks implements [CollectionAPI.AddTracks].
func (s *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string, position *int) (string, error) {
	pid, err := shared.NormalizePlaylistID(playlistID)
	if err != nil {
		return "", err
	}

	payload := map[string]any{"uris": uris}
	if position != nil {
		payload["position"] = *position
	}

	var result snapshotResult
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("/playlists/%s/tracks", pid), payload, &result); err != nil {
		return "", err
	}

	return result.SnapshotID, nil
}

// Reorder implements [CollectionAPI.Reorder].
func (s *SpotifyClient) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int, snapshotID string) (string, error) {
	pid, err := shared.NormalizePlaylistID(playlistID)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"range_start":   rangeStart,
		"insert_before": insertBefore,
		"range_length":  rangeLength,
	}
	if snapshotID != "" {
		payload["snapshot_id"] = snapshotID
	}

	var result snapshotResult
	if err := s.doJSON(ctx, http.MethodPut, fmt.Sprintf("/playlists/%s/tracks", pid), payload, &result); err != nil {
		return "", err
	}

	return result.SnapshotID, nil
}

// RemoveAllOccurrences implements [CollectionAPI.RemoveAllOccurrences].
func (s *SpotifyClient) RemoveAllOccurrences(ctx context.Context, playlistID string, uris []string) (string, error) {
	pid, err := shared.NormalizePlaylistID(playlistID)
	if err != nil {
		return "", err
	}

	tracks := make([]map[string]string, len(uris))
	for i, uri := range uris {
		tracks[i] = map[string]string{"uri": uri}
	}

	var result snapshotResult
	if err := s.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/playlists/%s/tracks", pid), map[string]any{"tracks": tracks}, &result); err != nil {
		return "", err
	}

	return result.SnapshotID, nil
}
