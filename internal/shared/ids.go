package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// Spotify identifiers are 22-character base62 strings. Users paste them as
// bare IDs, spotify: URIs, or open.spotify.com share links.
var (
	spotifyIDPattern   = regexp.MustCompile(`(?:spotify:(?:track|playlist):)?([A-Za-z0-9]{22})`)
	trackURLPattern    = regexp.MustCompile(`open\.spotify\.com/track/([A-Za-z0-9]{22})`)
	playlistURLPattern = regexp.MustCompile(`open\.spotify\.com/playlist/([A-Za-z0-9]{22})`)
)

// NormalizeTrackURI converts any recognized track reference (bare ID, URI, or
// share URL) into the canonical `spotify:track:<id>` form.
func NormalizeTrackURI(s string) (string, error) {
	s = strings.TrimSpace(s)
	m := trackURLPattern.FindStringSubmatch(s)
	if m == nil {
		m = spotifyIDPattern.FindStringSubmatch(s)
	}
	if m == nil {
		return "", fmt.Errorf("%w: cannot recognize track reference %q", ErrDataIntegrity, s)
	}
	return "spotify:track:" + m[1], nil
}

// NormalizePlaylistID converts any recognized playlist reference into the bare
// 22-character ID used in API paths.
func NormalizePlaylistID(s string) (string, error) {
	s = strings.TrimSpace(s)
	m := playlistURLPattern.FindStringSubmatch(s)
	if m == nil {
		m = spotifyIDPattern.FindStringSubmatch(s)
	}
	if m == nil {
		return "", fmt.Errorf("%w: cannot recognize playlist reference %q", ErrInvalidArgument, s)
	}
	return m[1], nil
}

// TrackID extracts the bare ID from a `spotify:track:<id>` URI.
func TrackID(uri string) string {
	if idx := strings.LastIndex(uri, ":"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
