package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/services"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [services.SpotifySimplePlaylist] to implement [list.Item].
type playlistItem struct {
	playlist services.SpotifySimplePlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks • %s", i.playlist.Tracks.Total, i.playlist.ID)
}

// trackItem wraps [models.PlaylistEntry] to implement [list.Item].
type trackItem struct {
	entry models.PlaylistEntry
}

func (i trackItem) FilterValue() string { return i.entry.Title }
func (i trackItem) Title() string {
	if i.entry.Title == "" {
		return i.entry.TrackURI
	}
	return i.entry.Title
}
func (i trackItem) Description() string {
	desc := fmt.Sprintf("position %d", i.entry.Index+1)
	if i.entry.Artist != "" {
		desc = fmt.Sprintf("%s • %s", i.entry.Artist, desc)
	}
	return desc
}
