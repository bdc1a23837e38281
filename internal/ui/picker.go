package ui

import (
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trackpin/internal/models"
	"github.com/desertthunder/trackpin/internal/services"
)

// ErrCancelled is returned when the user quits a picker without selecting.
var ErrCancelled = errors.New("selection cancelled")

// pickerModel is a single-view list selector.
type pickerModel struct {
	list   list.Model
	keys   keyMap
	help   help.Model
	choice list.Item
}

func newPicker(title string, items []list.Item) pickerModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = styles.title
	l.SetShowHelp(false)

	return pickerModel{
		list: l,
		keys: newKeyMap(),
		help: help.New(),
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case tea.KeyMsg:
		// While the list is filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, m.keys.enter):
			m.choice = m.list.SelectedItem()
			return m, tea.Quit
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View() + "\n" + m.help.View(m.keys)
}

func runPicker(title string, items []list.Item) (list.Item, error) {
	program := tea.NewProgram(newPicker(title, items), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return nil, err
	}

	model, ok := final.(pickerModel)
	if !ok || model.choice == nil {
		return nil, ErrCancelled
	}
	return model.choice, nil
}

// PickPlaylist runs an interactive selector over the user's playlists.
func PickPlaylist(playlists []services.SpotifySimplePlaylist) (*services.SpotifySimplePlaylist, error) {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}

	choice, err := runPicker("Select a playlist", items)
	if err != nil {
		return nil, err
	}

	selected := choice.(playlistItem).playlist
	return &selected, nil
}

// PickTrack runs an interactive selector over a playlist's tracks.
func PickTrack(entries []models.PlaylistEntry) (*models.PlaylistEntry, error) {
	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		items[i] = trackItem{entry: entry}
	}

	choice, err := runPicker("Select a track", items)
	if err != nil {
		return nil, err
	}

	selected := choice.(trackItem).entry
	return &selected, nil
}
