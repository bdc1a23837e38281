package shared

import (
	"errors"
	"testing"
)

func TestNormalizeTrackURI(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare id",
			input: "4uLU6hMCjMI75M1A2tKUQC",
			want:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:  "spotify uri",
			input: "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			want:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:  "share url",
			input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123",
			want:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:  "surrounding whitespace",
			input: "  spotify:track:4uLU6hMCjMI75M1A2tKUQC  ",
			want:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:    "unrecognized",
			input:   "not-a-track",
			wantErr: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTrackURI(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrDataIntegrity) {
					t.Errorf("expected ErrDataIntegrity, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTrackURI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizePlaylistID(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "playlist uri",
			input: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "share url",
			input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "bare id",
			input: "37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:    "unrecognized",
			input:   "???",
			wantErr: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlaylistID(tt.input)
			if tt.wantErr != (err != nil) {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizePlaylistID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackID(t *testing.T) {
	if got := TrackID("spotify:track:4uLU6hMCjMI75M1A2tKUQC"); got != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("TrackID() = %v", got)
	}
	if got := TrackID("4uLU6hMCjMI75M1A2tKUQC"); got != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("TrackID() = %v", got)
	}
}
