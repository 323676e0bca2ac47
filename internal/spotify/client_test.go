package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"trackclip/internal/core"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/tracks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Missing app token, got %q", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/tracks/4uLU6hMCjMI75M1A2tKUQC":
			_, _ = w.Write([]byte(`{"id":"4uLU6hMCjMI75M1A2tKUQC","name":"Never Gonna Give You Up",` +
				`"duration_ms":213573,"artists":[{"name":"Rick Astley"}],` +
				`"album":{"name":"Whenever You Need Somebody","images":[{"url":"https://i.scdn.co/image/cover","height":640,"width":640}]}}`))
		case "/v1/tracks/0000000000000000000000":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"status":503,"message":"Service unavailable"}}`))
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetTrack(t *testing.T) {
	server := newTestServer(t)
	config := &core.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
	client := NewClientWithEndpoints(context.Background(), config, zap.NewNop(), server.URL+"/token", server.URL+"/v1/")

	track, err := client.GetTrack(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
	if err != nil {
		t.Fatalf("GetTrack() failed: %v", err)
	}

	if track.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", track.Title)
	}
	if track.ArtistLine() != "Rick Astley" {
		t.Errorf("Artists = %v", track.Artists)
	}
	if track.Album != "Whenever You Need Somebody" || track.CoverArtURL != "https://i.scdn.co/image/cover" {
		t.Errorf("Album fields = %q, %q", track.Album, track.CoverArtURL)
	}
	if track.Duration != 213573*time.Millisecond {
		t.Errorf("Duration = %v", track.Duration)
	}
}

func TestClient_GetTrackErrors(t *testing.T) {
	server := newTestServer(t)
	config := &core.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
	client := NewClientWithEndpoints(context.Background(), config, zap.NewNop(), server.URL+"/token", server.URL+"/v1/")

	_, err := client.GetTrack(context.Background(), "0000000000000000000000")
	if !errors.Is(err, core.ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}

	_, err = client.GetTrack(context.Background(), "1111111111111111111111")
	if !errors.Is(err, core.ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(context.Background(), &core.SpotifyConfig{}, zap.NewNop())

	if client.Configured() {
		t.Error("Client without credentials should not report configured")
	}

	_, err := client.GetTrack(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
	if !errors.Is(err, core.ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
	}
}
