package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackclip/pkg/musiclink"
)

func TestAppleMusicCatalog_GetTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "1":
			_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"wrapperType":"track","trackId":1,` +
				`"trackName":"Song","artistName":"Artist","collectionName":"Album","trackTimeMillis":200000}]}`))
		case "2":
			_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	catalog := NewAppleMusicCatalog(musiclink.NewAppleMusicClientWithURL(server.Client(), server.URL))

	track, err := catalog.GetTrack(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetTrack() failed: %v", err)
	}
	if track.Title != "Song" || track.ArtistLine() != "Artist" || track.Album != "Album" || track.Duration != 200*time.Second {
		t.Errorf("Unexpected track %+v", track)
	}

	if _, err := catalog.GetTrack(context.Background(), "2"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}

	_, err = catalog.GetTrack(context.Background(), "3")
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable, got %v", err)
	}
	if Classify(err) != ClassTransient {
		t.Errorf("Catalog outage should classify as transient, got %s", Classify(err))
	}
}
