package musiclink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != commonUserAgent {
			t.Errorf("Expected browser user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	body, err := FetchPage(context.Background(), server.Client(), server.URL+"/page", "test", 10)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if len(body) != 10 {
		t.Errorf("Expected body limited to 10 bytes, got %d", len(body))
	}

	_, err = FetchPage(context.Background(), server.Client(), server.URL+"/missing", "test", 10)
	if err == nil || !strings.Contains(err.Error(), "test returned status 404") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestNewHTTPClient_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client := newHTTPClient()
	resp, err := client.Get(server.URL + "/r")
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("Expected redirect loop to fail")
	}
	if !strings.Contains(err.Error(), ErrTooManyRedirects.Error()) {
		t.Errorf("Expected %v, got %v", ErrTooManyRedirects, err)
	}
}
