package files

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gilbertlabs/gilbert/internal/config"
	"github.com/gilbertlabs/gilbert/internal/llm"
)

func newTestClient(srv *httptest.Server) *HTTPClient {
	return NewHTTPClient(config.FilesConfig{
		Enabled: true,
		Token:   "test-token",
		BaseURL: srv.URL,
	})
}

func TestHTTPClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/search_v2" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Query != "logo" {
			t.Errorf("query = %q, want logo", body.Query)
		}
		w.Write([]byte(`{"matches":[
			{"metadata":{"metadata":{".tag":"file","name":"logo.png","path_display":"/brand/logo.png","server_modified":"2026-08-01T10:00:00Z"}}},
			{"metadata":{"metadata":{".tag":"folder","name":"Brand","path_display":"/brand"}}}
		]}`))
	}))
	defer srv.Close()

	entries, err := newTestClient(srv).Search(context.Background(), "logo")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Kind != KindFile || entries[0].Name != "logo.png" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[0].Modified.IsZero() {
		t.Error("entry 0 should have a modified timestamp")
	}
	if entries[1].Kind != KindFolder {
		t.Errorf("entry 1 kind = %q, want folder", entries[1].Kind)
	}
	if !entries[1].Modified.IsZero() {
		t.Error("entry 1 should have a zero timestamp")
	}
}

func TestHTTPClient_ListFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/list_folder" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"entries":[{".tag":"folder","name":"Clients","path_display":"/clients"}]}`))
	}))
	defer srv.Close()

	entries, err := newTestClient(srv).ListFolder(context.Background(), "")
	if err != nil {
		t.Fatalf("ListFolder() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Clients" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestHTTPClient_SharedLinkCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sharing/create_shared_link_with_settings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"url":"https://share.example/abc"}`))
	}))
	defer srv.Close()

	url, err := newTestClient(srv).SharedLink(context.Background(), "/brand/logo.png")
	if err != nil {
		t.Fatalf("SharedLink() failed: %v", err)
	}
	if url != "https://share.example/abc" {
		t.Errorf("url = %q", url)
	}
}

func TestHTTPClient_SharedLinkExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/create_shared_link_with_settings":
			http.Error(w, `{"error_summary":"shared_link_already_exists"}`, http.StatusConflict)
		case "/sharing/list_shared_links":
			w.Write([]byte(`{"links":[{"url":"https://share.example/existing"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	url, err := newTestClient(srv).SharedLink(context.Background(), "/brand/logo.png")
	if err != nil {
		t.Fatalf("SharedLink() failed: %v", err)
	}
	if url != "https://share.example/existing" {
		t.Errorf("url = %q, want existing link", url)
	}
}

func TestHTTPClient_ErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Search(context.Background(), "logo")
	if err == nil {
		t.Fatal("Search() should fail on 401")
	}
	if _, ok := err.(*llm.ProviderError); !ok {
		t.Errorf("error type = %T, want *llm.ProviderError", err)
	}
}
