package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/epokrso/steam-analyzer/config"
)

var testEntry = config.CatalogEntry{AppID: 2923300, Name: "Banana", ContextID: 2}

func TestSourceFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotBody))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "76561199300997500", "english", nil, time.Second)
	snap, err := src.Fetch(context.Background(), testEntry)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Assets) != 4 {
		t.Fatalf("expected 4 assets, got %d", len(snap.Assets))
	}
	if gotPath != "/inventory/76561199300997500/2923300/2" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestSourceFetchLoginPageIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>please sign in</html>"))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "1", "english", nil, time.Second)
	if _, err := src.Fetch(context.Background(), testEntry); err == nil {
		t.Fatalf("expected error for HTML body")
	}
}

func TestSourceFetchHTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "1", "english", nil, time.Second)
	if _, err := src.Fetch(context.Background(), testEntry); err == nil {
		t.Fatalf("expected error for 500 status")
	}
}
