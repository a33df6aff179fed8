package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newSyncTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept: application/json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSync_FetchAndStore_Success(t *testing.T) {
	jokes := newTestService(t)
	srv := newSyncTestServer(t, http.StatusOK, `{"id":"x","joke":"Y"}`)

	sync := NewSyncService(jokes, srv.Client(), srv.URL)
	j, err := sync.FetchAndStore(context.Background())
	if err != nil {
		t.Fatalf("fetch and store: %v", err)
	}
	if j.Text != "Y" {
		t.Fatalf("expected text Y, got %q", j.Text)
	}
	if j.SourceID == nil || *j.SourceID != "x" {
		t.Fatalf("expected source_id x, got %v", j.SourceID)
	}

	// The joke actually landed in the store.
	got, err := jokes.Resolve(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("resolve stored joke: %v", err)
	}
	if got.Text != "Y" {
		t.Fatalf("stored text mismatch: %q", got.Text)
	}
}

func TestSync_FetchAndStore_NonSuccessStatus(t *testing.T) {
	jokes := newTestService(t)
	srv := newSyncTestServer(t, http.StatusInternalServerError, `boom`)

	sync := NewSyncService(jokes, srv.Client(), srv.URL)
	_, err := sync.FetchAndStore(context.Background())
	if !errors.Is(err, ErrExternalAPI) {
		t.Fatalf("expected ErrExternalAPI, got %v", err)
	}

	// Nothing was stored.
	stored, err := jokes.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected empty store, got %d records", len(stored))
	}
}

func TestSync_FetchAndStore_MalformedBody(t *testing.T) {
	jokes := newTestService(t)
	srv := newSyncTestServer(t, http.StatusOK, `{not json`)

	sync := NewSyncService(jokes, srv.Client(), srv.URL)
	if _, err := sync.FetchAndStore(context.Background()); !errors.Is(err, ErrExternalAPI) {
		t.Fatalf("expected ErrExternalAPI for malformed body, got %v", err)
	}
}

func TestSync_FetchAndStore_MissingJokeText(t *testing.T) {
	jokes := newTestService(t)
	srv := newSyncTestServer(t, http.StatusOK, `{"id":"x"}`)

	sync := NewSyncService(jokes, srv.Client(), srv.URL)
	if _, err := sync.FetchAndStore(context.Background()); !errors.Is(err, ErrExternalAPI) {
		t.Fatalf("expected ErrExternalAPI for missing joke text, got %v", err)
	}
}

func TestSync_FetchAndStore_NetworkError(t *testing.T) {
	jokes := newTestService(t)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	sync := NewSyncService(jokes, &http.Client{Timeout: time.Second}, url)
	if _, err := sync.FetchAndStore(context.Background()); !errors.Is(err, ErrExternalAPI) {
		t.Fatalf("expected ErrExternalAPI on network error, got %v", err)
	}
}

func TestSync_FetchAndStore_DuplicatePropagates(t *testing.T) {
	jokes := newTestService(t)
	if _, err := jokes.Create(context.Background(), "Y", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := newSyncTestServer(t, http.StatusOK, `{"id":"x","joke":"Y"}`)

	sync := NewSyncService(jokes, srv.Client(), srv.URL)
	_, err := sync.FetchAndStore(context.Background())
	if !errors.Is(err, ErrDuplicateJoke) {
		t.Fatalf("expected ErrDuplicateJoke to propagate unchanged, got %v", err)
	}
}
