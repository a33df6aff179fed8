// Package services – SyncService
//
// This file implements the SyncService, the client for the external
// joke-of-the-day provider. It fetches one joke over HTTP, parses the JSON
// response, and hands the text and provider id to JokeService's create path,
// so that synced jokes obey the same uniqueness rule as manual ones.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tbourn/go-jokes-backend/internal/domain"
)

// JokeCreator is the subset of JokeService consumed by SyncService.
// Keeping the dependency narrow makes the sync path easy to test in
// isolation.
type JokeCreator interface {
	// Create stores a new joke, enforcing text uniqueness.
	Create(ctx context.Context, text string, sourceID *string) (*domain.Joke, error)
}

// SyncService fetches jokes from the configured external endpoint and stores
// them through the JokeService.
type SyncService struct {
	// Jokes is the creation path shared with the HTTP surface.
	Jokes JokeCreator
	// Client is the HTTP client used for outbound calls. It should carry a
	// bounded timeout so a hung provider call cannot stall a sync cycle
	// indefinitely.
	Client *http.Client
	// APIURL is the external provider endpoint (e.g. https://icanhazdadjoke.com/).
	APIURL string
}

// NewSyncService constructs a SyncService bound to the given creator,
// client, and endpoint URL. A nil client falls back to http.DefaultClient.
func NewSyncService(jokes JokeCreator, client *http.Client, apiURL string) *SyncService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SyncService{Jokes: jokes, Client: client, APIURL: apiURL}
}

// jokeOfTheDay mirrors the provider's JSON response shape.
type jokeOfTheDay struct {
	ID   string `json:"id"`
	Joke string `json:"joke"`
}

// FetchAndStore retrieves one joke from the external provider and stores it.
//
// Semantics:
//   - The request carries an "Accept: application/json" header.
//   - Network-level failures (timeout, connection refused, DNS), non-200
//     statuses, and unparseable or empty bodies are all reported uniformly
//     as ErrExternalAPI; nothing is stored in those cases.
//   - ErrDuplicateJoke from the delegated create propagates unchanged: a
//     remote joke whose text is already stored is a duplicate, not a
//     provider failure, and is not swallowed here.
//
// On success, the newly stored joke is returned.
func (s *SyncService) FetchAndStore(ctx context.Context) (*domain.Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrExternalAPI, resp.StatusCode)
	}

	var payload jokeOfTheDay
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	if strings.TrimSpace(payload.Joke) == "" {
		return nil, fmt.Errorf("%w: response missing joke text", ErrExternalAPI)
	}

	var sourceID *string
	if payload.ID != "" {
		sourceID = &payload.ID
	}
	return s.Jokes.Create(ctx, payload.Joke, sourceID)
}
