// Joke HTTP handlers.
//
// This file exposes the REST endpoints for the joke resource:
//   - POST   /jokes        (create)
//   - GET    /jokes        (list, optionally paginated)
//   - GET    /jokes/{id}   (fetch one)
//   - PUT    /jokes/{id}   (update text)
//   - DELETE /jokes/{id}   (delete)
//   - POST   /jokes/sync   (pull one joke from the external provider)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate domain/service errors into HTTP responses. Every
// single-resource route resolves the path id to a loaded record before any
// mutation, so malformed ids and missing records are rejected with fixed
// statuses prior to touching the write path.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/http/middleware"
	"github.com/tbourn/go-jokes-backend/internal/services"
	"github.com/tbourn/go-jokes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// JokeService defines joke lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JokeService interface {
	// Create stores a new joke, enforcing text uniqueness.
	Create(ctx context.Context, text string, sourceID *string) (*domain.Joke, error)
	// Resolve translates a raw path id into a loaded joke.
	Resolve(ctx context.Context, rawID string) (*domain.Joke, error)
	// List returns all jokes (non-paginated).
	List(ctx context.Context) ([]domain.Joke, error)
	// ListPage returns a page of jokes and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Joke, int64, error)
	// Update applies field changes to an already-loaded joke.
	Update(ctx context.Context, j *domain.Joke, upd services.JokeUpdate) (*domain.Joke, error)
	// Delete removes a joke by id.
	Delete(ctx context.Context, id string) error
}

// SyncService defines the external-provider pull consumed by the manual
// sync endpoint.
type SyncService interface {
	// FetchAndStore pulls one joke from the provider and stores it.
	FetchAndStore(ctx context.Context) (*domain.Joke, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the joke resource. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	jokeSvc JokeService
	syncSvc SyncService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(jokeSvc JokeService, syncSvc SyncService) *Handlers {
	return &Handlers{jokeSvc: jokeSvc, syncSvc: syncSvc}
}

//
// DTOs
//

// CreateJokeRequest is the JSON payload for creating a joke.
type CreateJokeRequest struct {
	// Text is the joke content; must be non-empty and unique.
	Text string `json:"text" binding:"required" example:"Why did the scarecrow win an award? He was outstanding in his field."`
	// SourceID optionally records the external provider id of the joke.
	SourceID *string `json:"source_id,omitempty" example:"R7UfaahVfFd"`
}

// UpdateJokeRequest is the JSON payload for updating a joke. All fields are
// optional; an empty payload is accepted and leaves the record untouched.
type UpdateJokeRequest struct {
	// Text replaces the joke content when present (must be non-empty).
	Text *string `json:"text,omitempty" binding:"omitempty,min=1" example:"What do you call a fish with no eyes? A fsh."`
}

//
// Handlers
//

// CreateJoke godoc
// @ID          createJoke
// @Summary     Create a new joke
// @Description Stores a new joke with the given text and optional source ID. The text must not duplicate an existing joke.
// @Tags        Jokes
// @Accept      json
// @Produce     json
// @Param       body body handlers.CreateJokeRequest true "Joke payload"
// @Success     201 {object} domain.Joke
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload or duplicate text"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes [post]
func (h *Handlers) CreateJoke(c *gin.Context) {
	var req CreateJokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}

	j, err := h.jokeSvc.Create(c.Request.Context(), req.Text, req.SourceID)
	if err != nil {
		h.failJoke(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("joke_id", j.ID).Msg("joke created")
	ok(c, http.StatusCreated, j)
}

// ListJokes godoc
// @ID          listJokes
// @Summary     List jokes
// @Description Returns all stored jokes, most recent first. When page/page_size query parameters are supplied, only that window is returned; the total count is exposed via the X-Total-Count header.
// @Tags        Jokes
// @Produce     json
// @Param       page      query int false "Page number (1-based)"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {array}  domain.Joke
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes [get]
func (h *Handlers) ListJokes(c *gin.Context) {
	if c.Query("page") == "" && c.Query("page_size") == "" {
		jokes, err := h.jokeSvc.List(c.Request.Context())
		if err != nil {
			h.failJoke(c, err)
			return
		}
		c.Header("X-Total-Count", strconv.Itoa(len(jokes)))
		ok(c, http.StatusOK, jokes)
		return
	}

	page, pageSize := clampPagination(c)
	jokes, total, err := h.jokeSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		h.failJoke(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ok(c, http.StatusOK, jokes)
}

// GetJoke godoc
// @ID          getJoke
// @Summary     Fetch a joke
// @Description Returns a single joke by its ID.
// @Tags        Jokes
// @Produce     json
// @Param       id path string true "Joke ID (UUID)" format(uuid)
// @Success     200 {object} domain.Joke
// @Failure     400 {object} handlers.ErrorResponse "Malformed ID"
// @Failure     404 {object} handlers.ErrorResponse "Joke not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes/{id} [get]
func (h *Handlers) GetJoke(c *gin.Context) {
	j, err := h.jokeSvc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failJoke(c, err)
		return
	}
	ok(c, http.StatusOK, j)
}

// UpdateJoke godoc
// @ID          updateJoke
// @Summary     Update a joke
// @Description Replaces the joke text. An empty payload is a no-op that returns the record unchanged. The new text must not duplicate another joke.
// @Tags        Jokes
// @Accept      json
// @Produce     json
// @Param       id   path string                      true "Joke ID (UUID)" format(uuid)
// @Param       body body handlers.UpdateJokeRequest true "Fields to update"
// @Success     200 {object} domain.Joke
// @Failure     400 {object} handlers.ErrorResponse "Malformed ID, invalid payload, or duplicate text"
// @Failure     404 {object} handlers.ErrorResponse "Joke not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes/{id} [put]
func (h *Handlers) UpdateJoke(c *gin.Context) {
	var req UpdateJokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update payload")
		return
	}

	j, err := h.jokeSvc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failJoke(c, err)
		return
	}

	updated, err := h.jokeSvc.Update(c.Request.Context(), j, services.JokeUpdate{Text: req.Text})
	if err != nil {
		h.failJoke(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("joke_id", updated.ID).Msg("joke updated")
	ok(c, http.StatusOK, updated)
}

// DeleteJoke godoc
// @ID          deleteJoke
// @Summary     Delete a joke
// @Description Removes a joke by its ID.
// @Tags        Jokes
// @Produce     json
// @Param       id path string true "Joke ID (UUID)" format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Malformed ID"
// @Failure     404 {object} handlers.ErrorResponse "Joke not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes/{id} [delete]
func (h *Handlers) DeleteJoke(c *gin.Context) {
	j, err := h.jokeSvc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failJoke(c, err)
		return
	}

	if err := h.jokeSvc.Delete(c.Request.Context(), j.ID); err != nil {
		h.failJoke(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("joke_id", j.ID).Msg("joke deleted")
	noContent(c)
}

// SyncJoke godoc
// @ID          syncJoke
// @Summary     Pull one joke from the external provider
// @Description Manually triggers the same fetch-and-store path used by the background sync worker and returns the newly stored joke.
// @Tags        Jokes
// @Produce     json
// @Success     201 {object} domain.Joke
// @Failure     400 {object} handlers.ErrorResponse "Fetched joke duplicates an existing one"
// @Failure     503 {object} handlers.ErrorResponse "External provider unavailable"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /jokes/sync [post]
func (h *Handlers) SyncJoke(c *gin.Context) {
	j, err := h.syncSvc.FetchAndStore(c.Request.Context())
	if err != nil {
		h.failJoke(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("joke_id", j.ID).Msg("joke synced from provider")
	ok(c, http.StatusCreated, j)
}

//
// Helpers
//

// failJoke maps service-level errors to their fixed HTTP status, code, and
// message. Unrecognized errors are reported as internal failures without
// leaking the underlying cause to the client.
func (h *Handlers) failJoke(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidJokeID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidID, "invalid joke id format")
	case errors.Is(err, services.ErrJokeNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "joke not found")
	case errors.Is(err, services.ErrDuplicateJoke):
		fail(c, http.StatusBadRequest, ErrCodeDuplicate, "joke already exists")
	case errors.Is(err, services.ErrExternalAPI):
		fail(c, http.StatusServiceUnavailable, ErrCodeExternalAPI, "failed to fetch joke from external API")
	default:
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("joke operation failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
