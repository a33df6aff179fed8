// Package services – JokeService
//
// This file implements the JokeService, which is the single authority for
// mutating joke records. It owns the duplicate-prevention rule (no two jokes
// with identical text), timestamp assignment, and the translation of
// persistence failures into the service error taxonomy. Both the HTTP
// handlers and the background sync worker funnel through this service, so
// the invariant is enforced in exactly one place.
//
// Service-level errors (e.g., ErrDuplicateJoke, ErrJokeNotFound) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/repo"
)

// JokeRepo defines the repository contract required by JokeService.
// Implementations are responsible for persistence of joke records.
type JokeRepo interface {
	// CreateJoke inserts a new joke row with the given text and source id.
	CreateJoke(ctx context.Context, db *gorm.DB, text string, sourceID *string) (*domain.Joke, error)

	// GetJoke fetches a joke by ID.
	GetJoke(ctx context.Context, db *gorm.DB, id string) (*domain.Joke, error)

	// FindJokeByText fetches a joke by exact text match.
	FindJokeByText(ctx context.Context, db *gorm.DB, text string) (*domain.Joke, error)

	// ListJokes returns all jokes (non-paginated).
	ListJokes(ctx context.Context, db *gorm.DB) ([]domain.Joke, error)

	// CountJokes returns the total number of jokes for pagination.
	CountJokes(ctx context.Context, db *gorm.DB) (int64, error)

	// ListJokesPage returns a page of jokes.
	ListJokesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Joke, error)

	// SaveJoke persists field changes of an already-loaded joke.
	SaveJoke(ctx context.Context, db *gorm.DB, j *domain.Joke) error

	// DeleteJoke removes a joke row by ID.
	DeleteJoke(ctx context.Context, db *gorm.DB, id string) error
}

// JokeUpdate carries the mutable fields of a joke update. Nil fields are
// left untouched; an all-nil update is a no-op that does not bump UpdatedAt.
type JokeUpdate struct {
	// Text replaces the joke text when non-nil.
	Text *string
}

// JokeService provides joke lifecycle operations: create, resolve, list,
// update, and delete. It enforces the text-uniqueness rule on every mutation.
type JokeService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the joke repository used by this service.
	Repo JokeRepo
}

// NewJokeService constructs a JokeService bound to the given handle and repo.
func NewJokeService(db *gorm.DB, r JokeRepo) *JokeService {
	return &JokeService{DB: db, Repo: r}
}

// Create inserts a new joke with the given text and optional source id.
//
// Semantics:
//   - An existing joke with exactly this text yields ErrDuplicateJoke.
//   - The in-service lookup is an optimization; the unique index on text is
//     the authoritative guard, so a unique violation on insert is mapped to
//     ErrDuplicateJoke as well. Two concurrent creates with the same text
//     cannot both land.
//   - Any other persistence failure is wrapped as ErrStorage.
//
// On success, the persisted joke (including its assigned ID and CreatedAt)
// is returned. UpdatedAt is nil for freshly created jokes.
func (s *JokeService) Create(ctx context.Context, text string, sourceID *string) (*domain.Joke, error) {
	if _, err := s.Repo.FindJokeByText(ctx, s.DB, text); err == nil {
		return nil, ErrDuplicateJoke
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, storageFailure(err)
	}

	j, err := s.Repo.CreateJoke(ctx, s.DB, text, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, ErrDuplicateJoke
		}
		return nil, storageFailure(err)
	}
	return j, nil
}

// Resolve translates an externally supplied identifier into a loaded joke.
//
// Semantics:
//   - rawID that does not parse as a UUID yields ErrInvalidJokeID, never
//     ErrJokeNotFound.
//   - A well-formed but absent identifier yields ErrJokeNotFound.
//
// Resolve performs no mutation; callers use it to read-check before deciding
// to update or delete.
func (s *JokeService) Resolve(ctx context.Context, rawID string) (*domain.Joke, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidJokeID
	}
	j, err := s.Repo.GetJoke(ctx, s.DB, id.String())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJokeNotFound
		}
		return nil, storageFailure(err)
	}
	return j, nil
}

// List returns all jokes (non-paginated), most recent first.
// Prefer ListPage for scalability on large datasets.
func (s *JokeService) List(ctx context.Context) ([]domain.Joke, error) {
	out, err := s.Repo.ListJokes(ctx, s.DB)
	if err != nil {
		return nil, storageFailure(err)
	}
	return out, nil
}

// ListPage returns a page of jokes plus the total count. It applies defaults
// for invalid page/pageSize values.
func (s *JokeService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Joke, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountJokes(ctx, s.DB)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	if total == 0 {
		return []domain.Joke{}, 0, nil
	}

	items, err := s.Repo.ListJokesPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	return items, total, nil
}

// Update applies the given field changes to an already-loaded joke.
//
// Semantics:
//   - An empty update returns the joke unchanged: no write, no UpdatedAt bump.
//   - A text change re-checks uniqueness against the new text, excluding the
//     joke's own row, so re-submitting a joke's current text is not treated
//     as a duplicate. Another joke holding that text yields ErrDuplicateJoke.
//   - On success UpdatedAt is set to the update time (UTC), which is always
//     >= CreatedAt.
//
// The caller is responsible for the existence check (see Resolve); Update
// trusts that the joke it receives was loaded from the store.
func (s *JokeService) Update(ctx context.Context, j *domain.Joke, upd JokeUpdate) (*domain.Joke, error) {
	if upd.Text == nil {
		return j, nil
	}

	if existing, err := s.Repo.FindJokeByText(ctx, s.DB, *upd.Text); err == nil {
		if existing.ID != j.ID {
			return nil, ErrDuplicateJoke
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, storageFailure(err)
	}

	now := time.Now().UTC()
	j.Text = *upd.Text
	j.UpdatedAt = &now
	if err := s.Repo.SaveJoke(ctx, s.DB, j); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, ErrDuplicateJoke
		}
		return nil, storageFailure(err)
	}
	return j, nil
}

// Delete removes the joke identified by id. Deletion is unconditional: the
// caller has already resolved the id to an existing record, and a concurrent
// delete of the same row is not an error.
func (s *JokeService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteJoke(ctx, s.DB, id); err != nil {
		return storageFailure(err)
	}
	return nil
}

// storageFailure wraps an unexpected persistence error as ErrStorage,
// keeping the cause available for logging via errors.Unwrap chains while
// handlers surface only the fixed user-facing message.
func storageFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
