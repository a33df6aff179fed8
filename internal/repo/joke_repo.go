// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Joke model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a joke is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Duplicate text relies on the database unique index and is returned as
//     a raw DB error. The service layer translates that into a domain error
//     (e.g., services.ErrDuplicateJoke).
//   - On other DB errors (connectivity issues, etc.), the raw gorm error is
//     propagated.
//
// Functions:
//
//   - CreateJoke(ctx, db, text, sourceID) -> *domain.Joke, error
//     Inserts a new Joke row with UUID primary key and UTC timestamp.
//
//   - GetJoke(ctx, db, id) -> *domain.Joke, error
//     Fetches a single joke by ID, or ErrNotFound if missing.
//
//   - FindJokeByText(ctx, db, text) -> *domain.Joke, error
//     Exact-match lookup by joke text, or ErrNotFound if missing.
//
//   - ListJokes(ctx, db) -> []domain.Joke, error
//     Returns all jokes, ordered by creation time descending.
//
//   - CountJokes / ListJokesPage -> pagination support.
//
//   - SaveJoke(ctx, db, joke) -> error
//     Persists field changes of an already-loaded joke.
//
//   - DeleteJoke(ctx, db, id) -> error
//     Removes the row; deleting an already-deleted id is not an error.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.JokeService) which enforces the duplicate-prevention rule
// and timestamp handling.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-jokes-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateJoke inserts a new Joke row with the given text and optional source
// identifier. The joke ID is a randomly generated UUID (string), and
// CreatedAt is set to UTC. UpdatedAt is left nil until the first update.
//
// On success, it returns the persisted Joke. On failure, it returns a DB
// error; a unique-index violation on text surfaces here as a raw DB error.
func CreateJoke(ctx context.Context, db *gorm.DB, text string, sourceID *string) (*domain.Joke, error) {
	j := &domain.Joke{
		ID:        uuid.NewString(),
		Text:      text,
		SourceID:  sourceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// GetJoke fetches a single joke by its ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetJoke(ctx context.Context, db *gorm.DB, id string) (*domain.Joke, error) {
	var j domain.Joke
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// FindJokeByText fetches a joke whose text matches exactly (case-sensitive).
// If no such joke exists, it returns ErrNotFound. On other DB errors, the
// raw error is returned.
func FindJokeByText(ctx context.Context, db *gorm.DB, text string) (*domain.Joke, error) {
	var j domain.Joke
	err := db.WithContext(ctx).
		Where("text = ?", text).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJokes returns all jokes, ordered by creation time descending (most
// recent first). It returns an empty (non-nil) slice when the table is empty
// so callers serialize it as a JSON array. On DB error, it returns the error.
func ListJokes(ctx context.Context, db *gorm.DB) ([]domain.Joke, error) {
	var out []domain.Joke
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Joke{}
	}
	return out, nil
}

// CountJokes returns the total number of stored jokes.
// On DB error, it returns the error.
func CountJokes(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Joke{}).
		Count(&total).Error
	return total, err
}

// ListJokesPage returns a paginated slice of jokes, ordered by creation time
// descending. Use CountJokes to obtain the total for pagination metadata.
// On DB error, it returns the error.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
// A page past the last record yields an empty (non-nil) slice.
func ListJokesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Joke, error) {
	var out []domain.Joke
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Joke{}
	}
	return out, nil
}

// SaveJoke persists all fields of an already-loaded joke. It is used by the
// update path after the service layer has applied field changes and bumped
// UpdatedAt. A unique-index violation on text surfaces as a raw DB error.
func SaveJoke(ctx context.Context, db *gorm.DB, j *domain.Joke) error {
	return db.WithContext(ctx).Save(j).Error
}

// DeleteJoke removes the joke identified by id. Deleting an id that no
// longer exists is treated as success; concurrent deletes race benignly at
// the store layer. On DB error, the raw error is returned.
func DeleteJoke(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Joke{}).Error
}
