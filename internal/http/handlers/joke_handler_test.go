package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/repo"
	"github.com/tbourn/go-jokes-backend/internal/services"
)

// ---- wiring helpers ----

// realRepo adapts repo free functions for the real JokeService used in tests.
type realRepo struct{}

func (realRepo) CreateJoke(ctx context.Context, db *gorm.DB, text string, sourceID *string) (*domain.Joke, error) {
	return repo.CreateJoke(ctx, db, text, sourceID)
}
func (realRepo) GetJoke(ctx context.Context, db *gorm.DB, id string) (*domain.Joke, error) {
	return repo.GetJoke(ctx, db, id)
}
func (realRepo) FindJokeByText(ctx context.Context, db *gorm.DB, text string) (*domain.Joke, error) {
	return repo.FindJokeByText(ctx, db, text)
}
func (realRepo) ListJokes(ctx context.Context, db *gorm.DB) ([]domain.Joke, error) {
	return repo.ListJokes(ctx, db)
}
func (realRepo) CountJokes(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountJokes(ctx, db)
}
func (realRepo) ListJokesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Joke, error) {
	return repo.ListJokesPage(ctx, db, offset, limit)
}
func (realRepo) SaveJoke(ctx context.Context, db *gorm.DB, j *domain.Joke) error {
	return repo.SaveJoke(ctx, db, j)
}
func (realRepo) DeleteJoke(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteJoke(ctx, db, id)
}

type stubSyncSvc struct {
	fn func(ctx context.Context) (*domain.Joke, error)
}

func (s stubSyncSvc) FetchAndStore(ctx context.Context) (*domain.Joke, error) {
	return s.fn(ctx)
}

func newTestRouter(t *testing.T, syncSvc SyncService) (*gin.Engine, *services.JokeService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:jokehdl_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Joke{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	svc := services.NewJokeService(db, realRepo{})
	if syncSvc == nil {
		syncSvc = stubSyncSvc{fn: func(context.Context) (*domain.Joke, error) { return nil, nil }}
	}
	h := New(svc, syncSvc)

	r := gin.New()
	r.POST("/jokes", h.CreateJoke)
	r.GET("/jokes", h.ListJokes)
	r.GET("/jokes/:id", h.GetJoke)
	r.PUT("/jokes/:id", h.UpdateJoke)
	r.DELETE("/jokes/:id", h.DeleteJoke)
	r.POST("/jokes/sync", h.SyncJoke)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestCreateJoke_Created(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/jokes", `{"text":"knock knock","source_id":"ext-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var j domain.Joke
	if err := json.Unmarshal(w.Body.Bytes(), &j); err != nil {
		t.Fatalf("json: %v", err)
	}
	if j.ID == "" || j.Text != "knock knock" {
		t.Fatalf("unexpected body: %+v", j)
	}
	if j.SourceID == nil || *j.SourceID != "ext-1" {
		t.Fatalf("source_id missing: %+v", j)
	}
	if j.UpdatedAt != nil {
		t.Fatalf("updated_at must be null on create")
	}
}

func TestCreateJoke_MissingText(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/jokes", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("expected code %q, got %q", ErrCodeBadRequest, er.Code)
	}
}

func TestCreateJoke_Duplicate(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	if w := doJSON(t, r, http.MethodPost, "/jokes", `{"text":"twice"}`); w.Code != http.StatusCreated {
		t.Fatalf("seed create: %d", w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/jokes", `{"text":"twice"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeDuplicate {
		t.Fatalf("expected code %q, got %q", ErrCodeDuplicate, er.Code)
	}
}

func TestListJokes_EmptyStoreReturnsArray(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	// An empty store still serializes as a JSON array, never null.
	w := doJSON(t, r, http.MethodGet, "/jokes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("expected [] body on empty store, got %q", got)
	}

	// So does a page past the last record.
	if w := doJSON(t, r, http.MethodPost, "/jokes", `{"text":"only one"}`); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/jokes?page=5&page_size=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("expected [] body for out-of-range page, got %q", got)
	}
}

func TestListJokes_AllAndPaged(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for i := 0; i < 3; i++ {
		if w := doJSON(t, r, http.MethodPost, "/jokes", fmt.Sprintf(`{"text":"j%d"}`, i)); w.Code != http.StatusCreated {
			t.Fatalf("seed %d: %d", i, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/jokes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var all []domain.Joke
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jokes, got %d", len(all))
	}
	if got := w.Header().Get("X-Total-Count"); got != "3" {
		t.Fatalf("expected X-Total-Count 3, got %q", got)
	}

	w = doJSON(t, r, http.MethodGet, "/jokes?page=1&page_size=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var page []domain.Joke
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if got := w.Header().Get("X-Total-Count"); got != "3" {
		t.Fatalf("expected X-Total-Count 3 on paged list, got %q", got)
	}
}

func TestGetJoke_StatusMatrix(t *testing.T) {
	r, svc := newTestRouter(t, nil)

	created, err := svc.Create(context.Background(), "findable", nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		id       string
		wantCode int
		wantErr  string
	}{
		{"ok", created.ID, http.StatusOK, ""},
		{"malformed id", "zzz", http.StatusBadRequest, ErrCodeInvalidID},
		{"absent", uuid.NewString(), http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/jokes/"+tc.id, "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			if tc.wantErr != "" {
				var er ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
					t.Fatalf("json: %v", err)
				}
				if er.Code != tc.wantErr {
					t.Fatalf("expected code %q, got %q", tc.wantErr, er.Code)
				}
			}
		})
	}
}

func TestUpdateJoke_TextChangeAndDuplicate(t *testing.T) {
	r, svc := newTestRouter(t, nil)

	a, err := svc.Create(context.Background(), "alpha", nil)
	if err != nil {
		t.Fatalf("seed alpha: %v", err)
	}
	if _, err := svc.Create(context.Background(), "beta", nil); err != nil {
		t.Fatalf("seed beta: %v", err)
	}

	// Successful text change.
	w := doJSON(t, r, http.MethodPut, "/jokes/"+a.ID, `{"text":"gamma"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated domain.Joke
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json: %v", err)
	}
	if updated.Text != "gamma" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	// Duplicate of another record.
	w = doJSON(t, r, http.MethodPut, "/jokes/"+a.ID, `{"text":"beta"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate text, got %d", w.Code)
	}

	// Empty payload is a no-op 200.
	w = doJSON(t, r, http.MethodPut, "/jokes/"+a.ID, `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty update, got %d", w.Code)
	}

	// Unknown id and malformed id behave like GET.
	if w := doJSON(t, r, http.MethodPut, "/jokes/"+uuid.NewString(), `{"text":"x"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPut, "/jokes/nope", `{"text":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteJoke_StatusMatrix(t *testing.T) {
	r, svc := newTestRouter(t, nil)

	j, err := svc.Create(context.Background(), "deletable", nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if w := doJSON(t, r, http.MethodDelete, "/jokes/"+j.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/jokes/"+j.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/jokes/???", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func TestSyncJoke_Mappings(t *testing.T) {
	tests := []struct {
		name     string
		syncErr  error
		wantCode int
		wantErr  string
	}{
		{"provider down", services.ErrExternalAPI, http.StatusServiceUnavailable, ErrCodeExternalAPI},
		{"duplicate", services.ErrDuplicateJoke, http.StatusBadRequest, ErrCodeDuplicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestRouter(t, stubSyncSvc{fn: func(context.Context) (*domain.Joke, error) {
				return nil, tc.syncErr
			}})

			w := doJSON(t, r, http.MethodPost, "/jokes/sync", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.wantErr {
				t.Fatalf("expected code %q, got %q", tc.wantErr, er.Code)
			}
		})
	}
}

func TestSyncJoke_Success(t *testing.T) {
	src := "prov-1"
	r, _ := newTestRouter(t, stubSyncSvc{fn: func(context.Context) (*domain.Joke, error) {
		return &domain.Joke{ID: uuid.NewString(), Text: "fresh", SourceID: &src}, nil
	}})

	w := doJSON(t, r, http.MethodPost, "/jokes/sync", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var j domain.Joke
	if err := json.Unmarshal(w.Body.Bytes(), &j); err != nil {
		t.Fatalf("json: %v", err)
	}
	if j.Text != "fresh" || j.SourceID == nil || *j.SourceID != "prov-1" {
		t.Fatalf("unexpected body: %+v", j)
	}
}
