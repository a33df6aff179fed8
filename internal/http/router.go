// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-jokes-backend/internal/config"
	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/http/handlers"
	"github.com/tbourn/go-jokes-backend/internal/http/middleware"
	"github.com/tbourn/go-jokes-backend/internal/repo"
	"github.com/tbourn/go-jokes-backend/internal/services"
)

// jokeRepoShim adapts the repository free functions to the services.JokeRepo
// interface expected by the JokeService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type jokeRepoShim struct{}

// CreateJoke proxies repo.CreateJoke.
func (jokeRepoShim) CreateJoke(ctx context.Context, db *gorm.DB, text string, sourceID *string) (*domain.Joke, error) {
	return repo.CreateJoke(ctx, db, text, sourceID)
}

// GetJoke proxies repo.GetJoke.
func (jokeRepoShim) GetJoke(ctx context.Context, db *gorm.DB, id string) (*domain.Joke, error) {
	return repo.GetJoke(ctx, db, id)
}

// FindJokeByText proxies repo.FindJokeByText.
func (jokeRepoShim) FindJokeByText(ctx context.Context, db *gorm.DB, text string) (*domain.Joke, error) {
	return repo.FindJokeByText(ctx, db, text)
}

// ListJokes proxies repo.ListJokes.
func (jokeRepoShim) ListJokes(ctx context.Context, db *gorm.DB) ([]domain.Joke, error) {
	return repo.ListJokes(ctx, db)
}

// CountJokes proxies repo.CountJokes (pagination support).
func (jokeRepoShim) CountJokes(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountJokes(ctx, db)
}

// ListJokesPage proxies repo.ListJokesPage (pagination support).
func (jokeRepoShim) ListJokesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Joke, error) {
	return repo.ListJokesPage(ctx, db, offset, limit)
}

// SaveJoke proxies repo.SaveJoke.
func (jokeRepoShim) SaveJoke(ctx context.Context, db *gorm.DB, j *domain.Joke) error {
	return repo.SaveJoke(ctx, db, j)
}

// DeleteJoke proxies repo.DeleteJoke.
func (jokeRepoShim) DeleteJoke(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteJoke(ctx, db, id)
}

// NewJokeService builds the JokeService over the repository free functions.
// It is the single construction point shared by the router and the
// entrypoint so both paths hit the same store semantics.
func NewJokeService(db *gorm.DB) *services.JokeService {
	return services.NewJokeService(db, jokeRepoShim{})
}

// NewSyncService builds the external sync client used by both the manual
// sync endpoint and the background worker, sharing one bounded HTTP client.
func NewSyncService(jokes *services.JokeService, cfg config.Config) *services.SyncService {
	client := &http.Client{Timeout: cfg.JokesAPITimeout}
	return services.NewSyncService(jokes, client, cfg.JokesAPIURL)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under the configured base path.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Rate limiter (per client IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, syncSvc handlers.SyncService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress JSON responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health and welcome
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Dad Jokes API!"})
	})

	// Swagger UI (off by default; serves the OpenAPI document generated at build time)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	jokeSvc := NewJokeService(db)
	h := handlers.New(jokeSvc, syncSvc)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		api.POST("/jokes", h.CreateJoke)
		api.GET("/jokes", h.ListJokes)
		api.GET("/jokes/:id", h.GetJoke)
		api.PUT("/jokes/:id", h.UpdateJoke)
		api.DELETE("/jokes/:id", h.DeleteJoke)
		api.POST("/jokes/sync", h.SyncJoke)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
