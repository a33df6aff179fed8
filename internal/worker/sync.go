// Package worker implements the periodic joke sync loop: a single
// long-lived background task that pulls one joke from the external provider
// on a fixed wall-clock cadence, independent of HTTP request traffic.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/services"
)

var (
	// syncCycles counts completed sync cycles by outcome.
	syncCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joke_sync_cycles_total",
			Help: "Total number of background sync cycles by outcome.",
		},
		[]string{"outcome"}, // stored | duplicate | external_error | storage_error
	)

	// syncLastSuccess records the unix time of the last stored joke.
	syncLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "joke_sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successfully stored synced joke.",
		},
	)
)

func init() {
	prometheus.MustRegister(syncCycles, syncLastSuccess)
}

// Syncer is the operation driven by the loop, satisfied by
// services.SyncService.
type Syncer interface {
	FetchAndStore(ctx context.Context) (*domain.Joke, error)
}

// SyncWorker drives a Syncer on a fixed interval. Every error raised by a
// cycle, duplicate jokes included, is logged and swallowed at this level:
// one failed cycle never halts subsequent cycles, and nothing unwinds past
// Run. The loop has no backoff and is not triggered by external events; it
// ends only when the context is cancelled.
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
	log      zerolog.Logger
}

// NewSyncWorker constructs a SyncWorker. A non-positive interval defaults to
// one hour.
func NewSyncWorker(s Syncer, interval time.Duration, log zerolog.Logger) *SyncWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SyncWorker{syncer: s, interval: interval, log: log}
}

// Run blocks, alternating between one sync cycle and one sleep of the
// configured interval, until ctx is cancelled. The first cycle runs
// immediately so a fresh process does not wait a full interval before its
// first joke.
func (w *SyncWorker) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("sync worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("sync worker stopped")
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle performs exactly one fetch-and-store attempt. It is the catch-all
// boundary required by the loop's failure-isolation contract.
func (w *SyncWorker) cycle(ctx context.Context) {
	j, err := w.syncer.FetchAndStore(ctx)
	// A cycle cut short by shutdown is not an outcome worth counting.
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		return
	}
	switch {
	case err == nil:
		syncCycles.WithLabelValues("stored").Inc()
		syncLastSuccess.SetToCurrentTime()
		w.log.Info().Str("joke_id", j.ID).Msg("stored new joke from provider")
	case errors.Is(err, services.ErrDuplicateJoke):
		syncCycles.WithLabelValues("duplicate").Inc()
		w.log.Info().Msg("provider joke already stored, skipping")
	case errors.Is(err, services.ErrExternalAPI):
		syncCycles.WithLabelValues("external_error").Inc()
		w.log.Warn().Err(err).Msg("provider fetch failed")
	default:
		syncCycles.WithLabelValues("storage_error").Inc()
		w.log.Error().Err(err).Msg("sync cycle failed")
	}
}
