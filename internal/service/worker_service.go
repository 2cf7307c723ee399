package service

import (
	"context"
	"time"

	"hospital-portal/internal/repository"

	"github.com/rs/zerolog"
)

// WorkerService runs periodic housekeeping next to the HTTP server
type WorkerService struct {
	store    repository.Store
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewWorkerService(store repository.Store, interval time.Duration, log zerolog.Logger) *WorkerService {
	return &WorkerService{
		store:    store,
		interval: interval,
		log:      log.With().Str("component", "worker").Logger(),
		now:      time.Now,
	}
}

// Start sweeps stale refresh tokens every interval until ctx is cancelled
func (w *WorkerService) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("background worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("background worker stopped")
			return
		case <-ticker.C:
			w.SweepRefreshTokens(ctx)
		}
	}
}

// SweepRefreshTokens deletes revoked and expired refresh tokens
func (w *WorkerService) SweepRefreshTokens(ctx context.Context) int64 {
	removed, err := w.store.Users().DeleteStaleRefreshTokens(ctx, w.now())
	if err != nil {
		w.log.Error().Err(err).Msg("failed to sweep refresh tokens")
		return 0
	}
	if removed > 0 {
		w.log.Debug().Int64("removed", removed).Msg("swept refresh tokens")
	}
	return removed
}
