package worker

// Periodically re-enqueues closure_report jobs for recently closed sessions
// whose Z-report file is missing, e.g. because Redis was down at close time.
// "Recently" means closed within sweepWindow; the sweeper pages back through
// history until it passes that window or hits sweepMaxPages.
// Skips ticks while the storage breaker is open.

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"mypostelma/internal/dto"
	"mypostelma/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sweepTickInterval = time.Minute
	sweepBatchSize    = 50
	// sweepGrace leaves time for the normal job to land before a session
	// counts as missing its report.
	sweepGrace = 2 * time.Minute
	// Sessions closed longer ago than sweepWindow are left alone.
	sweepWindow   = 24 * time.Hour
	sweepMaxPages = 20
)

// ClosedSessionLister pages through session history, newest first.
type ClosedSessionLister interface {
	History(ctx context.Context, q dto.SessionHistoryQuery) (*dto.SessionListResponse, error)
}

// ClosureReportQueue accepts closure_report jobs.
type ClosureReportQueue interface {
	EnqueueClosureReport(ctx context.Context, sessionID uuid.UUID) error
}

// ReportSweeperConfig holds all dependencies for the sweeper goroutine.
type ReportSweeperConfig struct {
	Sessions    ClosedSessionLister
	Queue       ClosureReportQueue
	CB          *infra.CircuitBreaker // optional
	StoragePath string
	Now         func() time.Time // optional
}

// StartReportSweeper ticks every minute until ctx is cancelled.
func StartReportSweeper(ctx context.Context, cfg ReportSweeperConfig) {
	go func() {
		ticker := time.NewTicker(sweepTickInterval)
		defer ticker.Stop()

		log.Info().Msg("report_sweeper: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("report_sweeper: shutting down")
				return
			case <-ticker.C:
				sweepMissingReports(ctx, cfg)
			}
		}
	}()
}

// sweepMissingReports returns how many jobs it enqueued.
func sweepMissingReports(ctx context.Context, cfg ReportSweeperConfig) int {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("report_sweeper: storage breaker is open, skipping tick")
		return 0
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	cutoff := now().Add(-sweepGrace)
	windowStart := now().Add(-sweepWindow)
	enqueued := 0
	for p := 1; p <= sweepMaxPages; p++ {
		page, err := cfg.Sessions.History(ctx, dto.SessionHistoryQuery{Status: "closed", Page: p, Limit: sweepBatchSize})
		if err != nil {
			log.Error().Err(err).Int("page", p).Msg("report_sweeper: failed to list closed sessions")
			break
		}
		pastWindow := false
		for _, s := range page.Data {
			if s.ClosedAt == nil || s.ClosedAt.After(cutoff) {
				continue
			}
			if s.ClosedAt.Before(windowStart) {
				pastWindow = true
				continue
			}
			if _, err := os.Stat(filepath.Join(cfg.StoragePath, infra.ClosureReportFileName(s.ID))); err == nil {
				continue
			}
			id, err := uuid.Parse(s.ID)
			if err != nil {
				continue
			}
			if err := cfg.Queue.EnqueueClosureReport(ctx, id); err != nil {
				log.Warn().Err(err).Str("session_id", s.ID).Msg("report_sweeper: enqueue failed")
				return enqueued
			}
			enqueued++
		}
		if pastWindow || len(page.Data) < sweepBatchSize {
			break
		}
	}
	if enqueued > 0 {
		log.Info().Int("count", enqueued).Msg("report_sweeper: re-enqueued missing closure reports")
	}
	return enqueued
}
