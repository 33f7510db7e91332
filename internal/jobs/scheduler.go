package jobs

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
)

// Scheduler owns the background sweeps: the nightly metrics lock, session
// expiry, and audit retention pruning.
type Scheduler struct {
	cron       *cron.Cron
	repository *repository.Repository
	cutoff     domain.LockCutoff
}

func NewScheduler(repo *repository.Repository, cutoff domain.LockCutoff) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cutoff.Location))
	return &Scheduler{
		cron:       c,
		repository: repo,
		cutoff:     cutoff,
	}
}

func (s *Scheduler) Start() error {
	// just after midnight, local to the metrics timezone
	if _, err := s.cron.AddFunc("0 1 0 * * *", s.lockPastMetrics); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */15 * * * *", s.expireSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 30 2 * * *", s.pruneAuditLogs); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight jobs to finish, up to a short grace period.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// lockPastMetrics is the safety net behind the time-of-day cutoff: any row
// from a previous day that is somehow still unlocked gets locked here.
func (s *Scheduler) lockPastMetrics() {
	now := time.Now().In(s.cutoff.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cutoff.Location)

	locked, err := s.repository.LockMetricsBefore(today)
	if err != nil {
		slog.Error("metrics lock sweep failed", "error", err)
		return
	}
	if locked > 0 {
		slog.Info("locked past metrics", "rows", locked)
	}
}

func (s *Scheduler) expireSessions() {
	expired, err := s.repository.ExpireStaleSessions()
	if err != nil {
		slog.Error("session expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		slog.Info("expired stale sessions", "rows", expired)
	}
}

func (s *Scheduler) pruneAuditLogs() {
	pruned, err := s.repository.PruneExpiredAuditLogs()
	if err != nil {
		slog.Error("audit retention prune failed", "error", err)
		return
	}
	if pruned > 0 {
		slog.Info("pruned expired audit logs", "rows", pruned)
	}
}
