package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurgeInterval как часто удаляются просроченные сессии
const SessionPurgeInterval = time.Hour

// SessionPurger удаляет просроченные сессии
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sessions SessionPurger
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sessions SessionPurger, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		interval: SessionPurgeInterval,
		logger:   logger,
	}
}

// Run выполняет фоновые задачи и блокируется до отмены ctx
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))
	s.runSessionPurgeTask(ctx)
	return nil
}

// runSessionPurgeTask периодически удаляет просроченные сессии
func (s *Scheduler) runSessionPurgeTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.purgeSessions(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeSessions(ctx)
		case <-ctx.Done():
			s.logger.Info("Session purge task cancelled")
			return
		}
	}
}

// purgeSessions удаляет сессии с истёкшим токеном
func (s *Scheduler) purgeSessions(ctx context.Context) {
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("Failed to purge expired sessions", zap.Error(err))
		return
	}

	if n > 0 {
		s.logger.Info("Expired sessions purged", zap.Int64("count", n))
	}
}
