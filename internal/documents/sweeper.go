package documents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically removes staged uploads that were never submitted.
type Sweeper struct {
	cron     *cron.Cron
	provider *StorageProvider
	ttl      time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
}

func NewSweeper(provider *StorageProvider, ttl time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		provider: provider,
		ttl:      ttl,
		logger:   logger,
	}
}

// Start schedules the sweep. schedule is a standard cron spec or descriptor
// such as "@hourly".
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.logger.Info("Starting staged upload sweeper",
		zap.String("schedule", schedule),
		zap.Duration("ttl", s.ttl))
	s.cron.Start()
	s.running = true
	return nil
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.logger.Info("Stopping staged upload sweeper")
	<-s.cron.Stop().Done()
	s.running = false
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	removed, err := s.provider.Sweep(ctx, s.ttl)
	if err != nil {
		s.logger.Error("Staged upload sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("Swept stale uploads", zap.Int("removed", removed))
	}
	return removed
}
