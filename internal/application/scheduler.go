package application

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler repeats the pipeline on a fixed interval for watch mode.
// Params can be swapped at runtime when the config file changes, and a
// pause file on disk skips ticks without stopping the process.
type Scheduler struct {
	log       *zap.Logger
	use       *ReportUseCase
	every     time.Duration
	pauseFile string

	mu     sync.RWMutex
	params Params
}

func NewScheduler(l *zap.Logger, u *ReportUseCase, p Params, every time.Duration, pauseFile string) *Scheduler {
	return &Scheduler{
		log: l, use: u, params: p, every: every, pauseFile: pauseFile,
	}
}

func (s *Scheduler) UpdateParams(p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	s.log.Info("config reloaded", zap.String("dag", p.DagID))
}

func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.isPaused() {
		s.log.Debug("paused: skipping run")
		return
	}

	s.mu.RLock()
	p := s.params
	s.mu.RUnlock()

	res := s.use.Run(ctx, p)
	if !res.OK {
		s.log.Warn("scheduled run failed",
			zap.String("stage", string(res.FailedStage)),
			zap.String("cause", res.Cause))
	}
}

func (s *Scheduler) isPaused() bool {
	if s.pauseFile == "" {
		return false
	}
	_, err := os.Stat(s.pauseFile)
	return err == nil
}
