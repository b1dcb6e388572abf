package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper calls SweepTimeouts on a fixed interval until ctx is done.
type Sweeper struct {
	dispatcher *Dispatcher
	interval   time.Duration
	log        *zap.Logger
}

func NewSweeper(d *Dispatcher, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{dispatcher: d, interval: interval, log: log}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("timeout sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("timeout sweeper stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	reverted, err := s.dispatcher.SweepTimeouts(ctx)
	if err != nil {
		s.log.Error("sweep timeouts", zap.Error(err))
	}
	if len(reverted) > 0 {
		s.log.Info("jobs returned to waiting", zap.Int("count", len(reverted)))
	}
}
