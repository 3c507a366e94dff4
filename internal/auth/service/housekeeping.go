package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dricommerce/authcore/pkg/clockx"
)

// ExpiredRevocations is the cleanup side of the revocation list.
type ExpiredRevocations interface {
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

// CounterSweeper purges expired attempt counters.
type CounterSweeper interface {
	Sweep() int
}

// HousekeepingService periodically drops expired attempt counters and
// revocation rows. Expiry is always checked on read; this only bounds
// memory and table growth.
type HousekeepingService struct {
	Counters    CounterSweeper
	Revocations ExpiredRevocations // optional
	Clock       clockx.Clock
	Logger      *slog.Logger
	Interval    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(
	counters CounterSweeper,
	revocations ExpiredRevocations,
	clock clockx.Clock,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = clockx.System()
	}

	return &HousekeepingService{
		Counters:    counters,
		Revocations: revocations,
		Clock:       clock,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each step is independent; a failure in one
// won't stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	swept := 0
	if s.Counters != nil {
		swept = s.Counters.Sweep()
	}

	var revoked int64
	if s.Revocations != nil {
		n, err := s.Revocations.DeleteExpiredRevokedTokens(ctx, s.Clock.Now())
		if err != nil {
			s.Logger.Error("failed to delete expired revoked tokens", "error", err)
		}
		revoked = n
	}

	s.Logger.Debug("housekeeping cleanup completed",
		"swept_counters", swept,
		"deleted_revocations", revoked,
	)
}
