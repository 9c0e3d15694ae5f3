package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

// HousekeepingService periodically prunes dead rows: revocation entries whose
// token has naturally expired (an expired token is rejected before the
// revocation lookup, so the entry carries no information) and expired
// session-index rows. Pruning never runs inline with a verification.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Leeway mirrors the clock-skew allowance verifiers apply to expiry.
	// An entry may only be pruned once every verifier rejects its token,
	// which happens at exp+leeway, not exp. Zero means jwtx.DefaultLeeway.
	Leeway time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval and clock-skew leeway. If interval is 0 or negative, defaults to
// 15 minutes.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, leeway time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Leeway:   leeway,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress prune has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Prune immediately on startup
	s.prune()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.stopCh:
			return
		}
	}
}

// prune deletes expired rows. Each table is independent; a failure in one
// won't stop the others.
//
// The cutoff trails now by the leeway: a token with exp in the last leeway
// seconds still verifies, and deleting its revocation entry would let it
// verify again.
func (s *HousekeepingService) prune() {
	ctx := context.Background()

	leeway := s.Leeway
	if leeway <= 0 {
		leeway = jwtx.DefaultLeeway
	}
	cutoff := time.Now().Add(-leeway)

	revoked, err := s.Store.Revocations().DeleteExpired(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune expired revocations", "error", err)
	}

	sessions, err := s.Store.DependentSessions().DeleteExpired(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune expired session index rows", "error", err)
	}

	s.Logger.Info("housekeeping prune completed",
		"revocations_deleted", revoked,
		"session_rows_deleted", sessions,
	)
}
