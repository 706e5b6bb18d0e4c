// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file runs the message retention sweeper: a background
// loop that hard-deletes messages older than the retention window. Reads are
// already cutoff-filtered (see ListMessages), so the sweeper only reclaims
// storage; it is not required for correctness of history queries.
package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RetentionSweeper periodically deletes expired message rows.
type RetentionSweeper struct {
	DB        *gorm.DB
	Retention time.Duration
	Interval  time.Duration

	// Now is the clock used to compute the cutoff. Defaults to time.Now;
	// tests inject a fixed clock to exercise the retention boundary.
	Now func() time.Time
}

// NewRetentionSweeper constructs a sweeper with the given retention window,
// sweeping at interval. Non-positive intervals default to one hour.
func NewRetentionSweeper(db *gorm.DB, retention, interval time.Duration) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{DB: db, Retention: retention, Interval: interval, Now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// Intended to be started as a goroutine from main.
func (s *RetentionSweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

// Sweep performs a single expiry pass and returns the number of rows removed.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().UTC().Add(-s.Retention)
	return DeleteMessagesBefore(ctx, s.DB, cutoff)
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("message retention sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Dur("retention", s.Retention).Msg("expired messages removed")
	}
}
