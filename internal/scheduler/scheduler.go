// Package scheduler runs the periodic background tasks of a session:
// transcript retention and circuit statistics logging.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/circuit"
)

const (
	defaultPruneInterval = 24 * time.Hour
	defaultStatsInterval = time.Hour
)

// Pruner deletes transcript entries older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// StatusSource reports the circuit snapshot.
type StatusSource interface {
	Status() circuit.Status
}

// Scheduler manages periodic background tasks.
type Scheduler struct {
	retention time.Duration
	pruner    Pruner
	status    StatusSource

	pruneInterval time.Duration
	statsInterval time.Duration
	now           func() time.Time
}

// NewScheduler creates a task scheduler. A nil pruner or non-positive
// retention disables transcript pruning; a nil status source disables
// statistics.
func NewScheduler(retentionDays int, pruner Pruner, status StatusSource) *Scheduler {
	return &Scheduler{
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		pruner:        pruner,
		status:        status,
		pruneInterval: defaultPruneInterval,
		statsInterval: defaultStatsInterval,
		now:           time.Now,
	}
}

// Start runs the scheduled tasks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Msg("scheduler started")

	if s.pruner != nil && s.retention > 0 {
		go s.runPruneLoop(ctx)
	}
	if s.status != nil {
		go s.runStatsLoop(ctx)
	}

	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// runPruneLoop prunes once at start and then every prune interval.
func (s *Scheduler) runPruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		s.prune(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	removed, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("transcript pruning failed")
		return
	}
	log.Info().
		Int64("removed", removed).
		Time("cutoff", cutoff).
		Msg("transcript pruned")
}

func (s *Scheduler) runStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStats()
		}
	}
}

func (s *Scheduler) logStats() {
	st := s.status.Status()
	log.Info().
		Str("state", st.State.String()).
		Str("region", st.Region).
		Uint64("packets_in", st.PacketsIn).
		Uint64("packets_out", st.PacketsOut).
		Str("uptime", formatDuration(s.now().Sub(st.StateSince))).
		Msg("circuit statistics")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}
