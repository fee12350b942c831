// Package scheduler runs the recurring background jobs: intraday and
// end-of-day snapshot capture, nightly cache regeneration and intraday
// pruning.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/stockfolio/performance-backend/internal/config"
	"github.com/stockfolio/performance-backend/internal/service"
)

// Scheduler owns the cron runner. Jobs log their outcome and never abort the
// runner; a failed run is retried at the next tick.
type Scheduler struct {
	cron      *cron.Cron
	snapshots *service.SnapshotService
	cache     *service.CacheService
	cfg       config.SchedulerConfig
}

// New creates a Scheduler with the given job dependencies.
func New(snapshots *service.SnapshotService, cache *service.CacheService, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		snapshots: snapshots,
		cache:     cache,
		cfg:       cfg,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.IntradaySpec, s.runIntraday); err != nil {
		return fmt.Errorf("failed to schedule intraday job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.EndOfDaySpec, s.runEndOfDay); err != nil {
		return fmt.Errorf("failed to schedule end-of-day job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.RegenerateSpec, s.runRegenerate); err != nil {
		return fmt.Errorf("failed to schedule regenerate job: %w", err)
	}

	s.cron.Start()
	log.Printf("scheduler: started (intraday %q, end-of-day %q, regenerate %q)",
		s.cfg.IntradaySpec, s.cfg.EndOfDaySpec, s.cfg.RegenerateSpec)
	return nil
}

// Stop stops the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("scheduler: stopped")
}

func (s *Scheduler) runIntraday() {
	report, err := s.snapshots.RunIntraday(context.Background())
	if err != nil {
		log.Printf("scheduler: intraday snapshots failed: %v", err)
		return
	}
	report.Log("intraday snapshots")
}

func (s *Scheduler) runEndOfDay() {
	report, err := s.snapshots.RunEndOfDay(context.Background())
	if err != nil {
		log.Printf("scheduler: end-of-day snapshots failed: %v", err)
		return
	}
	report.Log("end-of-day snapshots")
}

// runRegenerate refreshes the whole result cache, then prunes old intraday
// snapshots while it is at it.
func (s *Scheduler) runRegenerate() {
	ctx := context.Background()

	report, err := s.cache.RegenerateAll(ctx)
	if err != nil {
		log.Printf("scheduler: cache regeneration failed: %v", err)
	} else {
		report.Log("cache regeneration")
	}

	pruned, err := s.snapshots.PruneIntraday(ctx, s.cfg.IntradayKeepDays)
	if err != nil {
		log.Printf("scheduler: intraday prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("scheduler: pruned %d intraday snapshots", pruned)
	}
}
