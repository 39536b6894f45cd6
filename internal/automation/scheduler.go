// Package automation runs tenant-configured AI jobs on their schedules and
// keeps the run ledger.
package automation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumenops/aicore/internal/analytics"
	"github.com/lumenops/aicore/internal/gateway"
)

// Runner executes one automation through the external gateway.
type Runner interface {
	RunAutomation(ctx context.Context, automationType string, config map[string]any, tenantID string) (*gateway.AutomationResult, error)
}

// UsageTracker records tokens consumed by completed runs. Best-effort.
type UsageTracker interface {
	TrackUsage(ctx context.Context, tenantID string, tokens int64, userID, model, kind string)
}

type JobResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // completed | failed
}

type SweepResult struct {
	Count   int         `json:"count"`
	Results []JobResult `json:"results"`
}

type Scheduler struct {
	repo       *Repo
	ledger     *Ledger
	runner     Runner
	usage      UsageTracker
	batchSize  int
	staleAfter time.Duration
	log        zerolog.Logger
}

func NewScheduler(repo *Repo, ledger *Ledger, runner Runner, usage UsageTracker, batchSize int, staleAfter time.Duration, log zerolog.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 5
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &Scheduler{
		repo:       repo,
		ledger:     ledger,
		runner:     runner,
		usage:      usage,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		log:        log,
	}
}

// Sweep executes every due automation in bounded-concurrency batches. Batches
// run sequentially, jobs within a batch in parallel, and one job's failure
// never aborts its siblings. Each job's schedule is advanced whatever its
// outcome; a persistently failing automation simply waits for its next slot.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	if n, err := s.ledger.ReclaimStale(ctx, now.Add(-s.staleAfter)); err != nil {
		s.log.Warn().Err(err).Msg("stale run reclaim failed")
	} else if n > 0 {
		s.log.Info().Int64("reclaimed", n).Msg("stale runs reclaimed")
	}

	due, err := s.repo.Due(ctx, now)
	if err != nil {
		return nil, err
	}

	results := make([]JobResult, len(due))
	for start := 0; start < len(due); start += s.batchSize {
		end := min(start+s.batchSize, len(due))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = s.runOne(ctx, due[idx], now)
			}(i)
		}
		wg.Wait()
	}

	return &SweepResult{Count: len(due), Results: results}, nil
}

func (s *Scheduler) runOne(ctx context.Context, a Automation, now time.Time) JobResult {
	run, err := s.ledger.Start(ctx, a.ID, a.TenantID)
	if err != nil {
		// no audit trail, no execution
		s.log.Error().Err(err).Str("automation_id", a.ID).Msg("run insert failed")
		s.advance(ctx, a, now)
		return JobResult{ID: a.ID, Status: string(RunFailed)}
	}

	res, err := s.runner.RunAutomation(ctx, a.Type, a.Config, a.TenantID)
	if err != nil {
		if ferr := s.ledger.Fail(ctx, run.ID, err.Error()); ferr != nil {
			s.log.Error().Err(ferr).Str("run_id", run.ID).Msg("run fail-mark failed")
		}
		s.log.Warn().Err(err).
			Str("automation_id", a.ID).
			Str("tenant_id", a.TenantID).
			Msg("automation run failed")
		s.advance(ctx, a, now)
		return JobResult{ID: a.ID, Status: string(RunFailed)}
	}

	if cerr := s.ledger.Complete(ctx, run.ID, res.Result, res.TokensUsed, res.ItemsProcessed); cerr != nil {
		s.log.Error().Err(cerr).Str("run_id", run.ID).Msg("run complete-mark failed")
	}

	if res.TokensUsed > 0 && s.usage != nil {
		s.usage.TrackUsage(ctx, a.TenantID, int64(res.TokensUsed), analytics.SystemUserID, res.Model, "automation")
	}

	s.advance(ctx, a, now)
	return JobResult{ID: a.ID, Status: string(RunCompleted)}
}

func (s *Scheduler) advance(ctx context.Context, a Automation, now time.Time) {
	var nextRun *time.Time
	if next, ok := NextRunAt(a.ScheduleType, a.ScheduleConfig, now); ok {
		nextRun = &next
	}
	if err := s.repo.UpdateSchedule(ctx, a.ID, now, nextRun); err != nil {
		s.log.Error().Err(err).Str("automation_id", a.ID).Msg("schedule update failed")
	}
}
