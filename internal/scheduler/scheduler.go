// Package scheduler runs the periodic grade report.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSpec fires daily at 21:00 UTC.
const DefaultSpec = "0 21 * * *"

// Job is one scheduled run. Errors are logged and do not stop the schedule.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	spec   string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	job     Job
	entry   cron.EntryID
	running bool
}

// New creates a scheduler firing on the given standard five-field cron spec
// in UTC. An empty spec means DefaultSpec.
func New(spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) SetJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = job
}

// Start registers the job and starts the cron loop. Without a job it logs
// and does nothing.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		log.Warn().Msg("⚠️ report job not set, scheduler stays idle")
		return nil
	}
	if s.running {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, s.RunNow)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.entry = id
	s.running = true
	s.cron.Start()
	log.Info().Str("spec", s.spec).Time("next", s.cron.Entry(id).Next).Msg("📅 scheduler started")
	return nil
}

// RunNow executes the job once on the calling goroutine.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return
	}
	started := time.Now()
	log.Info().Str("spec", s.spec).Msg("🕘 running scheduled report")
	if err := job(s.ctx); err != nil {
		log.Error().Err(err).Msg("❌ scheduled report failed")
		return
	}
	log.Info().Dur("took", time.Since(started)).Msg("✅ scheduled report done")
}

// Stop waits for a running job and cancels its context.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	log.Info().Msg("📅 scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next returns the next planned run, zero when not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}
