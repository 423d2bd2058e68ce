// Package scheduler repeats sweep passes on a cron schedule. Passes never
// overlap: a tick that fires while the previous pass is still running is
// skipped.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc performs one pass
type RunFunc func(ctx context.Context) error

// Scheduler runs a RunFunc on a cron schedule
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	run       RunFunc
	entry     cron.EntryID
	scheduled bool
	ctx       context.Context

	passes   int
	failures int
}

// New creates a scheduler for run
func New(run RunFunc) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		run: run,
		ctx: context.Background(),
	}
}

// Schedule sets the cron spec, replacing any previous one. The spec is a
// standard 5-field cron expression or a descriptor such as "@every 15m".
func (s *Scheduler) Schedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, s.pass)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	if s.scheduled {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.scheduled = true
	return nil
}

// Start runs passes until ctx is canceled. With runNow the first pass runs
// immediately instead of waiting for the first tick. Start returns once ctx
// is done and any in-flight pass has finished.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	s.mu.Lock()
	if !s.scheduled {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: no schedule set")
	}
	s.ctx = ctx
	s.mu.Unlock()

	if runNow {
		s.pass()
	}

	s.cron.Start()
	log.Printf("scheduler: started, next pass at %s", s.Next().Format(time.RFC3339))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Printf("scheduler: stopped after %d pass(es)", s.passCount())
	return nil
}

// Next returns the time of the next scheduled pass, or the zero time if the
// scheduler is not running
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron.Entry(s.entry).Next
}

// Stats returns how many passes ran and how many of them failed
func (s *Scheduler) Stats() (passes, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes, s.failures
}

func (s *Scheduler) passCount() int {
	passes, _ := s.Stats()
	return passes
}

// pass runs once and logs failures; a failed pass does not stop the schedule
func (s *Scheduler) pass() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.run(ctx)

	s.mu.Lock()
	s.passes++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("scheduler: pass failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
	}
}
