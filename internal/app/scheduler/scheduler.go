// Package scheduler runs the periodic plan-cache sweep.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler is satisfied by *subscriptions.Service.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	rec     Reconciler
	timeout time.Duration
}

func New(rec Reconciler) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		rec:     rec,
		timeout: 10 * time.Minute,
	}
}

// Start schedules the sweep on spec (standard cron syntax or descriptors
// like "@hourly"). An empty spec leaves the scheduler idle.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		log.Println("[Scheduler] plan reconcile disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("[Scheduler] plan reconcile running on %q", spec)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	fixed, err := s.rec.ReconcileAll(ctx)
	if err != nil {
		log.Printf("[Scheduler] reconcile failed after %d fixes: %v", fixed, err)
		return
	}
	log.Printf("[Scheduler] reconcile done: %d plan caches repaired in %s", fixed, time.Since(start).Round(time.Millisecond))
}
