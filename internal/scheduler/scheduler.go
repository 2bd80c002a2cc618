// Package scheduler provides periodic execution of analysis passes.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)

	inFlight sync.Mutex
	running  bool
}

// Scheduler owns a set of jobs and runs each on its own ticker.
type Scheduler struct {
	jobs    []*Job
	stop    chan struct{}
	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over the given jobs.
func NewScheduler(jobs ...*Job) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches all job loops. This should be called in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, job)
	}
	s.wg.Wait()
}

// Stop signals all job loops to stop and waits for them to finish.
// In-flight runs complete; they are not cancelled.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.stopped
}

func (s *Scheduler) runLoop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	log.Printf("Scheduler job %q started (interval: %v)", job.Name, job.Interval)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.fire(ctx, job)

	for {
		select {
		case <-ticker.C:
			s.fire(ctx, job)
		case <-s.stop:
			log.Printf("Scheduler job %q stopped", job.Name)
			return
		case <-ctx.Done():
			log.Printf("Scheduler job %q context cancelled", job.Name)
			return
		}
	}
}

// fire runs a job unless its previous run is still going. Overlapping ticks
// coalesce: at most one instance of a job runs at a time and missed ticks
// are not queued.
func (s *Scheduler) fire(ctx context.Context, job *Job) {
	job.inFlight.Lock()
	if job.running {
		job.inFlight.Unlock()
		log.Printf("Scheduler job %q still running, skipping tick", job.Name)
		return
	}
	job.running = true
	job.inFlight.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			job.inFlight.Lock()
			job.running = false
			job.inFlight.Unlock()
		}()
		job.Run(ctx)
	}()
}
