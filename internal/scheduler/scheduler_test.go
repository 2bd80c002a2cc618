package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	job := &Job{
		Name:     "count",
		Interval: 20 * time.Millisecond,
		Run:      func(ctx context.Context) { runs.Add(1) },
	}

	s := NewScheduler(job)
	go s.Start(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestOverlappingTicksCoalesce(t *testing.T) {
	var started atomic.Int32
	block := make(chan struct{})

	job := &Job{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) {
			started.Add(1)
			<-block
		},
	}

	s := NewScheduler(job)
	go s.Start(context.Background())

	// Let several ticks elapse while the first run is stuck.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load(), "ticks during a running job must be skipped")

	close(block)
	assert.Eventually(t, func() bool { return started.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	var finished atomic.Bool
	job := &Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) {
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
		},
	}

	s := NewScheduler(job)
	go s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	s.Stop()
	assert.True(t, finished.Load(), "Stop must wait for the in-flight run")
}

func TestIndependentJobs(t *testing.T) {
	var a, b atomic.Int32
	s := NewScheduler(
		&Job{Name: "a", Interval: 15 * time.Millisecond, Run: func(ctx context.Context) { a.Add(1) }},
		&Job{Name: "b", Interval: 15 * time.Millisecond, Run: func(ctx context.Context) { b.Add(1) }},
	)
	go s.Start(context.Background())

	assert.Eventually(t, func() bool { return a.Load() >= 2 && b.Load() >= 2 },
		time.Second, 5*time.Millisecond)
	s.Stop()
}
