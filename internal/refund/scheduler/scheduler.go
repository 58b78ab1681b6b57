package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"travyy/internal/logger"
)

// JobFunc does one unit of periodic work and reports how many records it touched.
type JobFunc func(ctx context.Context) (int, error)

type job struct {
	name    string
	fn      JobFunc
	running atomic.Bool
}

// Scheduler runs named jobs on a fixed interval. A failing or panicking job
// is logged and never stops the loop; a job still running from the previous
// tick is skipped.
type Scheduler struct {
	jobs       []*job
	interval   time.Duration
	runTimeout time.Duration
	log        *logger.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func New(interval, runTimeout time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	return &Scheduler{
		interval:   interval,
		runTimeout: runTimeout,
		log:        log,
		stopCh:     make(chan struct{}),
	}
}

// Add registers a job. Call before Start.
func (s *Scheduler) Add(name string, fn JobFunc) {
	s.jobs = append(s.jobs, &job{name: name, fn: fn})
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.LogProcess("SCHEDULER", fmt.Sprintf("started with %d jobs, interval %s", len(s.jobs), s.interval))
}

// Stop signals the loop to exit and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.log.LogProcess("SCHEDULER", "stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick launches every job that is not already running.
func (s *Scheduler) Tick() {
	for _, j := range s.jobs {
		if !j.running.CompareAndSwap(false, true) {
			s.log.Warn("SCHEDULER", fmt.Sprintf("%s still running, skipping tick", j.name))
			continue
		}
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			defer j.running.Store(false)
			s.runJob(j)
		}(j)
	}
}

// RunNow executes every job synchronously, honoring the overlap guard.
func (s *Scheduler) RunNow() {
	for _, j := range s.jobs {
		if !j.running.CompareAndSwap(false, true) {
			continue
		}
		s.runJob(j)
		j.running.Store(false)
	}
}

func (s *Scheduler) runJob(j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("SCHEDULER", fmt.Sprintf("%s panicked: %v", j.name, r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	start := time.Now()
	count, err := j.fn(ctx)
	if err != nil {
		s.log.Error("SCHEDULER", fmt.Sprintf("%s failed: %v", j.name, err))
		return
	}
	if count > 0 {
		s.log.Info("SCHEDULER", fmt.Sprintf("%s processed %d records in %s", j.name, count, time.Since(start).Round(time.Millisecond)))
	} else {
		s.log.Debug("SCHEDULER", fmt.Sprintf("%s: nothing to do", j.name))
	}
}
