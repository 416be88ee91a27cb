package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// Scheduler drives the registered jobs on cron schedules and exposes them for
// operational force-runs. Overlapping runs of the same job are tolerated
// because every job is idempotent by construction.
type Scheduler struct {
	cron      *cron.Cron
	jobs      map[string]Job
	mu        sync.Mutex
	isRunning bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]Job),
	}
}

// Register adds a job with its cron schedule (standard 5-field spec).
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("register job %q: %w", job.Name(), err)
	}
	s.jobs[job.Name()] = job
	log.Infof("[Scheduler] registered job %q with schedule %q", job.Name(), spec)
	return nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	log.Infof("[Scheduler] started with %d jobs", len(s.jobs))
}

// Stop halts the cron loop; running jobs finish their current invocation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.cron.Stop()
	s.isRunning = false
	log.Info("[Scheduler] stopped")
}

// RunNow force-runs a registered job by name, for operational control.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.runJob(job)
	return nil
}

// Names lists the registered job names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) runJob(job Job) {
	log.Infof("[Scheduler] running job %q", job.Name())
	if err := job.Run(context.Background()); err != nil {
		log.Errorf("[Scheduler] job %q failed: %v", job.Name(), err)
		return
	}
	log.Infof("[Scheduler] job %q completed", job.Name())
}
