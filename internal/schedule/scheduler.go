package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

// ErrInvalidSchedule is returned for a job with neither a cron expression nor a positive interval
var ErrInvalidSchedule = errors.New("invalid schedule")

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// RunFunc is the work a job performs on each tick
type RunFunc func(ctx context.Context) error

// normalizeCron prepends "0 " to 5-field expressions so they parse with seconds.
func normalizeCron(expr string) string {
	expr = strings.TrimSpace(expr)
	if len(strings.Fields(expr)) == 5 {
		return "0 " + expr
	}
	return expr
}

// Spec turns an interval or a cron expression into a cron spec string.
// A non-empty expression wins over the interval.
func Spec(interval time.Duration, expr string) (string, error) {
	if strings.TrimSpace(expr) != "" {
		spec := normalizeCron(expr)
		if _, err := parser.Parse(spec); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
		}
		return spec, nil
	}
	if interval <= 0 {
		return "", fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidSchedule, interval)
	}
	return "@every " + interval.String(), nil
}

// Job is one periodic task with its own start/stop handle.
// A tick that fires while the previous run is still going is skipped.
type Job struct {
	Name string
	Spec string

	run    RunFunc
	logger *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
}

// NewJob validates the schedule and returns a stopped job.
func NewJob(name string, interval time.Duration, expr string, run RunFunc, logger *zap.Logger) (*Job, error) {
	spec, err := Spec(interval, expr)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		Name:   name,
		Spec:   spec,
		run:    run,
		logger: logger.With(zap.String("job", name)),
	}, nil
}

// Start begins firing the job on its schedule. Runs receive a context
// derived from ctx that is cancelled by Stop. Starting twice is a no-op.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(j.Spec, func() { j.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule job %s: %w", j.Name, err)
	}
	c.Start()

	j.cron = c
	j.cancel = cancel
	j.logger.Info("Job scheduled", zap.String("spec", j.Spec))
	return nil
}

// Stop halts the schedule, cancels an in-flight run and waits for it to return.
func (j *Job) Stop() {
	j.mu.Lock()
	c, cancel := j.cron, j.cancel
	j.cron, j.cancel = nil, nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	j.logger.Info("Job stopped")
}

// Running reports whether the schedule is active
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cron != nil
}

// RunOnce executes the job now unless a run is already in progress.
// It reports whether the run happened.
func (j *Job) RunOnce(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		j.skipped.Add(1)
		j.logger.Warn("Previous run still in progress, skipping")
		return false
	}
	defer j.running.Store(false)

	start := time.Now()
	j.runs.Add(1)
	if err := j.run(ctx); err != nil {
		j.logger.Error("Job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return true
	}
	j.logger.Info("Job finished", zap.Duration("took", time.Since(start)))
	return true
}

// Stats returns how many runs executed and how many ticks were skipped
func (j *Job) Stats() (runs, skipped int64) {
	return j.runs.Load(), j.skipped.Load()
}

// Runner is the work the scheduler drives
type Runner interface {
	DiscoverAndEmail(ctx context.Context, projectID string, depth int) (string, error)
	ProcessReplies(ctx context.Context) (int, error)
}

// Scheduler owns the discovery and reply jobs
type Scheduler struct {
	Discovery *Job
	Replies   *Job
}

// New builds both jobs from configuration. Discovery runs every project at
// its configured depth and mails the digest; the reply job drains the mailbox.
func New(cfg model.ScheduleConfig, r Runner, logger *zap.Logger) (*Scheduler, error) {
	discovery, err := NewJob("discovery", cfg.DiscoveryInterval, cfg.DiscoveryCron, func(ctx context.Context) error {
		_, err := r.DiscoverAndEmail(ctx, "", 0)
		return err
	}, logger)
	if err != nil {
		return nil, err
	}

	replies, err := NewJob("replies", cfg.ReplyInterval, cfg.ReplyCron, func(ctx context.Context) error {
		_, err := r.ProcessReplies(ctx)
		return err
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Scheduler{Discovery: discovery, Replies: replies}, nil
}

// Start starts both jobs
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Discovery.Start(ctx); err != nil {
		return err
	}
	if err := s.Replies.Start(ctx); err != nil {
		s.Discovery.Stop()
		return err
	}
	return nil
}

// Stop stops both jobs and waits for in-flight runs
func (s *Scheduler) Stop() {
	var wg sync.WaitGroup
	for _, j := range []*Job{s.Discovery, s.Replies} {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			j.Stop()
		}(j)
	}
	wg.Wait()
}
