// Package jobs runs named background tasks on cron schedules. Each job can be
// started, stopped and triggered on demand independently of the others.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
	ErrJobBusy      = errors.New("job is already executing")
)

// Job is a named task with a standard five-field cron expression.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// JobStatus is the externally visible state of a registered job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Running   bool       `json:"running"`
	Executing bool       `json:"executing"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type entry struct {
	job       Job
	schedule  cron.Schedule
	cron      *cron.Cron
	executing bool
	lastRun   *time.Time
	lastErr   string
}

// Runner owns one cron scheduler per job so each can be toggled alone.
type Runner struct {
	mu      sync.Mutex
	loc     *time.Location
	logger  zerolog.Logger
	jobs    map[string]*entry
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewRunner(loc *time.Location, logger zerolog.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		loc:     loc,
		logger:  logger.With().Str("component", "jobs").Logger(),
		jobs:    make(map[string]*entry),
		baseCtx: ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Register adds a job in the stopped state.
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	sched, err := cron.ParseStandard(job.Spec)
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	r.jobs[job.Name] = &entry{job: job, schedule: sched}
	return nil
}

// Start schedules a registered job. Starting a running job is a no-op.
func (r *Runner) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if e.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(r.loc))
	c.Schedule(e.schedule, cron.FuncJob(func() {
		if e, err := r.claim(name); err == nil {
			r.run(name, e)
		}
	}))
	c.Start()
	e.cron = c
	r.logger.Info().Str("job", name).Str("schedule", e.job.Spec).Msg("job scheduled")
	return nil
}

// Stop unschedules a job. An execution already in flight finishes.
func (r *Runner) Stop(name string) error {
	r.mu.Lock()
	e, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	c := e.cron
	e.cron = nil
	r.mu.Unlock()

	if c != nil {
		c.Stop()
		r.logger.Info().Str("job", name).Msg("job stopped")
	}
	return nil
}

func (r *Runner) StartAll() {
	for _, name := range r.names() {
		_ = r.Start(name)
	}
}

// StopAll unschedules every job, cancels in-flight executions and waits for
// them to return or for ctx to expire.
func (r *Runner) StopAll(ctx context.Context) error {
	for _, name := range r.names() {
		_ = r.Stop(name)
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes a job outside its schedule and waits for the result. The
// execution uses the runner's context, so when ctx ends first RunNow returns
// ctx.Err() and the job carries on until it finishes or StopAll cancels it.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	e, err := r.claim(name)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- r.run(name, e) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		r.logger.Warn().Str("job", name).Msg("caller stopped waiting, job continues")
		return ctx.Err()
	}
}

// Trigger starts a job outside its schedule without waiting for it.
func (r *Runner) Trigger(name string) error {
	e, err := r.claim(name)
	if err != nil {
		return err
	}
	go r.run(name, e)
	return nil
}

// Status reports every job sorted by name.
func (r *Runner) Status() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobStatus, 0, len(r.jobs))
	for name, e := range r.jobs {
		st := JobStatus{
			Name:      name,
			Schedule:  e.job.Spec,
			Running:   e.cron != nil,
			Executing: e.executing,
			LastRun:   e.lastRun,
			LastError: e.lastErr,
		}
		if e.cron != nil {
			next := e.schedule.Next(r.now().In(r.loc))
			st.NextRun = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runner) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// claim marks a job as executing. Only one execution per job is allowed.
func (r *Runner) claim(name string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if e.executing {
		r.logger.Warn().Str("job", name).Msg("skipping overlapping execution")
		return nil, ErrJobBusy
	}
	e.executing = true
	r.wg.Add(1)
	return e, nil
}

// run executes a claimed job on the runner's context and converts panics to
// errors.
func (r *Runner) run(name string, e *entry) (err error) {
	start := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", name, rec)
		}

		r.mu.Lock()
		e.executing = false
		ranAt := start
		e.lastRun = &ranAt
		e.lastErr = ""
		if err != nil {
			e.lastErr = err.Error()
		}
		r.mu.Unlock()
		r.wg.Done()

		if err != nil {
			r.logger.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("job failed")
			return
		}
		r.logger.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
	}()

	r.logger.Info().Str("job", name).Msg("job started")
	return e.job.Run(r.baseCtx)
}
