package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/semmidev/custos/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Runner executes one backup attempt. Begin creates the Pending record
// synchronously; Perform drives it to a terminal status and never returns
// an error to the scheduler.
type Runner interface {
	Begin(ctx context.Context, job domain.Job) (domain.Backup, error)
	Perform(ctx context.Context, job domain.Job, backup domain.Backup) domain.Backup
}

// Config carries the scheduler's tuning values. Clock is injectable so
// tests can pin time.
type Config struct {
	PollInterval time.Duration
	CatchUpDelay time.Duration
	Clock        func() time.Time
}

// execution is one in-flight backup attempt. The token makes removal from
// the in-flight map a compare-and-remove: a stale completion can never
// clobber a newer entry for the same job.
type execution struct {
	token  string
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler is the control loop. On every poll tick it fetches active jobs
// whose next run is unset or has passed, and dispatches each one that is
// not already in flight. The in-flight map is the single shared mutable
// resource; every access holds mu.
type Scheduler struct {
	store   domain.Store
	runner  Runner
	logger  Logger
	clock   func() time.Time
	poll    time.Duration
	catchUp time.Duration

	cron       *cron.Cron
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	inflight map[string]*execution
	paused   map[string]struct{}
}

func New(store domain.Store, runner Runner, logger Logger, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.CatchUpDelay <= 0 {
		cfg.CatchUpDelay = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      store,
		runner:     runner,
		logger:     logger,
		clock:      cfg.Clock,
		poll:       cfg.PollInterval,
		catchUp:    cfg.CatchUpDelay,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		inflight:   make(map[string]*execution),
		paused:     make(map[string]struct{}),
	}
}

// Start begins polling. The first poll runs immediately; later ones follow
// the configured interval.
func (s *Scheduler) Start() {
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.poll), cron.FuncJob(s.pollOnce))
	s.cron.Start()
	go s.pollOnce()
	s.logger.Infof("scheduler started, polling every %s", s.poll)
}

// pollOnce runs one poll cycle. Store unavailability is logged and retried
// on the next tick; it never stops the loop.
func (s *Scheduler) pollOnce() {
	if s.baseCtx.Err() != nil {
		return
	}

	jobs, err := s.store.ListDueJobs(s.baseCtx, s.clock())
	if err != nil {
		s.logger.Errorf("poll: list due jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if s.isPaused(job.ID) {
			continue
		}
		if _, err := s.dispatch(job); err != nil {
			if !errors.Is(err, domain.ErrConcurrencyConflict) {
				s.logger.Errorf("poll: dispatch job %s: %v", job.ID, err)
			}
		}
	}
}

// dispatch reserves the job's single-flight slot, persists the recomputed
// next run, creates the Pending record, and performs the attempt in its own
// goroutine. The slot is released only when the attempt reaches a terminal
// status.
func (s *Scheduler) dispatch(job domain.Job) (domain.Backup, error) {
	s.mu.Lock()
	if _, ok := s.inflight[job.ID]; ok {
		s.mu.Unlock()
		return domain.Backup{}, fmt.Errorf("job %s: %w", job.ID, domain.ErrConcurrencyConflict)
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	exec := &execution{
		token:  uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.inflight[job.ID] = exec
	s.mu.Unlock()

	// Push next_run out before the attempt starts so a failure is retried a
	// short delay later instead of on every poll tick.
	next := domain.NextRunAfter(job, s.clock(), s.catchUp)
	if err := s.store.SetJobRuns(s.baseCtx, job.ID, job.LastRun, &next); err != nil {
		s.logger.Warnf("job %s: persist next run: %v", job.ID, err)
	}

	backup, err := s.runner.Begin(runCtx, job)
	if err != nil {
		cancel()
		s.release(job.ID, exec.token)
		close(exec.done)
		return domain.Backup{}, err
	}

	go func() {
		defer close(exec.done)
		s.runner.Perform(runCtx, job, backup)
		cancel()
		s.release(job.ID, exec.token)
	}()

	return backup, nil
}

// release removes the job's in-flight entry iff it still belongs to this
// execution.
func (s *Scheduler) release(jobID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec, ok := s.inflight[jobID]; ok && exec.token == token {
		delete(s.inflight, jobID)
	}
}

func (s *Scheduler) isPaused(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paused[jobID]
	return ok
}

// InFlight reports whether the job currently has an active attempt.
func (s *Scheduler) InFlight(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[jobID]
	return ok
}

// RunNow triggers a manual attempt, bypassing the schedule but not the
// single-flight guarantee. The Pending record is returned synchronously.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) (domain.Backup, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.Backup{}, err
	}
	if !job.Active {
		return domain.Backup{}, fmt.Errorf("job %s is inactive: %w", jobID, domain.ErrInvalidTransition)
	}
	return s.dispatch(job)
}

// Reschedule cancels any in-flight attempt and recomputes next_run from the
// job's current settings. Called after job creation or update.
func (s *Scheduler) Reschedule(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	s.cancelAndWait(ctx, jobID)

	if !job.Active {
		return nil
	}

	next := domain.NextRunAfter(job, s.clock(), s.catchUp)
	return s.store.SetJobRuns(ctx, jobID, job.LastRun, &next)
}

// Pause cancels the job's in-flight attempt, awaits its terminal commit,
// and removes the job from polling until resumed. When Pause returns the
// job is no longer in the in-flight set.
func (s *Scheduler) Pause(ctx context.Context, jobID string) error {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return err
	}

	s.mu.Lock()
	s.paused[jobID] = struct{}{}
	s.mu.Unlock()

	return s.cancelAndWait(ctx, jobID)
}

// Resume re-admits a paused, active job to polling.
func (s *Scheduler) Resume(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paused[jobID]; !ok {
		return fmt.Errorf("job %s is not paused: %w", jobID, domain.ErrInvalidTransition)
	}
	if !job.Active {
		return fmt.Errorf("job %s is inactive: %w", jobID, domain.ErrInvalidTransition)
	}
	delete(s.paused, jobID)
	return nil
}

// Forget drops all scheduler state for a job: the in-flight attempt is
// cancelled and awaited, and any paused marker is cleared. Used when a job
// is deleted or deactivated.
func (s *Scheduler) Forget(jobID string) {
	s.mu.Lock()
	delete(s.paused, jobID)
	s.mu.Unlock()
	_ = s.cancelAndWait(context.Background(), jobID)
}

func (s *Scheduler) cancelAndWait(ctx context.Context, jobID string) error {
	s.mu.Lock()
	exec, ok := s.inflight[jobID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	exec.cancel()
	select {
	case <-exec.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops polling, cancels every in-flight attempt, and blocks until
// each has committed a terminal status. No backup is left in progress.
func (s *Scheduler) Shutdown() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.baseCancel()

	s.mu.Lock()
	pending := make([]*execution, 0, len(s.inflight))
	for _, exec := range s.inflight {
		pending = append(pending, exec)
	}
	s.mu.Unlock()

	for _, exec := range pending {
		<-exec.done
	}

	s.logger.Infof("scheduler stopped, %d in-flight execution(s) drained", len(pending))
}
