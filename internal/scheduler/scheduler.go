// Package scheduler runs jobs on a bounded worker pool, records every
// execution and its user-visible messages, and fires recurring jobs from
// cron expressions or fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/notify"
)

var (
	ErrNotStarted   = errors.New("scheduler not started")
	ErrStopped      = errors.New("scheduler stopped")
	ErrDuplicateJob = errors.New("job already queued or running")
	ErrInvalidSpec  = errors.New("invalid job spec")
)

// ExecutionStore persists executions and their messages.
type ExecutionStore interface {
	CreateExecution(exec *domain.JobExecution) error
	UpdateExecutionDescription(id, description string) error
	FinishExecution(id string, status domain.JobStatus, endTime time.Time) error
	RecoverInterrupted() (int64, error)
	AppendMessage(msg *domain.JobMessage) error
}

// Publisher receives notification events.
type Publisher interface {
	Publish(e notify.Event) int64
}

type Options struct {
	Store       ExecutionStore
	Notifier    Publisher
	Logger      *logger.Logger
	Metrics     *Metrics
	Concurrency int
}

type Scheduler struct {
	store    ExecutionStore
	notifier Publisher
	logger   *logger.Logger
	metrics  *Metrics

	sem       chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	keys      map[string]*Handle
	recurring map[string]*recurringJob
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	stopped   bool
}

func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = constants.DefaultConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    opts.Logger.WithComponent("scheduler"),
		metrics:   opts.Metrics,
		sem:       make(chan struct{}, opts.Concurrency),
		ctx:       ctx,
		cancel:    cancel,
		keys:      make(map[string]*Handle),
		recurring: make(map[string]*recurringJob),
	}
	if s.metrics != nil {
		s.metrics.WorkerPoolSize.Set(float64(opts.Concurrency))
	}
	return s
}

// Start marks executions left running by a previous process as
// interrupted and then starts accepting jobs. Jobs run under a context
// derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	n, err := s.store.RecoverInterrupted()
	if err != nil {
		return fmt.Errorf("failed to recover interrupted executions: %w", err)
	}
	if n > 0 {
		s.logger.Warn("Marked stale executions as interrupted", "count", n)
	}

	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	for _, r := range s.recurring {
		s.armLocked(r)
	}
	s.logger.Info("Scheduler started", "concurrency", cap(s.sem))
	return nil
}

// AddJob schedules spec. With a Now trigger the job is queued at once and
// a Handle to its execution is returned. Cron and interval triggers
// register a recurring job under spec.Name (see ScheduleRecurring) and
// return a nil Handle.
func (s *Scheduler) AddJob(spec JobSpec, trigger Trigger) (*Handle, error) {
	if trigger.kind != triggerNow {
		return nil, s.ScheduleRecurring(spec, trigger)
	}
	return s.submit(spec, nil)
}

// RunNow queues spec for immediate execution.
func (s *Scheduler) RunNow(spec JobSpec) (*Handle, error) {
	return s.AddJob(spec, Now())
}

func (s *Scheduler) submit(spec JobSpec, onStart func()) (*Handle, error) {
	if spec.Factory == nil || spec.Name == "" {
		return nil, fmt.Errorf("%w: name and factory are required", ErrInvalidSpec)
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	if spec.Key != "" {
		if existing, ok := s.keys[spec.Key]; ok {
			s.mu.Unlock()
			return existing, ErrDuplicateJob
		}
	}

	h := newHandle(spec.Name)
	if spec.Key != "" {
		s.keys[spec.Key] = h
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.releaseKey(spec.Key, h)

		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			h.finish(domain.JobStatusInterrupted, ErrStopped)
			return
		}
		defer func() { <-s.sem }()

		if onStart != nil {
			onStart()
		}
		s.execute(spec, h)
	}()

	return h, nil
}

func (s *Scheduler) releaseKey(key string, h *Handle) {
	if key == "" {
		return
	}
	s.mu.Lock()
	if s.keys[key] == h {
		delete(s.keys, key)
	}
	s.mu.Unlock()
}

// execute is the failure boundary around one job run. The execution record
// always ends in a terminal status with an end time, whatever the job does.
func (s *Scheduler) execute(spec JobSpec, h *Handle) {
	exec := &domain.JobExecution{
		ID:        uuid.NewString(),
		Name:      spec.Name,
		StartTime: time.Now(),
		UserID:    spec.UserID,
		Status:    domain.JobStatusRunning,
	}
	log := s.logger.WithJob(exec.ID, spec.Name)

	if err := s.store.CreateExecution(exec); err != nil {
		log.Error("Failed to create execution record", "error", err)
		h.finish(domain.JobStatusFailed, err)
		return
	}
	h.setExecutionID(exec.ID)

	if s.metrics != nil {
		s.metrics.JobsStarted.WithLabelValues(spec.Name).Inc()
		s.metrics.WorkersBusy.Inc()
		defer s.metrics.WorkersBusy.Dec()
	}

	jc := newJobContext(s, exec, log)
	status := domain.JobStatusFailed
	var runErr error

	defer func() {
		end := time.Now()
		exec.EndTime = &end
		exec.Status = status
		if err := s.store.FinishExecution(exec.ID, status, end); err != nil {
			log.Error("Failed to finalize execution", "error", err)
		}
		if s.metrics != nil {
			s.metrics.JobsFinished.WithLabelValues(spec.Name, string(status)).Inc()
			s.metrics.JobDuration.WithLabelValues(spec.Name).Observe(end.Sub(exec.StartTime).Seconds())
		}
		s.publish(notify.Event{
			Kind:      notify.KindOperationEnd,
			UserID:    exec.UserID,
			Operation: exec.ID,
			Status:    fmt.Sprintf("%s %s", exec.Description, status),
		})
		log.Info("Job ended", "status", status, "duration", end.Sub(exec.StartTime))
		h.finish(status, runErr)
	}()

	runErr = s.runJob(spec, jc, log)
	if runErr != nil {
		jc.Error(fmt.Sprintf("%s operation failed: %v", spec.Name, runErr))
		return
	}
	status = domain.JobStatusFinished
}

func (s *Scheduler) runJob(spec JobSpec, jc *JobContext, log *logger.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	job, err := spec.Factory()
	if err != nil {
		log.Error("Failed to instantiate job", "error", err)
		return err
	}

	desc := job.Description()
	jc.Execution.Description = desc
	if err := s.store.UpdateExecutionDescription(jc.Execution.ID, desc); err != nil {
		log.Warn("Failed to store job description", "error", err)
	}

	log.Info("Running job", "description", desc)
	s.publish(notify.Event{
		Kind:      notify.KindStatusUpdate,
		UserID:    jc.Execution.UserID,
		Operation: jc.Execution.ID,
		Status:    desc,
	})

	if err := job.Run(s.ctx, jc); err != nil {
		log.Error("Job failed", "error", err)
		return err
	}
	return nil
}

func (s *Scheduler) publish(e notify.Event) {
	if s.notifier != nil {
		s.notifier.Publish(e)
	}
}

// Shutdown stops recurring triggers, rejects new jobs and waits for queued
// and running jobs. When ctx expires first the jobs' context is cancelled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for _, r := range s.recurring {
		r.stop()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Handle tracks one queued execution.
type Handle struct {
	done   chan struct{}
	err    error
	name   string
	execID string
	status domain.JobStatus
	mu     sync.Mutex
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

func (h *Handle) setExecutionID(id string) {
	h.mu.Lock()
	h.execID = id
	h.mu.Unlock()
}

func (h *Handle) finish(status domain.JobStatus, err error) {
	h.mu.Lock()
	h.status = status
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Name returns the job name.
func (h *Handle) Name() string {
	return h.name
}

// ExecutionID returns the id of the execution record once the job started.
func (h *Handle) ExecutionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.execID
}

// Done is closed when the execution reached a terminal status.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job ended or ctx is done and returns the final
// status with the job's error, if any.
func (h *Handle) Wait(ctx context.Context) (domain.JobStatus, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.status, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
