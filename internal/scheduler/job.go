package scheduler

import (
	"context"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/notify"
	"github.com/cesargomez89/ytmanager/internal/progress"
)

// Job is a unit of work run by the Scheduler. Run returning an error (or
// panicking) marks the execution as failed.
type Job interface {
	Description() string
	Run(ctx context.Context, jc *JobContext) error
}

// Factory builds a fresh Job instance for every execution.
type Factory func() (Job, error)

// JobSpec describes what to run. Name identifies the kind of job in logs,
// metrics and recurring registrations. A non-empty Key deduplicates: while
// a job with the same key is queued or running, adding another one fails
// with ErrDuplicateJob.
type JobSpec struct {
	Factory Factory
	UserID  *int64
	Name    string
	Key     string
}

// JobContext is handed to a running job. It carries the execution record,
// a logger scoped to the execution, progress tracking and the user-visible
// message log.
type JobContext struct {
	Execution *domain.JobExecution
	Logger    *logger.Logger

	sched   *Scheduler
	tracker *progress.Tracker
}

func newJobContext(s *Scheduler, exec *domain.JobExecution, log *logger.Logger) *JobContext {
	jc := &JobContext{
		Execution: exec,
		Logger:    log,
		sched:     s,
		tracker:   progress.New(1, 0),
	}
	jc.tracker.OnProgress(jc.onProgress)
	return jc
}

// Scheduler returns the scheduler running the job, so jobs can enqueue
// follow-up work.
func (c *JobContext) Scheduler() *Scheduler {
	return c.sched
}

// SetTotalSteps sets the number of steps of the job's top level.
func (c *JobContext) SetTotalSteps(steps float64) {
	c.tracker.SetTotalSteps(steps)
}

// Advance completes steps of the top level. A non-empty message is
// recorded in the execution log with the new progress.
func (c *JobContext) Advance(steps float64, msg string) {
	c.tracker.Advance(steps, msg)
}

// Subtask opens a nested tracker worth weight top-level steps.
func (c *JobContext) Subtask(weight, totalSteps, initialSteps float64) *progress.Tracker {
	return c.tracker.Subtask(weight, totalSteps, initialSteps)
}

// Progress returns the job's overall progress in [0,1].
func (c *JobContext) Progress() float64 {
	return c.tracker.Progress()
}

func (c *JobContext) onProgress(p float64, msg string) {
	if msg != "" {
		c.Log(msg, WithProgress(p))
		return
	}
	c.sched.publish(notify.Event{
		Kind:      notify.KindOperationProgress,
		UserID:    c.Execution.UserID,
		Operation: c.Execution.ID,
		Status:    c.Execution.Description,
		Progress:  &p,
	})
}

type messageOptions struct {
	progress *float64
	suppress bool
}

// MessageOption tunes a user-visible message.
type MessageOption func(*messageOptions)

// WithProgress attaches an explicit progress value instead of the
// tracker's current one.
func WithProgress(p float64) MessageOption {
	return func(o *messageOptions) {
		o.progress = &p
	}
}

// SuppressNotification keeps the message in the history without
// pushing it to connected clients.
func SuppressNotification() MessageOption {
	return func(o *messageOptions) {
		o.suppress = true
	}
}

// Log records a normal user-visible message.
func (c *JobContext) Log(msg string, opts ...MessageOption) {
	c.message(domain.MessageLevelNormal, msg, opts)
}

// Warn records a warning.
func (c *JobContext) Warn(msg string, opts ...MessageOption) {
	c.message(domain.MessageLevelWarning, msg, opts)
}

// Error records an error message.
func (c *JobContext) Error(msg string, opts ...MessageOption) {
	c.message(domain.MessageLevelError, msg, opts)
}

func (c *JobContext) message(level domain.MessageLevel, text string, opts []MessageOption) {
	o := messageOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress == nil {
		p := c.tracker.Progress()
		o.progress = &p
	}

	msg := &domain.JobMessage{
		JobID:                c.Execution.ID,
		Timestamp:            time.Now(),
		Progress:             o.progress,
		Text:                 text,
		Level:                level,
		SuppressNotification: o.suppress,
	}
	if err := c.sched.store.AppendMessage(msg); err != nil {
		c.Logger.Error("Failed to store job message", "error", err, "text", text)
	}

	if o.suppress {
		return
	}
	c.sched.publish(notify.Event{
		Kind:      notify.KindOperationProgress,
		UserID:    c.Execution.UserID,
		Operation: c.Execution.ID,
		Status:    text,
		Progress:  o.progress,
	})
}
