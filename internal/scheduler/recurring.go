package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

type triggerKind int

const (
	triggerNow triggerKind = iota
	triggerCron
	triggerEvery
)

// Trigger decides when a job runs: once right away, on a cron schedule or
// at a fixed interval.
type Trigger struct {
	schedule cron.Schedule
	expr     string
	kind     triggerKind
}

// Now runs the job once, as soon as a worker is free.
func Now() Trigger {
	return Trigger{kind: triggerNow}
}

// Cron parses a standard 5-field cron expression (descriptors such as
// @daily are accepted too).
func Cron(expr string) (Trigger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return Trigger{kind: triggerCron, schedule: sched, expr: expr}, nil
}

// Every fires at a fixed interval, counted from the moment the schedule is
// armed. Intervals are rounded to whole seconds.
func Every(d time.Duration) (Trigger, error) {
	if d <= 0 {
		return Trigger{}, fmt.Errorf("invalid interval %s", d)
	}
	return Trigger{kind: triggerEvery, schedule: cron.Every(d), expr: "@every " + d.String()}, nil
}

func (t Trigger) String() string {
	if t.kind == triggerNow {
		return "now"
	}
	return t.expr
}

// recurringJob is a named singleton. It is either idle, pending (queued
// and waiting for a worker) or running. Firing while pending is merged
// into the queued run, firing while running is dropped.
type recurringJob struct {
	next    time.Time
	timer   *time.Timer
	spec    JobSpec
	trigger Trigger
	gen     uint64
	pending bool
	running bool
}

func (r *recurringJob) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
}

// RecurringInfo describes a registered recurring job.
type RecurringInfo struct {
	NextRun  time.Time `json:"next_run"`
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Running  bool      `json:"running"`
	Pending  bool      `json:"pending"`
}

// ScheduleRecurring registers spec under spec.Name. Calling it again for
// the same name replaces the schedule of the existing registration.
// Registrations made before Start are armed when the scheduler starts.
func (s *Scheduler) ScheduleRecurring(spec JobSpec, trigger Trigger) error {
	if spec.Factory == nil || spec.Name == "" {
		return fmt.Errorf("%w: name and factory are required", ErrInvalidSpec)
	}
	if trigger.kind == triggerNow || trigger.schedule == nil {
		return fmt.Errorf("%w: recurring jobs need a cron or interval trigger", ErrInvalidSpec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	r, ok := s.recurring[spec.Name]
	if ok {
		r.spec = spec
		r.trigger = trigger
		s.logger.Info("Rescheduled recurring job", "job", spec.Name, "schedule", trigger.String())
	} else {
		r = &recurringJob{spec: spec, trigger: trigger}
		s.recurring[spec.Name] = r
		s.logger.Info("Scheduled recurring job", "job", spec.Name, "schedule", trigger.String())
	}
	s.armLocked(r)
	return nil
}

// Unschedule removes a recurring job. A run already in progress is not
// affected.
func (s *Scheduler) Unschedule(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[name]
	if !ok {
		return false
	}
	r.stop()
	delete(s.recurring, name)
	s.logger.Info("Unscheduled recurring job", "job", name)
	return true
}

// Recurring lists the registered recurring jobs sorted by name.
func (s *Scheduler) Recurring() []RecurringInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecurringInfo, 0, len(s.recurring))
	for name, r := range s.recurring {
		out = append(out, RecurringInfo{
			Name:     name,
			Schedule: r.trigger.String(),
			NextRun:  r.next,
			Running:  r.running,
			Pending:  r.pending,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) armLocked(r *recurringJob) {
	r.stop()
	if !s.started || s.stopped {
		return
	}

	next := r.trigger.schedule.Next(time.Now())
	r.next = next
	if next.IsZero() {
		return
	}

	gen := r.gen
	r.timer = time.AfterFunc(time.Until(next), func() {
		s.fire(r, gen)
	})
}

// fire runs on the timer goroutine. The next firing is computed from the
// current time, so firings missed while the process was busy collapse
// into this one.
func (s *Scheduler) fire(r *recurringJob, gen uint64) {
	s.mu.Lock()
	if gen != r.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.armLocked(r)

	name := r.spec.Name
	switch {
	case r.running:
		s.mu.Unlock()
		s.logger.Debug("Recurring job still running, firing dropped", "job", name)
		s.observeFire(name, "dropped")
		return
	case r.pending:
		s.mu.Unlock()
		s.logger.Debug("Recurring job already queued, firing coalesced", "job", name)
		s.observeFire(name, "coalesced")
		return
	}
	r.pending = true
	spec := r.spec
	s.mu.Unlock()

	h, err := s.submit(spec, func() {
		s.mu.Lock()
		r.pending = false
		r.running = true
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		r.pending = false
		s.mu.Unlock()
		if errors.Is(err, ErrDuplicateJob) {
			s.observeFire(name, "coalesced")
			return
		}
		s.logger.Error("Failed to queue recurring job", "job", name, "error", err)
		return
	}
	s.observeFire(name, "run")

	go func() {
		<-h.Done()
		s.mu.Lock()
		r.pending = false
		r.running = false
		s.mu.Unlock()
	}()
}

func (s *Scheduler) observeFire(name, outcome string) {
	if s.metrics != nil {
		s.metrics.RecurringFires.WithLabelValues(name, outcome).Inc()
	}
}
