package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/notify"
	"github.com/cesargomez89/ytmanager/internal/store"
)

type funcJob struct {
	run  func(ctx context.Context, jc *JobContext) error
	desc string
}

func (j *funcJob) Description() string { return j.desc }

func (j *funcJob) Run(ctx context.Context, jc *JobContext) error { return j.run(ctx, jc) }

func specFor(name string, run func(ctx context.Context, jc *JobContext) error) JobSpec {
	return JobSpec{
		Name: name,
		Factory: func() (Job, error) {
			return &funcJob{desc: "Test job " + name, run: run}, nil
		},
	}
}

type testEnv struct {
	db      *store.DB
	bus     *notify.Bus
	metrics *Metrics
	sched   *Scheduler
}

func setupScheduler(t *testing.T, concurrency int) *testEnv {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	env := &testEnv{
		db:      db,
		bus:     notify.New(time.Hour),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	env.sched = New(Options{
		Store:       db,
		Notifier:    env.bus,
		Logger:      logger.Discard(),
		Metrics:     env.metrics,
		Concurrency: concurrency,
	})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := env.sched.Shutdown(ctx); err != nil {
			t.Logf("Shutdown error: %v", err)
		}
		db.Close()
	})
	return env
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	if err := e.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

func waitHandle(t *testing.T, h *Handle) (domain.JobStatus, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := h.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timed out waiting for job %s", h.Name())
	}
	return status, err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddJobBeforeStart(t *testing.T) {
	env := setupScheduler(t, 1)
	_, err := env.sched.AddJob(specFor("early", func(context.Context, *JobContext) error { return nil }), Now())
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestJobSuccess(t *testing.T) {
	env := setupScheduler(t, 2)
	env.start(t)

	h, err := env.sched.AddJob(specFor("ok", func(_ context.Context, jc *JobContext) error {
		jc.SetTotalSteps(2)
		jc.Advance(1, "halfway")
		jc.Warn("careful", SuppressNotification())
		jc.Advance(1, "")
		return nil
	}), Now())
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	status, runErr := waitHandle(t, h)
	if status != domain.JobStatusFinished || runErr != nil {
		t.Fatalf("expected finished without error, got %s / %v", status, runErr)
	}

	exec, err := env.db.GetExecution(h.ExecutionID())
	if err != nil {
		t.Fatalf("GetExecution failed: %v", err)
	}
	if exec.Status != domain.JobStatusFinished || exec.EndTime == nil {
		t.Errorf("unexpected execution %+v", exec)
	}
	if exec.Description != "Test job ok" {
		t.Errorf("Description = %q", exec.Description)
	}

	msgs, err := env.db.ListMessages(exec.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "halfway" || msgs[0].Progress == nil || *msgs[0].Progress != 0.5 {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Level != domain.MessageLevelWarning || !msgs[1].SuppressNotification {
		t.Errorf("unexpected second message %+v", msgs[1])
	}

	var sawStart, sawEnd bool
	for _, e := range env.bus.Since(0, nil) {
		if e.Status == "careful" {
			t.Errorf("suppressed message was published")
		}
		switch e.Kind {
		case notify.KindStatusUpdate:
			sawStart = sawStart || e.Operation == exec.ID
		case notify.KindOperationEnd:
			sawEnd = sawEnd || e.Operation == exec.ID
		}
	}
	if !sawStart || !sawEnd {
		t.Errorf("expected start and end notifications, start=%v end=%v", sawStart, sawEnd)
	}

	if got := testutil.ToFloat64(env.metrics.JobsFinished.WithLabelValues("ok", "finished")); got != 1 {
		t.Errorf("jobs_finished_total = %v, want 1", got)
	}
}

func TestJobFailureBoundary(t *testing.T) {
	tests := []struct {
		name    string
		spec    JobSpec
		wantMsg string
	}{
		{
			name: "error",
			spec: specFor("failing", func(context.Context, *JobContext) error {
				return errors.New("boom")
			}),
			wantMsg: "failing operation failed: boom",
		},
		{
			name: "panic",
			spec: specFor("panicking", func(context.Context, *JobContext) error {
				panic("kaboom")
			}),
			wantMsg: "panicking operation failed: panic: kaboom",
		},
		{
			name: "factory",
			spec: JobSpec{
				Name: "broken",
				Factory: func() (Job, error) {
					return nil, errors.New("cannot build")
				},
			},
			wantMsg: "broken operation failed: cannot build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupScheduler(t, 1)
			env.start(t)

			h, err := env.sched.AddJob(tt.spec, Now())
			if err != nil {
				t.Fatalf("AddJob failed: %v", err)
			}
			status, runErr := waitHandle(t, h)
			if status != domain.JobStatusFailed || runErr == nil {
				t.Fatalf("expected failed with error, got %s / %v", status, runErr)
			}

			exec, err := env.db.GetExecution(h.ExecutionID())
			if err != nil {
				t.Fatalf("GetExecution failed: %v", err)
			}
			if exec.Status != domain.JobStatusFailed || exec.EndTime == nil {
				t.Errorf("unexpected execution %+v", exec)
			}

			msgs, err := env.db.ListMessages(exec.ID)
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			var errs []string
			for _, m := range msgs {
				if m.Level == domain.MessageLevelError {
					errs = append(errs, m.Text)
				}
			}
			if len(errs) != 1 || errs[0] != tt.wantMsg {
				t.Errorf("error messages = %q, want exactly %q", errs, tt.wantMsg)
			}
		})
	}
}

func TestWorkerPoolKeepsRunningAfterFailure(t *testing.T) {
	env := setupScheduler(t, 1)
	env.start(t)

	h1, _ := env.sched.AddJob(specFor("bad", func(context.Context, *JobContext) error { panic("x") }), Now())
	h2, _ := env.sched.AddJob(specFor("good", func(context.Context, *JobContext) error { return nil }), Now())

	waitHandle(t, h1)
	if status, _ := waitHandle(t, h2); status != domain.JobStatusFinished {
		t.Errorf("second job status = %s, want finished", status)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	env := setupScheduler(t, 2)
	env.start(t)

	var current, peak int32
	var handles []*Handle
	for i := 0; i < 6; i++ {
		h, err := env.sched.AddJob(specFor("worker", func(context.Context, *JobContext) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}), Now())
		if err != nil {
			t.Fatalf("AddJob failed: %v", err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		waitHandle(t, h)
	}

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestDuplicateKey(t *testing.T) {
	env := setupScheduler(t, 2)
	env.start(t)

	release := make(chan struct{})
	spec := specFor("download", func(context.Context, *JobContext) error {
		<-release
		return nil
	})
	spec.Key = "download:42"

	h1, err := env.sched.AddJob(spec, Now())
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	h2, err := env.sched.AddJob(spec, Now())
	if !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
	if h2 != h1 {
		t.Errorf("duplicate should return the existing handle")
	}

	close(release)
	waitHandle(t, h1)

	waitFor(t, "key release", func() bool {
		h, err := env.sched.AddJob(spec, Now())
		if err != nil {
			return false
		}
		waitHandle(t, h)
		return true
	})
}

func TestStartRecoversInterrupted(t *testing.T) {
	env := setupScheduler(t, 1)

	stale := &domain.JobExecution{
		ID:        "stale",
		Name:      "synchronize",
		StartTime: time.Now().Add(-time.Hour),
		Status:    domain.JobStatusRunning,
	}
	if err := env.db.CreateExecution(stale); err != nil {
		t.Fatalf("CreateExecution failed: %v", err)
	}

	env.start(t)

	exec, err := env.db.GetExecution("stale")
	if err != nil {
		t.Fatalf("GetExecution failed: %v", err)
	}
	if exec.Status != domain.JobStatusInterrupted || exec.EndTime == nil {
		t.Errorf("expected interrupted with end time, got %+v", exec)
	}

	n, err := env.db.RecoverInterrupted()
	if err != nil || n != 0 {
		t.Errorf("second recovery changed %d rows (err %v), want 0", n, err)
	}
}

func TestScheduleRecurringReschedules(t *testing.T) {
	env := setupScheduler(t, 1)
	env.start(t)

	spec := specFor("synchronize", func(context.Context, *JobContext) error { return nil })
	for _, expr := range []string{"*/5 * * * *", "0 * * * *"} {
		trigger, err := Cron(expr)
		if err != nil {
			t.Fatalf("Cron(%q) failed: %v", expr, err)
		}
		if _, err := env.sched.AddJob(spec, trigger); err != nil {
			t.Fatalf("AddJob failed: %v", err)
		}
	}

	got := env.sched.Recurring()
	if len(got) != 1 {
		t.Fatalf("expected one registration, got %d", len(got))
	}
	if got[0].Schedule != "0 * * * *" {
		t.Errorf("Schedule = %q, want the second expression", got[0].Schedule)
	}
	if got[0].NextRun.Minute() != 0 {
		t.Errorf("NextRun = %v, want top of the hour", got[0].NextRun)
	}

	if !env.sched.Unschedule("synchronize") {
		t.Errorf("Unschedule returned false")
	}
	if len(env.sched.Recurring()) != 0 {
		t.Errorf("registration left after Unschedule")
	}
}

func TestInvalidTriggers(t *testing.T) {
	if _, err := Cron("61 * * * *"); err == nil {
		t.Errorf("expected invalid minute to be rejected")
	}
	if _, err := Cron("* * *"); err == nil {
		t.Errorf("expected short expression to be rejected")
	}
	if _, err := Every(0); err == nil {
		t.Errorf("expected zero interval to be rejected")
	}

	env := setupScheduler(t, 1)
	err := env.sched.ScheduleRecurring(specFor("x", nil), Now())
	if !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec for a Now trigger, got %v", err)
	}
}

func TestRecurringCoalesceAndDrop(t *testing.T) {
	env := setupScheduler(t, 1)
	env.start(t)

	blockWorker := make(chan struct{})
	blocker, err := env.sched.AddJob(specFor("blocker", func(context.Context, *JobContext) error {
		<-blockWorker
		return nil
	}), Now())
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	var runs int32
	releaseRecurring := make(chan struct{})
	trigger, _ := Every(time.Hour)
	err = env.sched.ScheduleRecurring(specFor("recurring", func(context.Context, *JobContext) error {
		atomic.AddInt32(&runs, 1)
		<-releaseRecurring
		return nil
	}), trigger)
	if err != nil {
		t.Fatalf("ScheduleRecurring failed: %v", err)
	}

	fire := func() {
		env.sched.mu.Lock()
		r := env.sched.recurring["recurring"]
		gen := r.gen
		env.sched.mu.Unlock()
		env.sched.fire(r, gen)
	}
	state := func() RecurringInfo {
		return env.sched.Recurring()[0]
	}
	fires := func(outcome string) float64 {
		return testutil.ToFloat64(env.metrics.RecurringFires.WithLabelValues("recurring", outcome))
	}

	// worker busy: the first firing queues, the next ones merge into it
	fire()
	fire()
	fire()
	if !state().Pending {
		t.Fatalf("expected recurring job to be pending")
	}
	if fires("run") != 1 || fires("coalesced") != 2 {
		t.Errorf("run=%v coalesced=%v, want 1 and 2", fires("run"), fires("coalesced"))
	}

	close(blockWorker)
	waitHandle(t, blocker)
	waitFor(t, "recurring job to run", func() bool { return state().Running })

	fire()
	if fires("dropped") != 1 {
		t.Errorf("dropped = %v, want 1", fires("dropped"))
	}

	close(releaseRecurring)
	waitFor(t, "recurring job to finish", func() bool {
		s := state()
		return !s.Running && !s.Pending
	})
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Errorf("recurring job ran %d times, want 1", n)
	}
}

func TestShutdownRejectsNewJobs(t *testing.T) {
	env := setupScheduler(t, 1)
	env.start(t)

	var mu sync.Mutex
	var order []string
	h, _ := env.sched.AddJob(specFor("last", func(context.Context, *JobContext) error {
		mu.Lock()
		order = append(order, "ran")
		mu.Unlock()
		return nil
	}), Now())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.sched.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if status, _ := waitHandle(t, h); status != domain.JobStatusFinished {
		t.Errorf("queued job status = %s, want finished", status)
	}

	_, err := env.sched.AddJob(specFor("late", func(context.Context, *JobContext) error { return nil }), Now())
	if !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if len(order) != 1 || !strings.EqualFold(order[0], "ran") {
		t.Errorf("unexpected run order %v", order)
	}
}
