// Package progress provides hierarchical progress accounting for jobs made
// of nested phases.
package progress

// Listener receives the overall progress of the root tracker, in [0,1],
// together with the message of the step that caused the update.
type Listener func(progress float64, msg string)

// Tracker counts completed steps out of a total. A tracker may have one open
// subtask at a time; the subtask stands for weight steps of its parent and
// contributes proportionally to its own completion.
//
// The value reported by Progress never decreases and never leaves [0,1].
// A Tracker is owned by one job and is not safe for concurrent use.
type Tracker struct {
	parent   *Tracker
	subtask  *Tracker
	listener Listener

	steps         float64
	totalSteps    float64
	subtaskWeight float64
	high          float64
}

// New creates a root tracker.
func New(totalSteps, initialSteps float64) *Tracker {
	return &Tracker{
		totalSteps: totalSteps,
		steps:      nonNegative(initialSteps),
	}
}

// OnProgress sets the listener notified on every advance anywhere in the tree.
// Only the root's listener is used.
func (t *Tracker) OnProgress(l Listener) {
	t.listener = l
}

// SetTotalSteps changes the number of steps of this level.
func (t *Tracker) SetTotalSteps(total float64) {
	t.totalSteps = total
}

// TotalSteps returns the number of steps of this level.
func (t *Tracker) TotalSteps() float64 {
	return t.totalSteps
}

// Steps returns the completed steps of this level, open subtask excluded.
func (t *Tracker) Steps() float64 {
	return t.steps
}

// Advance completes steps at this level and notifies the root listener.
// An open subtask is finalized first and counted with its full weight.
func (t *Tracker) Advance(steps float64, msg string) {
	t.finalizeSubtask()
	t.steps += nonNegative(steps)
	t.notify(msg)
}

// Subtask opens a child tracker worth weight steps of this level, closing
// the previous subtask if one is still open.
func (t *Tracker) Subtask(weight, totalSteps, initialSteps float64) *Tracker {
	t.finalizeSubtask()
	t.subtask = &Tracker{
		parent:     t,
		totalSteps: totalSteps,
		steps:      nonNegative(initialSteps),
	}
	t.subtaskWeight = nonNegative(weight)
	return t.subtask
}

// Progress returns the completion of this level in [0,1].
func (t *Tracker) Progress() float64 {
	p := t.compute()
	if p > t.high {
		t.high = p
	}
	return t.high
}

func (t *Tracker) compute() float64 {
	if t.totalSteps <= 0 {
		return 0
	}
	p := t.steps / t.totalSteps
	if t.subtask != nil {
		p += t.subtask.Progress() * t.subtaskWeight / t.totalSteps
	}
	return clamp(p)
}

func (t *Tracker) finalizeSubtask() {
	if t.subtask == nil {
		return
	}
	t.steps += t.subtaskWeight
	t.subtask.parent = nil
	t.subtask = nil
	t.subtaskWeight = 0
}

func (t *Tracker) root() *Tracker {
	r := t
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (t *Tracker) notify(msg string) {
	r := t.root()
	if r.listener != nil {
		r.listener(r.Progress(), msg)
	}
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
