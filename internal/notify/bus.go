// Package notify keeps a short in-memory history of status events that web
// clients poll for.
package notify

import (
	"sort"
	"sync"
	"time"
)

type Kind string

const (
	KindStatusUpdate      Kind = "st-up"
	KindOperationProgress Kind = "st-op-prog"
	KindOperationEnd      Kind = "st-op-end"
)

// Event is one buffered notification. A nil UserID makes the event visible
// to every user.
type Event struct {
	Time      time.Time `json:"time"`
	UserID    *int64    `json:"uid,omitempty"`
	Progress  *float64  `json:"progress,omitempty"`
	Kind      Kind      `json:"msg"`
	Operation string    `json:"operation,omitempty"`
	Status    string    `json:"status"`
	ID        int64     `json:"id"`
}

// Bus is a retention-bounded queue of events with increasing ids.
type Bus struct {
	now       func() time.Time
	events    []Event
	retention time.Duration
	nextID    int64
	mu        sync.Mutex
}

func New(retention time.Duration) *Bus {
	return &Bus{
		retention: retention,
		nextID:    1,
		now:       time.Now,
	}
}

// Publish stores e and returns its id. Events older than the retention
// window are dropped.
func (b *Bus) Publish(e Event) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	e.ID = b.nextID
	b.nextID++
	e.Time = b.now()
	b.events = append(b.events, e)
	b.trimLocked()
	return e.ID
}

// StatusUpdate publishes a plain status line.
func (b *Bus) StatusUpdate(userID *int64, status string) int64 {
	return b.Publish(Event{Kind: KindStatusUpdate, UserID: userID, Status: status})
}

// OperationProgress publishes the progress of a running operation.
func (b *Bus) OperationProgress(userID *int64, operation, status string, progress float64) int64 {
	return b.Publish(Event{Kind: KindOperationProgress, UserID: userID, Operation: operation, Status: status, Progress: &progress})
}

// OperationEnded publishes the end of an operation.
func (b *Bus) OperationEnded(userID *int64, operation, status string) int64 {
	return b.Publish(Event{Kind: KindOperationEnd, UserID: userID, Operation: operation, Status: status})
}

// Since returns the buffered events with an id greater than lastID that are
// visible to userID. System-wide events are visible to everyone; a nil
// userID sees only system-wide events.
func (b *Bus) Since(lastID int64, userID *int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trimLocked()

	start := sort.Search(len(b.events), func(i int) bool { return b.events[i].ID > lastID })
	out := make([]Event, 0, len(b.events)-start)
	for _, e := range b.events[start:] {
		if e.UserID == nil || (userID != nil && *e.UserID == *userID) {
			out = append(out, e)
		}
	}
	return out
}

// LastID returns the id of the most recently published event, or 0.
func (b *Bus) LastID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextID - 1
}

func (b *Bus) trimLocked() {
	cutoff := b.now().Add(-b.retention)
	drop := 0
	for drop < len(b.events) && b.events[drop].Time.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		b.events = append(b.events[:0:0], b.events[drop:]...)
	}
}
