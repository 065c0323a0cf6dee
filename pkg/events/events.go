// Package events carries the lifecycle notifications of a conversion run.
//
// Emission is synchronous: Emit returns after every listener has handled
// the event, and emissions are serialised so a listener never observes two
// events at once, even when files or tasks are processed concurrently.
package events

import (
	"sync"
	"time"

	"github.com/kataras/piconvert/pkg/outconf"
	"github.com/kataras/piconvert/pkg/task"
)

// Type names a lifecycle event.
type Type string

const (
	ConversionStart  Type = "conversion-start"
	ConversionFinish Type = "conversion-finish"
	DirectoryStart   Type = "directory-start"
	DirectoryFinish  Type = "directory-finish"
	FileStart        Type = "file-start"
	FileFinish       Type = "file-finish"
	TaskStart        Type = "task-start"
	TaskSucceeded    Type = "task-succeeded"
	TaskSkipped      Type = "task-skipped"
	TaskFailed       Type = "task-failed"
)

// Types lists every event type in lifecycle order.
func Types() []Type {
	return []Type{
		ConversionStart, ConversionFinish,
		DirectoryStart, DirectoryFinish,
		FileStart, FileFinish,
		TaskStart, TaskSucceeded, TaskSkipped, TaskFailed,
	}
}

// IsTaskOutcome reports whether t terminates a task.
func (t Type) IsTaskOutcome() bool {
	return t == TaskSucceeded || t == TaskSkipped || t == TaskFailed
}

// Outcome maps a terminal task event to its outcome.
func (t Type) Outcome() (task.Outcome, bool) {
	switch t {
	case TaskSucceeded:
		return task.Succeeded, true
	case TaskSkipped:
		return task.Skipped, true
	case TaskFailed:
		return task.Failed, true
	}
	return "", false
}

// Event is a single notification. Source and Dest describe the scope the
// event belongs to (the run, a directory or a file).
type Event struct {
	Type   Type
	RunID  string
	Time   time.Time
	Source string
	Dest   string
	// Config is the output configuration in effect for the scope.
	Config outconf.OutputConfig
	// Task is set on task events only.
	Task *task.Task
	// Err is set on task-failed, and on finish events when the scope was
	// aborted.
	Err error
	// Elapsed is set on finish and task outcome events.
	Elapsed time.Duration
	// Bytes is the number of bytes written, set on task-succeeded.
	Bytes int
}

// Listener receives events.
type Listener interface {
	Handle(Event)
}

// ListenerFunc adapts a function to [Listener].
type ListenerFunc func(Event)

// Handle calls f(e).
func (f ListenerFunc) Handle(e Event) { f(e) }

// ID identifies a subscription.
type ID uint64

type subscription struct {
	id       ID
	listener Listener
}

// Bus fans events out to subscribers in registration order. The zero value
// is ready to use.
type Bus struct {
	emitMu sync.Mutex // serialises emissions

	mu   sync.RWMutex
	subs []subscription
	next ID
}

// Subscribe registers l and returns its subscription ID.
func (b *Bus) Subscribe(l Listener) ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs = append(b.subs, subscription{id: b.next, listener: l})
	return b.next
}

// Unsubscribe removes a subscription and reports whether it existed.
func (b *Bus) Unsubscribe(id ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit delivers e to every current subscriber. A zero Time is set to now.
// Listeners may subscribe or unsubscribe from within Handle; the change
// applies to the next emission.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	for _, s := range subs {
		s.listener.Handle(e)
	}
}
