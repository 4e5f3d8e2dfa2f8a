// Package timers provides the delayed-action facility used to run scheduled
// work after a delay. Handlers are registered per action kind and fired
// actions run them on their own goroutine with a timeout-bounded context.
// Registrations and scheduled actions live only in memory: everything here
// is lost across a restart and must be re-established on startup.
package timers

import (
	"context"
	"sync"
	"time"
)

// EventHandler defines a function that is called when events occur in the
// processing of scheduled actions.
type EventHandler func(v string, args ...any)

// Handle identifies a scheduled-but-not-yet-executed action.
type Handle uint64

// Handler executes a fired action. The provided context is bounded by the
// timeout the action was scheduled with.
type Handler func(ctx context.Context)

// =============================================================================

// Timers manages the registered execution callbacks and the set of scheduled
// actions that have not fired yet.
type Timers struct {
	mu        sync.Mutex
	wg        sync.WaitGroup
	seq       Handle
	handlers  map[string]Handler
	active    map[Handle]*time.Timer
	shutdown  bool
	evHandler EventHandler
}

// New constructs the delayed-action facility.
func New(evHandler EventHandler) *Timers {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Timers{
		handlers:  make(map[string]Handler),
		active:    make(map[Handle]*time.Timer),
		evHandler: ev,
	}
}

// RegisterExecutionCallback registers the handler to run when an action of
// the specified kind fires. Registering an existing kind replaces the
// previous handler.
func (t *Timers) RegisterExecutionCallback(kind string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handlers[kind] = handler
	t.evHandler("timers: RegisterExecutionCallback: kind[%s]", kind)
}

// Schedule arranges for the handler registered under kind to run at the
// specified time with the specified execution timeout. The returned handle
// identifies the pending action. A fired action always runs to completion,
// there is no cancellation.
func (t *Timers) Schedule(fireAt time.Time, kind string, timeout time.Duration) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	handle := t.seq

	t.active[handle] = time.AfterFunc(time.Until(fireAt), func() {
		t.execute(handle, kind, timeout)
	})

	t.evHandler("timers: Schedule: kind[%s] handle[%d] fireAt[%v]", kind, handle, fireAt)

	return handle
}

// Shutdown stops every action that has not fired yet and waits for any
// executing handler to complete.
func (t *Timers) Shutdown() {
	t.mu.Lock()
	t.shutdown = true
	for handle, timer := range t.active {
		timer.Stop()
		delete(t.active, handle)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// =============================================================================

// execute runs the handler registered for the fired action's kind.
func (t *Timers) execute(handle Handle, kind string, timeout time.Duration) {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return
	}
	delete(t.active, handle)
	handler := t.handlers[kind]
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()

	if handler == nil {
		t.evHandler("timers: execute: kind[%s] handle[%d]: no handler registered", kind, handle)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	t.evHandler("timers: execute: kind[%s] handle[%d]: started", kind, handle)
	handler(ctx)
	t.evHandler("timers: execute: kind[%s] handle[%d]: completed", kind, handle)
}
