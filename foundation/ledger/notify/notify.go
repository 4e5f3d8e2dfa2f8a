// Package notify watches the ledger's block log and informs the companion
// index service of new blocks. Notifications are debounced: a burst of block
// appends inside one delay window coalesces into a single outbound call
// carrying the height observed at execution time. Delivery is best-effort
// with no retry; the next block append naturally schedules a fresh
// notification, and the index service runs its own slow-polling fallback.
package notify

import (
	"sync"
	"time"

	"github.com/tesseralabs/ledger/foundation/ledger/indexer"
	"github.com/tesseralabs/ledger/foundation/ledger/timers"
)

// ActionKind is the action kind the scheduler's execution callback must be
// registered under with the delayed-action facility.
const ActionKind = "index-notify"

// Default durations for the reference deployment.
const (
	DefaultDelay   = 2 * time.Second
	DefaultTimeout = 60 * time.Second
)

// EventHandler defines a function that is called when events occur in the
// processing of notifications.
type EventHandler func(v string, args ...any)

// BlockLog is the capability the notifier needs from the ledger's block log.
// The height is read at execution time, not at scheduling time, so the
// notification always carries the freshest height.
type BlockLog interface {
	CurrentHeight() uint64
}

// Scheduling is the capability needed from the delayed-action facility.
type Scheduling interface {
	Schedule(fireAt time.Time, kind string, timeout time.Duration) timers.Handle
}

// =============================================================================

// Config represents the dependencies and settings needed to construct
// a Scheduler.
type Config struct {
	BlockLog  BlockLog
	Timers    Scheduling
	Client    indexer.Client
	Target    string
	Delay     time.Duration
	Timeout   time.Duration
	EvHandler EventHandler
}

// Scheduler decides, on each block-append event, whether to schedule a
// deferred notification. At most one notification is pending at any time:
// appends that arrive while one is pending are covered by it for free, since
// the height is read when the action fires.
type Scheduler struct {
	blockLog  BlockLog
	timers    Scheduling
	client    indexer.Client
	delay     time.Duration
	timeout   time.Duration
	evHandler EventHandler

	mu      sync.Mutex
	target  string
	pending *timers.Handle
}

// New constructs a Scheduler. An empty target disables the subsystem until
// an administrative call sets one.
func New(cfg Config) *Scheduler {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Scheduler{
		blockLog:  cfg.BlockLog,
		timers:    cfg.Timers,
		client:    cfg.Client,
		delay:     delay,
		timeout:   timeout,
		evHandler: ev,
		target:    cfg.Target,
	}
}

// OnBlockAppended implements the block log's append-listener contract. The
// check and set of the pending handle happen under one lock so two
// interleaved append events cannot both schedule an action.
func (s *Scheduler) OnBlockAppended(height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == "" {
		return
	}

	if s.pending != nil {
		s.evHandler("notify: OnBlockAppended: height[%d]: notification already pending", height)
		return
	}

	handle := s.timers.Schedule(time.Now().Add(s.delay), ActionKind, s.timeout)
	s.pending = &handle

	s.evHandler("notify: OnBlockAppended: height[%d]: scheduled handle[%d]", height, handle)
}

// =============================================================================
// Administrative surface. Authorization is the caller's responsibility.

// SetTarget sets the index service address notifications are delivered to.
func (s *Scheduler) SetTarget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = target
	s.evHandler("notify: SetTarget: target[%s]", target)
}

// Disable clears the index target so no new notification is scheduled. An
// already-executing notification may still complete; it re-checks the target
// itself. Disabling an already-disabled scheduler is a no-op.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = ""
	s.evHandler("notify: Disable: index notifications disabled")
}

// Target returns the configured index service address. Empty means the
// subsystem is disabled.
func (s *Scheduler) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.target
}

// Pending reports whether a notification is scheduled but not yet executed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending != nil
}

// =============================================================================

// clearPending returns the scheduler to its idle state so the next block
// append schedules a fresh notification.
func (s *Scheduler) clearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
}
