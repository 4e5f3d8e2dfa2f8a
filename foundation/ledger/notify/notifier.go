package notify

import "context"

// Execute performs the deferred notification. It is registered with the
// delayed-action facility under ActionKind and runs once per fired action.
// The pending state is cleared only after the outbound attempt completes,
// success or failure, so a second notification cannot be scheduled while one
// is in flight.
func (s *Scheduler) Execute(ctx context.Context) {

	// The target can have been cleared between scheduling and firing. That
	// is a normal race, not an error: skip the call and go idle.
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	if target == "" {
		s.evHandler("notify: Execute: target disabled, skipping notification")
		s.clearPending()
		return
	}

	// Read the height at execution time. Any blocks appended during the
	// delay window are covered by this one call.
	height := s.blockLog.CurrentHeight()

	err := s.client.Notify(ctx, target, height)

	s.clearPending()

	if err != nil {
		// Best-effort delivery: log and move on. The payload is always the
		// latest height, so a missed notification is superseded by the next
		// one, and the index service closes any remaining gap by polling.
		s.evHandler("notify: Execute: height[%d] target[%s]: ERROR: %s", height, target, err)
		return
	}

	s.evHandler("notify: Execute: height[%d] target[%s]: delivered", height, target)
}
