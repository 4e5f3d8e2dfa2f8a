package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tesseralabs/ledger/foundation/ledger/notify"
	"github.com/tesseralabs/ledger/foundation/ledger/timers"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

type fakeBlockLog struct {
	height uint64
}

func (f *fakeBlockLog) CurrentHeight() uint64 {
	return f.height
}

type fakeTimers struct {
	seq       timers.Handle
	schedules []time.Time
}

func (f *fakeTimers) Schedule(fireAt time.Time, kind string, timeout time.Duration) timers.Handle {
	f.seq++
	f.schedules = append(f.schedules, fireAt)
	return f.seq
}

type call struct {
	target string
	height uint64
}

type fakeClient struct {
	err   error
	calls []call
}

func (f *fakeClient) Notify(ctx context.Context, target string, height uint64) error {
	f.calls = append(f.calls, call{target: target, height: height})
	return f.err
}

// =============================================================================

func newScheduler(target string) (*notify.Scheduler, *fakeBlockLog, *fakeTimers, *fakeClient) {
	blockLog := fakeBlockLog{}
	tmrs := fakeTimers{}
	client := fakeClient{}

	sched := notify.New(notify.Config{
		BlockLog: &blockLog,
		Timers:   &tmrs,
		Client:   &client,
		Target:   target,
	})

	return sched, &blockLog, &tmrs, &client
}

func TestDebounce(t *testing.T) {
	t.Log("Given the need to coalesce a burst of block appends.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen four blocks land inside one delay window.", testID)
		{
			sched, _, tmrs, _ := newScheduler("http://indexer:9100")

			sched.OnBlockAppended(1)

			if len(tmrs.schedules) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould schedule one notification, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould schedule one notification.", success, testID)

			if !sched.Pending() {
				t.Fatalf("\t%s\tTest %d:\tShould report a pending notification.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report a pending notification.", success, testID)

			sched.OnBlockAppended(2)
			sched.OnBlockAppended(3)
			sched.OnBlockAppended(4)

			if len(tmrs.schedules) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not schedule again while pending, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould not schedule again while pending.", success, testID)
		}
	}
}

func TestExecute(t *testing.T) {
	t.Log("Given the need to deliver the freshest height when an action fires.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen blocks keep landing during the delay window.", testID)
		{
			sched, blockLog, _, client := newScheduler("http://indexer:9100")

			blockLog.height = 1
			sched.OnBlockAppended(1)

			// The log grows before the action fires.
			blockLog.height = 5

			sched.Execute(context.Background())

			if len(client.calls) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould make one outbound call, got %d.", failed, testID, len(client.calls))
			}
			t.Logf("\t%s\tTest %d:\tShould make one outbound call.", success, testID)

			if client.calls[0].height != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould carry the height at fire time, got %d.", failed, testID, client.calls[0].height)
			}
			t.Logf("\t%s\tTest %d:\tShould carry the height at fire time.", success, testID)

			if client.calls[0].target != "http://indexer:9100" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver to the configured target, got %q.", failed, testID, client.calls[0].target)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver to the configured target.", success, testID)

			if sched.Pending() {
				t.Fatalf("\t%s\tTest %d:\tShould go idle after delivery.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould go idle after delivery.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the outbound call fails.", testID)
		{
			sched, _, tmrs, client := newScheduler("http://indexer:9100")
			client.err = errors.New("connection refused")

			sched.OnBlockAppended(1)
			sched.Execute(context.Background())

			if sched.Pending() {
				t.Fatalf("\t%s\tTest %d:\tShould go idle after a failed attempt.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould go idle after a failed attempt.", success, testID)

			// The next append must schedule a fresh notification: there is no
			// retry, the next block supersedes the missed one.
			sched.OnBlockAppended(2)

			if len(tmrs.schedules) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould schedule again on the next append, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould schedule again on the next append.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen the target is cleared before the action fires.", testID)
		{
			sched, _, _, client := newScheduler("http://indexer:9100")

			sched.OnBlockAppended(1)
			sched.Disable()
			sched.Execute(context.Background())

			if len(client.calls) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould skip the outbound call, got %d.", failed, testID, len(client.calls))
			}
			t.Logf("\t%s\tTest %d:\tShould skip the outbound call.", success, testID)

			if sched.Pending() {
				t.Fatalf("\t%s\tTest %d:\tShould go idle after the skip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould go idle after the skip.", success, testID)
		}
	}
}

func TestTargetAdmin(t *testing.T) {
	t.Log("Given the need to administer the index target.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen no target is configured.", testID)
		{
			sched, _, tmrs, _ := newScheduler("")

			sched.OnBlockAppended(1)

			if len(tmrs.schedules) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not schedule without a target, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould not schedule without a target.", success, testID)

			sched.SetTarget("http://indexer:9100")
			sched.OnBlockAppended(2)

			if len(tmrs.schedules) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould schedule once a target is set, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould schedule once a target is set.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen disabling an already-disabled scheduler.", testID)
		{
			sched, _, _, _ := newScheduler("http://indexer:9100")

			sched.Disable()
			sched.Disable()

			if sched.Target() != "" {
				t.Fatalf("\t%s\tTest %d:\tShould stay disabled, got %q.", failed, testID, sched.Target())
			}
			t.Logf("\t%s\tTest %d:\tShould stay disabled.", success, testID)
		}
	}
}

func TestDelay(t *testing.T) {
	t.Log("Given the need to defer notifications by the configured delay.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a block append schedules a notification.", testID)
		{
			blockLog := fakeBlockLog{}
			tmrs := fakeTimers{}
			client := fakeClient{}

			sched := notify.New(notify.Config{
				BlockLog: &blockLog,
				Timers:   &tmrs,
				Client:   &client,
				Target:   "http://indexer:9100",
				Delay:    5 * time.Second,
			})

			before := time.Now()
			sched.OnBlockAppended(1)
			after := time.Now()

			if len(tmrs.schedules) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould schedule one notification, got %d.", failed, testID, len(tmrs.schedules))
			}
			t.Logf("\t%s\tTest %d:\tShould schedule one notification.", success, testID)

			fireAt := tmrs.schedules[0]
			if fireAt.Before(before.Add(5*time.Second)) || fireAt.After(after.Add(5*time.Second)) {
				t.Fatalf("\t%s\tTest %d:\tShould fire one delay from now, got %v.", failed, testID, fireAt)
			}
			t.Logf("\t%s\tTest %d:\tShould fire one delay from now.", success, testID)
		}
	}
}
