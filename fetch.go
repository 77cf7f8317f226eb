package threadmaster

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Fetch is the scheduler's central algorithm (§4.7). It returns the next
// ready task as a snapshot copy, or ok==false if spin is false and
// nothing is ready. Callable only by the owner goroutine.
//
// Each round performs, in order, under the Master lock except where noted:
//
//  1. If handleSignals is set, invoke the signal-drain hook outside the
//     lock — signals preempt other work.
//  2. If the ready list is non-empty, pop its head, release the record,
//     clear its back-reference, and return a snapshot.
//  3. Otherwise drain the event list: every task on it is mass-promoted to
//     the ready list with class Ready.
//  4. If the ready list is still empty, compute the blocking deadline from
//     the two timer heaps, apply the poll-timeout override, and convert to
//     a relative wait.
//  5. Snapshot the poll-descriptor array, with the wake pipe appended.
//  6. Release the lock, call poll, re-acquire the lock.
//  7. On EINTR, restart the round from step 1.
//  8. Drain the foreground timer heap of everything whose deadline has
//     passed, promoting to ready.
//  9. Process poll results: readable/writable descriptors promote their
//     read/write task; invalid descriptors purge their slot; the wake pipe
//     is drained.
//  10. Drain the background heap identically to step 8.
//  11. If the ready list now has a task, return it.
//  12. Otherwise, if spin is true, restart the round; else return
//     (Task{}, false).
func (m *Master) Fetch() (Task, bool) {
	m.assertOwner()

	for {
		if m.handleSignals && m.signalDrainHook != nil {
			m.signalDrainHook() // step 1, outside the lock
		}

		m.mu.Lock()

		if t := m.ready.popHead(); t != nil { // step 2
			snap := *t
			t.clearHandle()
			t.release()
			m.mu.Unlock()
			return snap, true
		}

		m.promoteEvents() // step 3

		if t := m.ready.popHead(); t != nil {
			snap := *t
			t.clearHandle()
			t.release()
			m.mu.Unlock()
			return snap, true
		}

		timeoutMs := m.computeTimeout() // step 4
		fds := m.io.snapshot(m.wake.readFD) // step 5

		m.mu.Unlock()
		n, err := poll(fds, timeoutMs) // step 6
		m.mu.Lock()

		if err == unix.EINTR { // step 7
			m.mu.Unlock()
			continue
		}
		if err != nil {
			warnPollError(m.logger, fmt.Errorf("%w: %w", errPollFailed, err))
			m.mu.Unlock()
			return Task{}, false
		}

		now := time.Now()
		m.drainHeap(&m.timers, now) // step 8

		if n > 0 {
			m.io.applyResults(fds, func(t *Task) { // step 9
				t.class = ClassReady
				m.ready.append(t)
			})
			m.wake.drain()
		}

		m.drainHeap(&m.background, now) // step 10

		if t := m.ready.popHead(); t != nil { // step 11
			snap := *t
			t.clearHandle()
			t.release()
			m.mu.Unlock()
			return snap, true
		}

		spin := m.spin
		m.mu.Unlock()
		if !spin { // step 12
			return Task{}, false
		}
	}
}

// promoteEvents mass-promotes every task on the event list to the ready
// list, per step 3. Individual dispatch does not happen here.
func (m *Master) promoteEvents() {
	for {
		t := m.events.popHead()
		if t == nil {
			return
		}
		t.class = ClassReady
		m.ready.append(t)
	}
}

// drainHeap pops every task whose deadline has passed, promoting each to
// the ready list with class Ready, per steps 8/10. Tasks remain in the
// heap otherwise, per the "never fire earlier" guarantee of §5.
func (m *Master) drainHeap(h *timerHeap, now time.Time) {
	for {
		t := h.peek()
		if t == nil || t.deadline.After(now) {
			return
		}
		h.dequeue()
		t.class = ClassReady
		m.ready.append(t)
	}
}

// computeTimeout implements step 4: the minimum of the two heaps' head
// deadlines, converted to a relative millisecond wait, with the
// pollTimeoutOverride sign semantics applied: positive is a hard cap,
// negative means zero wait, zero leaves the computed value unchanged. -1
// (poll's "block indefinitely") is returned when no timer exists, no
// override is set and spin is true; with spin false that case is a zero
// wait instead, so an idle Fetch returns rather than blocking.
func (m *Master) computeTimeout() int {
	if m.pollTimeoutOverride < 0 {
		return 0
	}

	deadline, ok := earliestDeadline(&m.timers, &m.background)
	var timeoutMs int
	if !ok {
		timeoutMs = -1
	} else {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		timeoutMs = int(d.Milliseconds())
	}

	if m.pollTimeoutOverride > 0 {
		capMs := int(m.pollTimeoutOverride.Milliseconds())
		if timeoutMs < 0 || timeoutMs > capMs {
			timeoutMs = capMs
		}
	}
	if timeoutMs < 0 && !m.spin {
		timeoutMs = 0
	}
	return timeoutMs
}
