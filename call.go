package threadmaster

import (
	"time"

	"golang.org/x/sys/unix"
)

// Call executes a task obtained from Fetch, implementing §4.10's call()
// accounting hook: it captures wall-clock and CPU-time start (user+system,
// via getrusage — the platform resource-usage syscall), runs the
// function, captures end times, credits the accounting entry with the
// deltas, and ORs the task's original class into the class bitmap. If the
// wall-clock elapsed exceeds the configured slow-task threshold, a warning
// is logged identifying the function name and durations.
//
// A panic escaping fn is recovered and logged rather than propagated,
// mirroring the donor module's safeExecute boundary around task
// invocation — the owner goroutine must never die because one task body
// panicked.
func (m *Master) Call(t Task) {
	m.mu.Lock()
	m.currentTask = &t
	m.mu.Unlock()

	wallStart := time.Now()
	t.startTime = wallStart
	cpuStart := cpuTimeSelf()

	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(m.logger, t.funcName, r)
			}
		}()
		t.fn(&t)
	}()

	wall := time.Since(wallStart)
	cpu := cpuTimeSelf() - cpuStart

	if t.acct != nil {
		t.acct.credit(t.origClass, wall, cpu)
	}
	if wall > m.slowTaskThreshold {
		warnSlowTask(m.logger, t.funcName, wall, cpu)
	}

	m.mu.Lock()
	m.currentTask = nil
	m.mu.Unlock()
}

// cpuTimeSelf returns cumulative process user+system CPU time via
// getrusage(RUSAGE_SELF). Per the single-threaded cooperative model (§5),
// the delta between two calls bracketing one task's execution is that
// task's CPU consumption, since no other task runs concurrently on the
// owner goroutine.
func cpuTimeSelf() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	user := time.Duration(ru.Utime.Sec)*time.Second + time.Duration(ru.Utime.Usec)*time.Microsecond
	sys := time.Duration(ru.Stime.Sec)*time.Second + time.Duration(ru.Stime.Usec)*time.Microsecond
	return user + sys
}
