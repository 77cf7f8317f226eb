package threadmaster

import "errors"

// Sentinel errors returned by the submission and lifecycle API. Per §7,
// none of these represent a retryable condition — the scheduler is
// synchronous and retry policy belongs to the caller's tasks.
var (
	// ErrDescriptorLimit is returned when a descriptor argument to AddRead
	// or AddWrite is outside [0, limit), where limit is the Master's
	// descriptor limit (WithDescriptorLimit, or the open-file soft limit).
	ErrDescriptorLimit = errors.New("threadmaster: descriptor out of range")

	// ErrClosed is returned by submission methods called after Destroy.
	ErrClosed = errors.New("threadmaster: master closed")

	// errPollFailed wraps an unexpected poll(2) error (§7 "other poll
	// errors"); fetch logs it and returns (Task{}, false) rather than
	// propagating it, since the run-loop API has no error return of its
	// own. Kept internal since callers never see an error value, only the
	// logged warning and an empty fetch result.
	errPollFailed = errors.New("threadmaster: poll failed")
)

// cancelNotLinked panics with a message identifying the task; per §7,
// cancelling a task record that is not currently linked into any
// structure is a programmer error, not a recoverable condition.
func cancelNotLinked(t *Task) {
	if t == nil {
		panic("threadmaster: cancel of nil task")
	}
	panic("threadmaster: cancel of task not linked into any structure: " + t.debugSite())
}

// cancelNotOwner panics; per §7 and §4.8, Cancel is callable only by the
// Master's owner goroutine.
func cancelNotOwner() {
	panic("threadmaster: cancel called from non-owner goroutine")
}
