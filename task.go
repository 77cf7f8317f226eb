package threadmaster

import (
	"reflect"
	"time"
)

// TaskClass discriminates the kind of wake condition a Task carries, and
// which structure currently owns its record.
type TaskClass int

const (
	// ClassUnused marks a record sitting on the free list.
	ClassUnused TaskClass = iota
	// ClassRead is armed on a descriptor becoming readable.
	ClassRead
	// ClassWrite is armed on a descriptor becoming writable.
	ClassWrite
	// ClassTimer fires at an absolute monotonic deadline, foreground priority.
	ClassTimer
	// ClassEvent is queued for immediate dispatch by user code.
	ClassEvent
	// ClassReady has been promoted and awaits dispatch from the ready list.
	ClassReady
	// ClassBackground fires at an absolute monotonic deadline, lowest priority.
	ClassBackground
	// ClassExecute is synthetic, used only by Execute's ephemeral record.
	ClassExecute
)

// String renders the class name for logging and panic messages.
func (c TaskClass) String() string {
	switch c {
	case ClassUnused:
		return "Unused"
	case ClassRead:
		return "Read"
	case ClassWrite:
		return "Write"
	case ClassTimer:
		return "Timer"
	case ClassEvent:
		return "Event"
	case ClassReady:
		return "Ready"
	case ClassBackground:
		return "Background"
	case ClassExecute:
		return "Execute"
	default:
		return "Invalid"
	}
}

// classBit maps a TaskClass onto the accounting table's class bitmap.
func classBit(c TaskClass) uint32 {
	if c <= ClassUnused || c > ClassExecute {
		return 0
	}
	return 1 << uint(c-1)
}

// Func is the shape every task-bound callable takes: the task record
// itself, so the function may introspect its own class, argument, or wake
// condition (see CurrentTask).
type Func func(t *Task)

// Task is one pending or recently-completed unit of work. Per invariant 1
// (§3 of the scheduler design), a Task is in exactly one of: the read
// descriptor array slot for its fd, the write descriptor array slot, the
// timer heap, the background heap, the event list, the ready list, or the
// free list, at every observation point.
type Task struct {
	class     TaskClass
	origClass TaskClass // preserved across promotion, for accounting

	fn  Func
	arg any

	fd       int       // wake condition for ClassRead / ClassWrite
	deadline time.Time // wake condition for ClassTimer / ClassBackground
	value    int       // wake condition for ClassEvent / ClassExecute

	master *Master

	heapIndex int // current slot in its heap; -1 when not in a heap

	prev, next *Task // list links when in the event or ready list

	handle *Handle // back-reference slot; cleared before recycling

	yieldBudget time.Duration
	startTime   time.Time

	acct     *AccountingEntry
	funcPtr  uintptr
	funcName string

	siteFunc string
	siteFile string
	siteLine int

	nextFree *Task // free-list link; only meaningful on the free list
}

// Class reports the task's current class.
func (t *Task) Class() TaskClass { return t.class }

// Arg reports the argument pointer the task was submitted with.
func (t *Task) Arg() any { return t.arg }

// FD reports the wake-condition descriptor for ClassRead/ClassWrite tasks.
func (t *Task) FD() int { return t.fd }

// Deadline reports the wake-condition deadline for ClassTimer/ClassBackground tasks.
func (t *Task) Deadline() time.Time { return t.deadline }

// Value reports the wake-condition integer for ClassEvent/ClassExecute tasks.
func (t *Task) Value() int { return t.value }

// debugSite renders the submission-site debug triple for diagnostics.
func (t *Task) debugSite() string {
	if t.siteFunc == "" {
		return "<unknown site>"
	}
	return t.siteFunc + " (" + t.siteFile + ":" + itoa(t.siteLine) + ")"
}

// funcIdentity derives a stable identity for a Func value, used as the
// accounting table's key. Go has no portable function-pointer equality
// across closures, but reflect.Value.Pointer() on a func value returns the
// entry point of the underlying code — identical for every closure created
// from the same func literal, which is the common case for task callbacks
// and the closest idiomatic analog to the C design's "function pointer"
// hash key.
func funcIdentity(fn Func) (uintptr, string) {
	v := reflect.ValueOf(fn)
	ptr := v.Pointer()
	name := "unknown"
	if rf := runtimeFuncForPC(ptr); rf != nil {
		name = rf.Name()
	}
	return ptr, name
}

// acquire pops the free list head, or allocates a fresh record if empty.
// The accounting link is rebound only if (funcPtr, funcName) differs from
// what the reused record already carries — the "last-used" short-circuit
// of §4.1, since consecutive acquisitions overwhelmingly target the same
// task function.
// acquire must be called with m.mu already held — every submission path
// holds the lock across the acquire-then-link sequence so a task record
// is never observable outside every structure it could belong to.
func (m *Master) acquire(fn Func, arg any, siteFunc, siteFile string, line int) *Task {
	var t *Task
	if m.freeList != nil {
		t = m.freeList
		m.freeList = t.nextFree
		t.nextFree = nil
	} else {
		t = &Task{heapIndex: -1}
	}

	ptr, name := funcIdentity(fn)
	if t.funcPtr != ptr || t.funcName != name {
		t.funcPtr = ptr
		t.funcName = name
		t.acct = m.accounting.lookup(ptr, name)
	}
	t.acct.incActive()

	t.fn = fn
	t.arg = arg
	t.master = m
	t.heapIndex = -1
	t.prev, t.next = nil, nil
	t.handle = nil
	t.yieldBudget = m.yieldBudget
	t.startTime = time.Time{}
	t.siteFunc, t.siteFile, t.siteLine = siteFunc, siteFile, line
	return t
}

// release transitions t to ClassUnused, decrements its accounting entry's
// active count, detaches any list links, and pushes it onto the free list.
// Must be called only when t is not linked into any active structure, and
// only with t.master.mu already held (see acquire).
func (t *Task) release() {
	t.class = ClassUnused
	if t.acct != nil {
		t.acct.decActive()
	}
	t.prev, t.next = nil, nil
	t.heapIndex = -1
	t.arg = nil
	t.fn = nil
	m := t.master
	t.nextFree = m.freeList
	m.freeList = t
}

// clearHandle nulls the back-reference slot, if any, establishing
// invariant 2 (§3): clearing the slot and recycling the record happen
// atomically with respect to external observers because both occur while
// the Master lock is held by the caller (Fetch, Cancel).
func (t *Task) clearHandle() {
	if t.handle != nil {
		t.handle.task = nil
		t.handle = nil
	}
}
