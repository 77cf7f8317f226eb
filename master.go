package threadmaster

import (
	"sync"
	"time"
)

// Master owns all pending tasks and is bound at creation to one owner
// goroutine — the only goroutine permitted to call Fetch and Cancel (§2,
// §4.8). Other goroutines may submit concurrently through the Add*
// methods; submissions wake the owner via the self-pipe.
type Master struct {
	mu sync.Mutex

	ownerGoroutine int64

	io                 *ioRegistry
	timers, background timerHeap
	ready, events       taskList
	freeList           *Task

	wake *wakePipe

	spin                bool
	handleSignals       bool
	signalDrainHook     func()
	pollTimeoutOverride time.Duration
	yieldBudget         time.Duration
	slowTaskThreshold   time.Duration

	logger     *logger
	accounting *AccountingTable

	closed bool

	// currentTask lets a running task's function introspect its own
	// record (§4.10's process-global current_task), set by call() around
	// invocation and cleared after.
	currentTask *Task
}

// NewMaster creates a Master bound to the calling goroutine as owner. The
// descriptor-indexed arrays and poll-descriptor array are sized from the
// process open-file soft limit unless WithDescriptorLimit overrides it
// (§3). A setup failure returns a nil Master together with a non-nil
// error, the idiomatic Go rendering of "return null to caller" (§7).
func NewMaster(opts ...MasterOption) (*Master, error) {
	o := resolveMasterOptions(opts)

	limit := o.descriptorLimit
	if limit <= 0 {
		l, err := descriptorSoftLimit()
		if err != nil {
			return nil, err
		}
		limit = l
	}

	wp, err := newWakePipe()
	if err != nil {
		return nil, err
	}

	m := &Master{
		ownerGoroutine:      goroutineID(),
		io:                  newIORegistry(limit),
		wake:                wp,
		spin:                o.spin,
		handleSignals:       o.handleSignals,
		signalDrainHook:     o.signalDrainHook,
		pollTimeoutOverride: o.pollTimeoutOverride,
		yieldBudget:         o.yieldBudget,
		slowTaskThreshold:   o.slowTaskThreshold,
		logger:              o.logger,
		accounting:          o.accounting,
	}
	m.timers = timerHeap{}
	m.background = timerHeap{}
	return m, nil
}

// Destroy releases the wake pipe and marks the Master closed; further
// submissions return ErrClosed. Matches §6's destroy_master.
func (m *Master) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.wake.close()
}

// FreeUnused drops the free list, letting the garbage collector reclaim
// recycled records immediately rather than holding them for reuse. Per
// §9's design note, a Go re-implementation may eliminate the free list
// entirely since record construction is cheap; FreeUnused is the explicit
// opt-in for that, matching §6's free_unused(m).
func (m *Master) FreeUnused() {
	m.mu.Lock()
	m.freeList = nil
	m.mu.Unlock()
}

// AccountingTable returns the Master's accounting table, for display or
// clearing via AccountingTable.Each / AccountingTable.Clear (§6).
func (m *Master) AccountingTable() *AccountingTable { return m.accounting }

// assertOwner panics per §7/§4.8 if called from a goroutine other than the
// one that created the Master.
func (m *Master) assertOwner() {
	if goroutineID() != m.ownerGoroutine {
		cancelNotOwner()
	}
}

// CurrentTask returns the task record currently executing on the owner
// goroutine, or nil if none is executing (set around Call, §4.10).
func (m *Master) CurrentTask() *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTask
}

// TimerRemain reports the time until t's deadline, or zero if it has
// already passed. Matches §6's timer_remain / timer_remain_seconds,
// collapsed into one Duration-returning method per Go idiom.
func TimerRemain(t *Task) time.Duration {
	d := time.Until(t.deadline)
	if d < 0 {
		return 0
	}
	return d
}

// ShouldYield reports whether t has been running longer than its yield
// budget, per §6 and §9's supplemented semantics: a wall-clock comparison
// against the record's start timestamp plus yield budget.
func ShouldYield(t *Task) bool {
	return time.Since(t.startTime) > t.yieldBudget
}

// SetYieldTime overrides t's yield budget (§6's set_yield_time).
func SetYieldTime(t *Task, d time.Duration) {
	t.yieldBudget = d
}
