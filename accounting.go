package threadmaster

import (
	"sync"
	"time"
)

// AccountingEntry aggregates call and timing statistics for one distinct
// task function, identified by code-pointer identity (§3's "Accounting
// entry", grounded on the original's per-function cpu_record hash
// entries). It is safe for concurrent use; all accessors take the entry's
// own lock.
type AccountingEntry struct {
	mu sync.Mutex

	funcPtr  uintptr
	funcName string

	classes uint32 // bitmap of TaskClass values this function has run under

	active int64 // count of non-Unused records currently bound to this entry

	calls int64

	wallSumMicros int64
	wallMaxMicros int64
	cpuSumMicros  int64
	cpuMaxMicros  int64

	wallQuantiles *latencyQuantiles
	cpuQuantiles  *latencyQuantiles
}

// AccountingSnapshot is a point-in-time copy of an AccountingEntry's
// counters, safe to read without holding any lock, returned by
// AccountingTable.Each.
type AccountingSnapshot struct {
	FuncName string
	Classes  uint32
	Active   int64
	Calls    int64

	WallSum time.Duration
	WallMax time.Duration
	CPUSum  time.Duration
	CPUMax  time.Duration

	// WallP50/WallP95/WallP99 and CPUP50/CPUP95/CPUP99 are streaming
	// percentile estimates (P-Square algorithm), an enrichment beyond the
	// original design's sum/max pair.
	WallP50, WallP95, WallP99 time.Duration
	CPUP50, CPUP95, CPUP99    time.Duration
}

func newAccountingEntry(ptr uintptr, name string) *AccountingEntry {
	return &AccountingEntry{
		funcPtr:       ptr,
		funcName:      name,
		wallQuantiles: newLatencyQuantiles(0.50, 0.95, 0.99),
		cpuQuantiles:  newLatencyQuantiles(0.50, 0.95, 0.99),
	}
}

func (e *AccountingEntry) incActive() {
	e.mu.Lock()
	e.active++
	e.mu.Unlock()
}

func (e *AccountingEntry) decActive() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

// credit records one completed invocation's timing under the given
// original class, per §4.10's call() accounting hook.
func (e *AccountingEntry) credit(class TaskClass, wall, cpu time.Duration) {
	wallUs := wall.Microseconds()
	cpuUs := cpu.Microseconds()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.classes |= classBit(class)
	e.calls++

	e.wallSumMicros += wallUs
	if wallUs > e.wallMaxMicros {
		e.wallMaxMicros = wallUs
	}
	e.cpuSumMicros += cpuUs
	if cpuUs > e.cpuMaxMicros {
		e.cpuMaxMicros = cpuUs
	}

	e.wallQuantiles.Update(float64(wallUs))
	e.cpuQuantiles.Update(float64(cpuUs))
}

func (e *AccountingEntry) snapshot() AccountingSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return AccountingSnapshot{
		FuncName: e.funcName,
		Classes:  e.classes,
		Active:   e.active,
		Calls:    e.calls,
		WallSum:  time.Duration(e.wallSumMicros) * time.Microsecond,
		WallMax:  time.Duration(e.wallMaxMicros) * time.Microsecond,
		CPUSum:   time.Duration(e.cpuSumMicros) * time.Microsecond,
		CPUMax:   time.Duration(e.cpuMaxMicros) * time.Microsecond,
		WallP50:  time.Duration(e.wallQuantiles.Quantile(0)) * time.Microsecond,
		WallP95:  time.Duration(e.wallQuantiles.Quantile(1)) * time.Microsecond,
		WallP99:  time.Duration(e.wallQuantiles.Quantile(2)) * time.Microsecond,
		CPUP50:   time.Duration(e.cpuQuantiles.Quantile(0)) * time.Microsecond,
		CPUP95:   time.Duration(e.cpuQuantiles.Quantile(1)) * time.Microsecond,
		CPUP99:   time.Duration(e.cpuQuantiles.Quantile(2)) * time.Microsecond,
	}
}

func (e *AccountingEntry) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.classes = 0
	e.calls = 0
	e.wallSumMicros, e.wallMaxMicros = 0, 0
	e.cpuSumMicros, e.cpuMaxMicros = 0, 0
	e.wallQuantiles.Reset()
	e.cpuQuantiles.Reset()
}

// AccountingTable is a process-wide mapping from task function identity to
// AccountingEntry, per §4.2. Each Master gets its own table unless one is
// shared between Masters via WithAccountingTable. It is guarded by its own
// lock, independent of any Master's lock, because entries are touched both
// during submission (active++) and during execution (calls, timing, class
// bitmap). Submission and dispatch take the table and entry locks while
// the Master lock is held; no Master lock is ever taken while an
// accounting lock is held.
type AccountingTable struct {
	mu      sync.Mutex
	entries map[uintptr]*AccountingEntry
}

// NewAccountingTable creates an empty accounting table. A fresh table may
// be injected into a Master via WithAccountingTable, or Masters may share
// one process-wide table by passing the same *AccountingTable to each —
// per §9's design note, the table is a dedicated object with its own lock,
// never a module-level singleton.
func NewAccountingTable() *AccountingTable {
	return &AccountingTable{entries: make(map[uintptr]*AccountingEntry)}
}

// lookup returns the entry for (ptr, name), allocating on miss with the
// function name captured from the first insertion.
func (a *AccountingTable) lookup(ptr uintptr, name string) *AccountingEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[ptr]
	if !ok {
		e = newAccountingEntry(ptr, name)
		a.entries[ptr] = e
	}
	return e
}

// Each iterates every accounting entry whose class bitmap intersects
// classFilter (pass 0 to visit every entry), invoking fn with a snapshot.
// This is the iteration surface named in §6 ("Accounting display"),
// supplemented per SPEC_FULL.md to expose a typed Go iterator in place of
// the original's VTY-bound cpu_record_print, which is out of scope.
func (a *AccountingTable) Each(classFilter uint32, fn func(AccountingSnapshot)) {
	a.mu.Lock()
	entries := make([]*AccountingEntry, 0, len(a.entries))
	for _, e := range a.entries {
		entries = append(entries, e)
	}
	a.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		match := classFilter == 0 || e.classes&classFilter != 0
		e.mu.Unlock()
		if match {
			fn(e.snapshot())
		}
	}
}

// Clear resets the call/timing counters (not Active, which reflects live
// records) of every entry whose class bitmap intersects classFilter (0 for
// all entries). Mirrors the original's cpu_record_clear filter-and-reset,
// without its VTY output formatting.
func (a *AccountingTable) Clear(classFilter uint32) {
	a.mu.Lock()
	entries := make([]*AccountingEntry, 0, len(a.entries))
	for _, e := range a.entries {
		entries = append(entries, e)
	}
	a.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		match := classFilter == 0 || e.classes&classFilter != 0
		e.mu.Unlock()
		if match {
			e.reset()
		}
	}
}
