// Package threadmaster implements a single-process cooperative task
// scheduler: one executing stream, multiplexing I/O readiness, timers,
// deferred events, and background work.
//
// # Core concept
//
// A [Master] owns all pending work and is bound at creation to one owner
// goroutine — the only goroutine permitted to call [Master.Fetch] and
// [Master.Cancel]. Other goroutines may submit new tasks concurrently
// through the Add* methods; submissions wake the owner via a self-pipe.
//
// The owner runs a loop:
//
//	for {
//	    snap, ok := m.Fetch()
//	    if !ok {
//	        break // spin == false and nothing is ready
//	    }
//	    m.Call(snap)
//	}
//
// [Master.Fetch] blends four sources of work — a ready queue, an event
// queue, two timer heaps, and descriptor I/O — into one priority-ordered
// decision, blocking in poll(2) only when nothing is immediately ready.
// See [Master.Fetch] for the full algorithm and priority discipline.
//
// # Task classes
//
// Every submitted [Task] belongs to exactly one of [ClassRead],
// [ClassWrite], [ClassTimer], [ClassEvent], [ClassReady], [ClassBackground],
// [ClassExecute], or [ClassUnused] (free-list) at any moment, per the
// single-structure invariant documented on [Task].
//
// # Accounting
//
// Every task function is tracked in an [AccountingTable] (private to each
// Master by default, or shared between Masters via [WithAccountingTable]) keyed
// by function pointer identity, aggregating call counts, wall-clock and
// CPU time sums/maxima, and streaming percentile estimates. See
// [NewAccountingTable] and [AccountingTable.Each].
//
// # Handles
//
// A submission may be given a caller-owned handle slot ([*Handle]); the
// scheduler writes the new task into it and guarantees the slot reads nil
// again as soon as the task dispatches or is cancelled — see [Handle] for
// the precise idempotence and lifecycle contract.
//
// # Usage
//
//	m, err := threadmaster.NewMaster(threadmaster.WithSpin(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Destroy()
//
//	var h threadmaster.Handle
//	m.AddTimer(func(t *threadmaster.Task) {
//	    fmt.Println("fired")
//	}, nil, 100*time.Millisecond, &h, "main", "main.go", 42)
//
//	for {
//	    snap, ok := m.Fetch()
//	    if !ok {
//	        break
//	    }
//	    m.Call(snap)
//	}
//
// # Platforms
//
// This package targets POSIX systems with poll(2): linux, darwin, netbsd,
// freebsd, openbsd, dragonfly.
package threadmaster
