package threadmaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Invariant 4 (§3): heap index stored in each timer record equals that
// record's actual slot in the heap at all times.
func TestTimerHeapIndexInvariant(t *testing.T) {
	m := newTestMaster(t)

	var handles [5]Handle
	for i := range handles {
		_, err := m.AddTimer(func(t *Task) {}, nil, time.Duration(len(handles)-i)*time.Millisecond, &handles[i], "TestTimerHeapIndexInvariant", "invariants_test.go", 0)
		require.NoError(t, err)
	}

	m.mu.Lock()
	for i, task := range m.timers {
		require.Equal(t, i, task.heapIndex)
	}
	m.mu.Unlock()

	// Cancel the middle one and re-check every remaining index.
	m.Cancel(handles[2].Task())

	m.mu.Lock()
	for i, task := range m.timers {
		require.Equal(t, i, task.heapIndex)
	}
	m.mu.Unlock()
}

// Invariant 3 (§3): a descriptor armed for both Read and Write has exactly
// one poll-descriptor entry with both event bits set; disarming one
// direction leaves the other intact; disarming both compacts the array.
func TestIORegistryCombinedDescriptor(t *testing.T) {
	m := newTestMaster(t)

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { _ = unix.Close(fds[0]); _ = unix.Close(fds[1]) })

	var hr, hw Handle
	_, err := m.AddRead(func(t *Task) {}, nil, fds[0], &hr, "TestIORegistryCombinedDescriptor", "invariants_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddWrite(func(t *Task) {}, nil, fds[0], &hw, "TestIORegistryCombinedDescriptor", "invariants_test.go", 0)
	require.NoError(t, err)

	m.mu.Lock()
	require.Len(t, m.io.pfds, 1, "one descriptor, both directions, one pfd entry")
	require.Equal(t, int16(unix.POLLIN|unix.POLLOUT), m.io.pfds[0].Events)
	m.mu.Unlock()

	m.Cancel(hw.Task())

	m.mu.Lock()
	require.Len(t, m.io.pfds, 1, "read direction still armed")
	require.Equal(t, int16(unix.POLLIN), m.io.pfds[0].Events)
	m.mu.Unlock()

	m.Cancel(hr.Task())

	m.mu.Lock()
	require.Len(t, m.io.pfds, 0, "both directions cleared compacts the slot away")
	m.mu.Unlock()
}

// Property 8 (§8): under steady-state input, Fetch on spin=false returns
// false promptly.
func TestFetchIdleReturnsFalseWhenNotSpinning(t *testing.T) {
	m := newTestMaster(t, WithSpin(false))
	start := time.Now()
	_, ok := m.Fetch()
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second)
}

func TestExecuteBypassesScheduling(t *testing.T) {
	m := newTestMaster(t)
	called := false
	fn := func(task *Task) {
		called = true
		require.Equal(t, ClassExecute, task.Class())
	}
	m.Execute(fn, nil, 7)
	require.True(t, called)

	snap := acctSnapshotFor(m, fn)
	require.Equal(t, int64(1), snap.Calls)

	m.mu.Lock()
	require.True(t, m.ready.empty())
	require.True(t, m.events.empty())
	m.mu.Unlock()
}
