package threadmaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// E1: Timer priority over I/O. Register a Read task on a pipe with data
// buffered. Submit a Timer for now+0ms. Expected: the Timer task is
// returned first; the Read task on the next fetch.
func TestE1TimerPriorityOverIO(t *testing.T) {
	m := newTestMaster(t)

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { _ = unix.Close(fds[0]); _ = unix.Close(fds[1]) })
	_, err := unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	_, err = m.AddRead(func(t *Task) {}, nil, fds[0], nil, "TestE1", "scenarios_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddTimer(func(t *Task) {}, nil, 0, nil, "TestE1", "scenarios_test.go", 0)
	require.NoError(t, err)

	first, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassTimer, first.origClass)

	second, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassRead, second.origClass)
}

// E2: Event precedes I/O. Submit an Event. Make a descriptor readable.
// Fetch twice. Expected: Event first, Read second.
func TestE2EventPrecedesIO(t *testing.T) {
	m := newTestMaster(t)

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { _ = unix.Close(fds[0]); _ = unix.Close(fds[1]) })
	_, err := unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	_, err = m.AddEvent(func(t *Task) {}, nil, 1, nil, "TestE2", "scenarios_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddRead(func(t *Task) {}, nil, fds[0], nil, "TestE2", "scenarios_test.go", 0)
	require.NoError(t, err)

	first, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassEvent, first.origClass)

	second, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassRead, second.origClass)
}

// E3: Handle invalidation. Submit a Timer with handle h, delay 10ms. Sleep
// 20ms, fetch once, invoke the task. After dispatch, h reads nil.
func TestE3HandleInvalidation(t *testing.T) {
	m := newTestMaster(t)

	var h Handle
	_, err := m.AddTimer(func(t *Task) {}, nil, 10*time.Millisecond, &h, "TestE3", "scenarios_test.go", 0)
	require.NoError(t, err)
	require.True(t, h.Pending())

	time.Sleep(20 * time.Millisecond)

	snap, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassTimer, snap.origClass)
	require.False(t, h.Pending())

	m.Call(snap)
	require.False(t, h.Pending())
}

// E4: Cancellation from owner. Submit a Write task with handle h; cancel
// via h before the descriptor becomes writable. The poll-descriptor array
// no longer lists that fd's write bit.
func TestE4CancellationFromOwner(t *testing.T) {
	m := newTestMaster(t)

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { _ = unix.Close(fds[0]); _ = unix.Close(fds[1]) })

	var h Handle
	_, err := m.AddWrite(func(t *Task) {}, nil, fds[1], &h, "TestE4", "scenarios_test.go", 0)
	require.NoError(t, err)
	require.True(t, h.Pending())

	m.Cancel(h.Task())
	require.False(t, h.Pending())

	m.mu.Lock()
	for _, pf := range m.io.pfds {
		if int(pf.Fd) == fds[1] {
			require.Zero(t, pf.Events&unix.POLLOUT, "write bit must be cleared after cancel")
		}
	}
	m.mu.Unlock()

	_, ok := m.Fetch()
	require.False(t, ok, "spin=false and nothing else pending")
}

// E5: cancel_event_by_arg. Submit three Event tasks, two with argument A,
// one with B. cancel_event_by_arg(m, A) returns 2; fetching then yields
// only the B-argument task.
func TestE5CancelEventByArg(t *testing.T) {
	m := newTestMaster(t)

	a, b := new(int), new(int)
	_, err := m.AddEvent(func(t *Task) {}, a, 1, nil, "TestE5", "scenarios_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddEvent(func(t *Task) {}, a, 2, nil, "TestE5", "scenarios_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddEvent(func(t *Task) {}, b, 3, nil, "TestE5", "scenarios_test.go", 0)
	require.NoError(t, err)

	n := m.CancelEventByArg(a)
	require.Equal(t, 2, n)

	snap, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, b, snap.arg)

	_, ok = m.Fetch()
	require.False(t, ok)
}

// E6: Background yields to foreground. Submit a Background task with
// deadline now and a Timer with deadline now+5ms. First fetch after 10ms
// returns the Timer; second returns the Background.
func TestE6BackgroundYieldsToForeground(t *testing.T) {
	m := newTestMaster(t)

	_, err := m.AddBackground(func(t *Task) {}, nil, 0, nil, "TestE6", "scenarios_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddTimer(func(t *Task) {}, nil, 5*time.Millisecond, nil, "TestE6", "scenarios_test.go", 0)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	first, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassTimer, first.origClass)

	second, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassBackground, second.origClass)
}
