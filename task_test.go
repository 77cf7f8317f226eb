package threadmaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestMaster(t *testing.T, opts ...MasterOption) *Master {
	t.Helper()
	m, err := NewMaster(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Destroy() })
	return m
}

func TestAcquireReleaseAccounting(t *testing.T) {
	m := newTestMaster(t)

	fn := func(t *Task) {}

	var h Handle
	_, err := m.AddEvent(fn, nil, 1, &h, "TestAcquireReleaseAccounting", "task_test.go", 0)
	require.NoError(t, err)
	require.True(t, h.Pending())

	snap := acctSnapshotFor(m, fn)
	require.Equal(t, int64(1), snap.Active)

	task := h.Task()
	require.NotNil(t, task)

	// dispatch via Fetch, which releases the record.
	out, ok := m.Fetch()
	require.True(t, ok)
	require.Equal(t, ClassReady, out.class)
	require.False(t, h.Pending(), "handle must be nil after dispatch")

	snap = acctSnapshotFor(m, fn)
	require.Equal(t, int64(0), snap.Active)
}

func TestHandleIdempotence(t *testing.T) {
	m := newTestMaster(t)
	fn := func(t *Task) {}

	var h Handle
	first, err := m.AddEvent(fn, nil, 1, &h, "TestHandleIdempotence", "task_test.go", 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := m.AddEvent(fn, nil, 2, &h, "TestHandleIdempotence", "task_test.go", 0)
	require.NoError(t, err)
	require.Nil(t, second, "submission through an already-live handle must no-op")
	require.Equal(t, 1, h.Task().Value(), "the slot must be unchanged by the no-op submission")
}

func acctSnapshotFor(m *Master, fn Func) AccountingSnapshot {
	ptr, name := funcIdentity(fn)
	return m.accounting.lookup(ptr, name).snapshot()
}

func TestFreeListReuse(t *testing.T) {
	m := newTestMaster(t)
	fn := func(t *Task) {}

	_, err := m.AddEvent(fn, nil, 1, nil, "TestFreeListReuse", "task_test.go", 0)
	require.NoError(t, err)
	_, ok := m.Fetch()
	require.True(t, ok)

	m.mu.Lock()
	require.NotNil(t, m.freeList, "released record should be recycled onto the free list")
	m.mu.Unlock()

	_, err = m.AddEvent(fn, nil, 2, nil, "TestFreeListReuse", "task_test.go", 0)
	require.NoError(t, err)

	m.FreeUnused()
	m.mu.Lock()
	require.Nil(t, m.freeList)
	m.mu.Unlock()
}

func TestTimerNeverFiresEarly(t *testing.T) {
	m := newTestMaster(t, WithPollTimeoutOverride(5*time.Millisecond))

	start := time.Now()
	_, err := m.AddTimer(func(t *Task) {}, nil, 30*time.Millisecond, nil, "TestTimerNeverFiresEarly", "task_test.go", 0)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Fetch(); ok {
			require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
			return
		}
	}
	t.Fatal("timer never became ready")
}
