package threadmaster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAccountingTableEachFiltersByClass and TestAccountingTableClearFiltersByClass
// exercise the Each/Clear iteration surface (§6, supplemented per
// SPEC_FULL.md) end to end through the Master API, rather than reaching
// into AccountingEntry directly.
func TestAccountingTableEachFiltersByClass(t *testing.T) {
	m := newTestMaster(t)

	eventFn := func(t *Task) {}
	timerFn := func(t *Task) {}

	_, err := m.AddEvent(eventFn, nil, 1, nil, "TestAccountingTableEachFiltersByClass", "accounting_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddTimer(timerFn, nil, 0, nil, "TestAccountingTableEachFiltersByClass", "accounting_test.go", 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		snap, ok := m.Fetch()
		require.True(t, ok)
		m.Call(snap)
	}

	var eventOnly []AccountingSnapshot
	m.AccountingTable().Each(classBit(ClassEvent), func(s AccountingSnapshot) {
		eventOnly = append(eventOnly, s)
	})
	require.Len(t, eventOnly, 1, "filtering by ClassEvent's bit must exclude the timer entry")
	require.Equal(t, int64(1), eventOnly[0].Calls)
	require.Equal(t, classBit(ClassEvent), eventOnly[0].Classes)

	var all []AccountingSnapshot
	m.AccountingTable().Each(0, func(s AccountingSnapshot) {
		all = append(all, s)
	})
	require.Len(t, all, 2, "a zero filter must visit every entry")
}

func TestAccountingTableClearFiltersByClass(t *testing.T) {
	m := newTestMaster(t)

	eventFn := func(t *Task) {}
	timerFn := func(t *Task) {}

	_, err := m.AddEvent(eventFn, nil, 1, nil, "TestAccountingTableClearFiltersByClass", "accounting_test.go", 0)
	require.NoError(t, err)
	_, err = m.AddTimer(timerFn, nil, 0, nil, "TestAccountingTableClearFiltersByClass", "accounting_test.go", 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		snap, ok := m.Fetch()
		require.True(t, ok)
		m.Call(snap)
	}

	require.Equal(t, int64(1), acctSnapshotFor(m, eventFn).Calls)
	require.Equal(t, int64(1), acctSnapshotFor(m, timerFn).Calls)

	m.AccountingTable().Clear(classBit(ClassEvent))

	require.Equal(t, int64(0), acctSnapshotFor(m, eventFn).Calls, "matching entry's counters must reset")
	require.Equal(t, int64(0), acctSnapshotFor(m, eventFn).Active, "Active was already 0 post-dispatch and Clear must not touch it either way")
	require.Equal(t, int64(1), acctSnapshotFor(m, timerFn).Calls, "non-matching entry must be untouched")
}
