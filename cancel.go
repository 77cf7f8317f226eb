package threadmaster

// Cancel removes t from whichever structure currently holds it, clears its
// back-reference slot if present, and releases the record (§4.8).
// Callable only by the Master's owner goroutine; other goroutines must
// arrange cancellation by posting an event to the owner (§5, §7).
//
// Cancelling a task that is not linked into any structure (already
// dispatched, already cancelled, or the zero Task) is a programmer error
// and panics, per §7's "assert and abort" disposition.
func (m *Master) Cancel(t *Task) {
	m.assertOwner()
	if t == nil || t.class == ClassUnused {
		cancelNotLinked(t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch t.class {
	case ClassRead:
		m.io.disarmRead(t.fd)
	case ClassWrite:
		m.io.disarmWrite(t.fd)
	case ClassTimer:
		m.timers.removeAt(t.heapIndex)
	case ClassBackground:
		m.background.removeAt(t.heapIndex)
	case ClassEvent:
		m.events.unlink(t)
	case ClassReady:
		m.ready.unlink(t)
	default:
		cancelNotLinked(t)
	}

	t.clearHandle()
	t.release()
}

// CancelEventByArg walks the event and ready lists, cancelling every task
// whose argument equals arg, and returns the count. Supports "cancel
// everything associated with this subsystem instance" without the caller
// tracking individual handles (§4.8).
func (m *Master) CancelEventByArg(arg any) int {
	m.assertOwner()

	m.mu.Lock()
	var matched []*Task
	m.events.each(func(t *Task) {
		if t.arg == arg {
			matched = append(matched, t)
		}
	})
	m.ready.each(func(t *Task) {
		if t.arg == arg {
			matched = append(matched, t)
		}
	})
	m.mu.Unlock()

	for _, t := range matched {
		m.Cancel(t)
	}
	return len(matched)
}
