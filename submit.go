package threadmaster

import "time"

// Every Add* method shares the uniform contract of §4.6:
//
//   - if h is non-nil and already points at a live task, the call is a
//     no-op returning (nil, nil) — the handle idempotence rule (§8
//     property 7) preventing double-scheduling;
//   - on success the new Task is written back through h (if non-nil) and
//     the record stores h's address as its back-reference;
//   - every successful submission pokes the wake pipe so the owner's
//     current or next poll wait returns promptly;
//   - submission is safe from any goroutine; the Master mutex serializes
//     it.
//
// siteFunc/siteFile/siteLine carry the submission-site debug triple named
// in §3's Task record fields.

func (m *Master) submitPrep(h *Handle) (skip bool) {
	return h != nil && h.task != nil
}

func (m *Master) finishSubmit(t *Task, h *Handle) *Task {
	if h != nil {
		h.task = t
		t.handle = h
	}
	m.wake.poke()
	return t
}

// AddRead arms fd for readability. Adding a second Read task for an fd
// that already has one is a programmer error per §4.5; this package
// relies on the handle-idempotence rule to prevent that in practice and
// does not separately guard against it.
func (m *Master) AddRead(fn Func, arg any, fd int, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	if m.submitPrep(h) {
		return nil, nil
	}
	if fd < 0 || fd >= m.io.limit {
		return nil, ErrDescriptorLimit
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	t := m.acquire(fn, arg, siteFunc, siteFile, siteLine)
	t.class, t.origClass = ClassRead, ClassRead
	t.fd = fd
	m.io.armRead(fd, t)
	m.mu.Unlock()
	return m.finishSubmit(t, h), nil
}

// AddWrite arms fd for writability.
func (m *Master) AddWrite(fn Func, arg any, fd int, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	if m.submitPrep(h) {
		return nil, nil
	}
	if fd < 0 || fd >= m.io.limit {
		return nil, ErrDescriptorLimit
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	t := m.acquire(fn, arg, siteFunc, siteFile, siteLine)
	t.class, t.origClass = ClassWrite, ClassWrite
	t.fd = fd
	m.io.armWrite(fd, t)
	m.mu.Unlock()
	return m.finishSubmit(t, h), nil
}

func (m *Master) addTimerAbs(fn Func, arg any, deadline time.Time, class TaskClass, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	if m.submitPrep(h) {
		return nil, nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	t := m.acquire(fn, arg, siteFunc, siteFile, siteLine)
	t.class, t.origClass = class, class
	t.deadline = deadline
	if class == ClassBackground {
		m.background.enqueue(t)
	} else {
		m.timers.enqueue(t)
	}
	m.mu.Unlock()
	return m.finishSubmit(t, h), nil
}

// AddTimer schedules fn to fire after delay, foreground priority. The
// absolute deadline is computed as now + delay at submission time (§4.6).
func (m *Master) AddTimer(fn Func, arg any, delay time.Duration, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	return m.addTimerAbs(fn, arg, time.Now().Add(delay), ClassTimer, h, siteFunc, siteFile, siteLine)
}

// AddTimerMsec is AddTimer with the delay expressed in milliseconds,
// matching §4.6's add_timer_msec.
func (m *Master) AddTimerMsec(fn Func, arg any, delayMs int64, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	return m.AddTimer(fn, arg, time.Duration(delayMs)*time.Millisecond, h, siteFunc, siteFile, siteLine)
}

// AddTimerTV is §4.6's add_timer_tv: a relative-duration variant, named
// for the original's timeval parameter but taking a time.Duration per
// SPEC_FULL.md's supplemented-feature note (idiomatic Go in place of a
// C-shaped timeval type).
func (m *Master) AddTimerTV(fn Func, arg any, relative time.Duration, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	return m.AddTimer(fn, arg, relative, h, siteFunc, siteFile, siteLine)
}

// AddBackground schedules fn at lowest priority. A zero delay means "ready
// immediately, but only once every foreground source is drained" (§4.6,
// §4.7's priority discipline).
func (m *Master) AddBackground(fn Func, arg any, delay time.Duration, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	return m.addTimerAbs(fn, arg, time.Now().Add(delay), ClassBackground, h, siteFunc, siteFile, siteLine)
}

// AddEvent queues fn for immediate dispatch, carrying an integer value as
// its wake condition (§3, §4.6).
func (m *Master) AddEvent(fn Func, arg any, value int, h *Handle, siteFunc, siteFile string, siteLine int) (*Task, error) {
	if m.submitPrep(h) {
		return nil, nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	t := m.acquire(fn, arg, siteFunc, siteFile, siteLine)
	t.class, t.origClass = ClassEvent, ClassEvent
	t.value = value
	m.events.append(t)
	m.mu.Unlock()
	return m.finishSubmit(t, h), nil
}
