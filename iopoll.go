//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package threadmaster

import (
	"golang.org/x/sys/unix"
)

// ioRegistry implements §4.5's two parallel structures: descriptor-indexed
// arrays holding at most one pending task per direction per descriptor,
// and a dense poll-descriptor array used as the argument to poll(2).
//
// Capacity is the process's open-file soft limit (§3, §5's resource
// bounds): the array can hold at most one entry per fd plus one for the
// wake pipe.
type ioRegistry struct {
	read, write []*Task // descriptor-indexed, length == limit
	pfds        []unix.PollFd
	limit       int
}

func newIORegistry(limit int) *ioRegistry {
	return &ioRegistry{
		read:  make([]*Task, limit),
		write: make([]*Task, limit),
		limit: limit,
	}
}

// descriptorSoftLimit reads RLIMIT_NOFILE's current (soft) value, used as
// the Master's default descriptor limit per §3.
func descriptorSoftLimit() (int, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	return int(rl.Cur), nil
}

// findOrAllocSlot implements fetch^W add-read/add-write step 1: a linear
// search of pfds for fd, reusing the slot if found, else appending a new
// one. The search is bounded by len(pfds); daemons rarely register more
// than a few thousand descriptors, so this is the same acceptable
// trade-off the original design makes.
func (r *ioRegistry) findOrAllocSlot(fd int) int {
	for i := range r.pfds {
		if int(r.pfds[i].Fd) == fd {
			return i
		}
	}
	r.pfds = append(r.pfds, unix.PollFd{Fd: int32(fd)})
	return len(r.pfds) - 1
}

// armRead registers t as the ClassRead task for fd, per §4.5 steps 2–3.
func (r *ioRegistry) armRead(fd int, t *Task) {
	slot := r.findOrAllocSlot(fd)
	r.pfds[slot].Events |= unix.POLLIN
	r.read[fd] = t
}

// armWrite registers t as the ClassWrite task for fd.
func (r *ioRegistry) armWrite(fd int, t *Task) {
	slot := r.findOrAllocSlot(fd)
	r.pfds[slot].Events |= unix.POLLOUT
	r.write[fd] = t
}

// disarmRead clears the read direction for fd, per §4.8's cancellation
// handling: clear the event bit, and if both direction bits are now zero,
// compact the poll-descriptor array by shifting higher entries down one so
// invariant 3 (§3) — exactly one poll-descriptor entry per armed
// descriptor — is re-established before any lock is released.
func (r *ioRegistry) disarmRead(fd int) {
	r.read[fd] = nil
	r.clearBit(fd, unix.POLLIN)
}

// disarmWrite is the write-direction counterpart of disarmRead.
func (r *ioRegistry) disarmWrite(fd int) {
	r.write[fd] = nil
	r.clearBit(fd, unix.POLLOUT)
}

func (r *ioRegistry) clearBit(fd int, bit int16) {
	for i := range r.pfds {
		if int(r.pfds[i].Fd) != fd {
			continue
		}
		r.pfds[i].Events &^= bit
		if r.pfds[i].Events == 0 {
			r.removeSlot(i)
		}
		return
	}
}

// removeSlot compacts the poll-descriptor array by shifting everything
// after i down by one.
func (r *ioRegistry) removeSlot(i int) {
	r.pfds = append(r.pfds[:i], r.pfds[i+1:]...)
}

// snapshot returns a copy of the poll-descriptor array with the wake
// pipe's read end appended armed for readable, per fetch step 5 (§4.7).
// Copying before poll, rather than polling the live array, is the
// mitigation §9's design notes call for against step-9 compaction
// mutating an array still being iterated.
func (r *ioRegistry) snapshot(wakeFD int) []unix.PollFd {
	out := make([]unix.PollFd, len(r.pfds)+1)
	copy(out, r.pfds)
	out[len(r.pfds)] = unix.PollFd{Fd: int32(wakeFD), Events: unix.POLLIN}
	return out
}

// poll performs the platform poll(2) call with the given millisecond
// timeout (-1 blocks indefinitely). Returns the same error unix.Poll
// would, including unix.EINTR, which callers must handle per fetch step 7.
func poll(fds []unix.PollFd, timeoutMs int) (int, error) {
	return unix.Poll(fds, timeoutMs)
}

// applyResults processes a polled snapshot against the live registry, per
// fetch step 9: readable events promote read[fd] to ready, writable
// events promote write[fd], the corresponding bit is cleared in the live
// array, and POLLNVAL (invalid descriptor) purges that slot. wakeFD's
// entry (the last one in fds) is handled by the caller, not here.
//
// promote is called once per promoted task; it is expected to append the
// task to the ready list with class ClassReady, as fetch does.
func (r *ioRegistry) applyResults(fds []unix.PollFd, promote func(*Task)) {
	live := fds[:len(fds)-1] // exclude the appended wake-pipe entry
	for _, pf := range live {
		if pf.Revents == 0 {
			continue
		}
		fd := int(pf.Fd)
		if pf.Revents&unix.POLLNVAL != 0 {
			r.clearBit(fd, unix.POLLIN|unix.POLLOUT)
			r.read[fd] = nil
			r.write[fd] = nil
			continue
		}
		if pf.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			if t := r.read[fd]; t != nil {
				r.disarmRead(fd)
				promote(t)
			}
		}
		if pf.Revents&(unix.POLLOUT|unix.POLLERR) != 0 {
			if t := r.write[fd]; t != nil {
				r.disarmWrite(fd)
				promote(t)
			}
		}
	}
}
