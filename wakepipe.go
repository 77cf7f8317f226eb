//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package threadmaster

import (
	"golang.org/x/sys/unix"
)

// wakePipe is the self-pipe named in §3's Master fields and the Glossary:
// a read end always included in the poll-descriptor array, and a write end
// any submitting goroutine can poke to unblock the owner's poll wait
// without delivering meaningful data. Both ends are non-blocking so that a
// full pipe on a burst of submissions never stalls a submitter (§5: the
// wake-pipe write "uses a non-blocking descriptor and tolerates EAGAIN").
type wakePipe struct {
	readFD, writeFD int
}

func newWakePipe() (*wakePipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		// Pipe2 is unavailable on some BSDs; fall back to Pipe + explicit
		// non-blocking flags, matching the two-syscall pattern the
		// original's set_nonblocking helper uses for descriptors it
		// cannot create non-blocking directly.
		if err := unix.Pipe(fds[:]); err != nil {
			return nil, err
		}
		if err := unix.SetNonblock(fds[0], true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, err
		}
		if err := unix.SetNonblock(fds[1], true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, err
		}
	}
	return &wakePipe{readFD: fds[0], writeFD: fds[1]}, nil
}

// poke writes one byte to the write end, waking any goroutine blocked in
// poll(2) on the read end. EAGAIN (pipe buffer full — plenty of wake-ups
// already pending) is swallowed; any other write error is also swallowed,
// since a missed wake-up on an already-awake owner is harmless and a
// pipe-level failure here has no recovery path better than "the next
// fetch round will still observe the work that was submitted".
func (w *wakePipe) poke() {
	var b [1]byte
	b[0] = 1
	for {
		_, err := writeFD(w.writeFD, b[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// drain empties the read end after poll reports it readable.
func (w *wakePipe) drain() {
	var buf [64]byte
	for {
		n, err := readFD(w.readFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *wakePipe) close() error {
	err1 := closeFD(w.readFD)
	err2 := closeFD(w.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
