package threadmaster

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID parses the calling goroutine's ID out of runtime.Stack, the
// same technique the donor module's getGoroutineID uses to implement
// isLoopThread. Go has no public goroutine-ID API; this is the accepted
// idiomatic workaround when an owner-thread assertion is unavoidable, as
// it is here for Fetch and Cancel (§4.8, §5, §7: "cancellation from a
// non-owner stream ... assert and abort").
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return -1
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
