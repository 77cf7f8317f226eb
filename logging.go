package threadmaster

import (
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logger is the structured-logging handle stored on every Master, wired
// through logiface with the stumpy backend — the same pairing the donor
// module's go.mod declares, replacing the original's embedder-supplied
// zlog calls (§1 keeps logging internals out of scope, but a working
// module still needs a concrete logging backend wired in, per
// SPEC_FULL.md's AMBIENT STACK).
type logger = logiface.Logger[*stumpy.Event]

// defaultLogger returns a stumpy-backed logger writing to os.Stderr, used
// whenever WithLogger is not supplied.
func defaultLogger() *logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(os.Stderr),
	)
}

// warnPollError logs §7's "other poll errors: a warning is emitted through
// the logger" disposition.
func warnPollError(log *logger, err error) {
	log.Warning().Err(err).Log("poll failed")
}

// warnSlowTask logs §4.10's slow-task warning, supplemented per
// SPEC_FULL.md with the original's CONSUMED_TIME_CHECK semantics: emitted
// when a task's wall-clock elapsed exceeds the configured threshold,
// identifying the function name and durations.
func warnSlowTask(log *logger, funcName string, wall, cpu time.Duration) {
	log.Warning().
		Str("func", funcName).
		Dur("wall", wall).
		Dur("cpu", cpu).
		Log("task exceeded slow-task threshold")
}

// logPanic logs a recovered panic from within a task body (the recover
// boundary around task invocation in Master.Call).
func logPanic(log *logger, funcName string, rec any) {
	log.Err().
		Str("func", funcName).
		Any("panic", rec).
		Log("task panicked")
}
