package threadmaster

import (
	"runtime"
	"strconv"
)

// itoa is a tiny local wrapper to avoid importing strconv in every file
// that renders a line number into a diagnostic string.
func itoa(n int) string {
	return strconv.Itoa(n)
}

// runtimeFuncForPC resolves a program counter to its runtime.Func, used to
// name an accounting entry's function from its code pointer.
func runtimeFuncForPC(pc uintptr) *runtime.Func {
	return runtime.FuncForPC(pc)
}
