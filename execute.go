package threadmaster

// Execute bypasses scheduling entirely (§4.9): it constructs an ephemeral
// task record not linked into any Master structure, invokes fn
// synchronously on the current goroutine, and updates accounting under
// ClassExecute. Used to reuse task-shaped callbacks for inline evaluation.
func (m *Master) Execute(fn Func, arg any, value int) {
	ptr, name := funcIdentity(fn)
	t := &Task{
		class:     ClassExecute,
		origClass: ClassExecute,
		fn:        fn,
		arg:       arg,
		value:     value,
		master:    m,
		heapIndex: -1,
		funcPtr:   ptr,
		funcName:  name,
		acct:      m.accounting.lookup(ptr, name),
	}
	m.Call(*t)
}
