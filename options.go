package threadmaster

import "time"

// masterOptions holds the configurable fields enumerated in §3 and §6:
// spin, handle_signals, selectpoll_timeout, plus the ambient fields every
// Master needs (logger, accounting table, descriptor limit, yield budget,
// signal-drain hook).
type masterOptions struct {
	spin                bool
	handleSignals       bool
	pollTimeoutOverride time.Duration // §4.7 step 4 sign semantics
	signalDrainHook     func()
	descriptorLimit     int
	yieldBudget         time.Duration
	logger              *logger
	accounting          *AccountingTable
	slowTaskThreshold   time.Duration
}

// MasterOption configures a Master at creation, following the same
// functional-options shape as the donor module's LoopOption: an
// interface with an unexported apply method wrapping a closure.
type MasterOption interface {
	apply(*masterOptions)
}

type masterOptionFunc struct {
	fn func(*masterOptions)
}

func (o *masterOptionFunc) apply(opts *masterOptions) { o.fn(opts) }

// WithSpin sets whether Fetch loops until something is ready (true) or
// returns immediately with ok==false when idle (false, the default).
func WithSpin(spin bool) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.spin = spin }}
}

// WithHandleSignals gates the signal-drain hook invocation at the top of
// every fetch round (§4.7 step 1).
func WithHandleSignals(enabled bool) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.handleSignals = enabled }}
}

// WithSignalDrainHook sets the caller-supplied "drain pending signals"
// hook; it must be re-entrant w.r.t. the scheduler, since it runs outside
// the Master lock (§4.7 step 1).
func WithSignalDrainHook(hook func()) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.signalDrainHook = hook }}
}

// WithPollTimeoutOverride sets the selectpoll_timeout override of §4.7 step
// 4: positive is a hard cap on the computed wait, negative means poll
// returns immediately (zero wait), zero (the default) leaves the computed
// deadline-derived wait unchanged.
func WithPollTimeoutOverride(d time.Duration) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.pollTimeoutOverride = d }}
}

// WithDescriptorLimit overrides the default (process open-file soft limit)
// size of the descriptor-indexed arrays and poll-descriptor array
// capacity (§3, §5).
func WithDescriptorLimit(n int) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.descriptorLimit = n }}
}

// WithYieldBudget overrides the default yield budget (one time slot, 10ms
// per the Glossary) used by should_yield.
func WithYieldBudget(d time.Duration) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.yieldBudget = d }}
}

// WithLogger injects a structured logger; see logging.go. Defaults to a
// stumpy-backed logger writing to os.Stderr.
func WithLogger(l *logger) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.logger = l }}
}

// WithAccountingTable injects a shared AccountingTable, letting multiple
// Masters in one process aggregate into the same table (§4.2 — the table
// is process-wide, not per-Master). Defaults to a fresh private table.
func WithAccountingTable(t *AccountingTable) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.accounting = t }}
}

// WithSlowTaskThreshold sets the wall-clock threshold above which call()
// emits the slow-task warning of §4.10, supplemented per SPEC_FULL.md from
// the original's CONSUMED_TIME_CHECK.
func WithSlowTaskThreshold(d time.Duration) MasterOption {
	return &masterOptionFunc{func(o *masterOptions) { o.slowTaskThreshold = d }}
}

// resolveMasterOptions applies opts over the documented defaults.
func resolveMasterOptions(opts []MasterOption) *masterOptions {
	o := &masterOptions{
		descriptorLimit:   0, // resolved from RLIMIT_NOFILE if left zero
		yieldBudget:       10 * time.Millisecond,
		slowTaskThreshold: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(o)
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}
	if o.accounting == nil {
		o.accounting = NewAccountingTable()
	}
	return o
}
