package isyntax

import (
	"runtime"
	"sync/atomic"
)

// Library init state (spec.md §5): a three-state atomic rather than a
// sync.Once, because the source this spec was distilled from exposes init
// as an explicit idempotent call rather than something Go could fold into
// a package-level var initializer — keeping the same three named states
// makes that correspondence legible instead of silently relying on Once.
const (
	stateUninit uint32 = iota
	stateInitialising
	stateReady
)

var (
	initState   atomic.Uint32
	workerCount int
)

// Init performs process-wide, idempotent library initialisation: it probes
// the available CPU parallelism and sizes the background worker pool
// (spec.md §5's "global init step"). The first caller to win the
// uninit->initialising CAS does the work and publishes it with a release
// barrier (Store); every other caller, concurrent or later, spins on
// initialising and observes ready with an acquire barrier (Load).
func Init() {
	for {
		switch initState.Load() {
		case stateReady:
			return
		case stateInitialising:
			runtime.Gosched()
			continue
		default:
			if initState.CompareAndSwap(stateUninit, stateInitialising) {
				workerCount = runtime.GOMAXPROCS(0)
				initState.Store(stateReady)
				return
			}
			// Lost the race; spin back to re-check state.
		}
	}
}

// WorkerCount returns the worker pool size Init computed. Calling it before
// Init is a programming error; it returns 0.
func WorkerCount() int { return workerCount }
