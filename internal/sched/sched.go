// Package sched elevates the calling goroutine's OS thread to real-time
// scheduling for the duration of a timing-critical section.
package sched

import (
	"log"
	"runtime"
	"runtime/debug"
	"sync"
)

// Guard holds a real-time section open until Release is called.
type Guard struct {
	err       error
	restore   func() error
	gcPercent int
	released  bool
}

var warnOnce sync.Once

// Raise locks the goroutine to its OS thread, pauses the garbage collector
// and requests the highest SCHED_FIFO priority for the thread.
// Elevation is best-effort: failure is recorded on the guard (see Err) and
// logged once per process, never returned.
func Raise() *Guard {
	runtime.LockOSThread()
	g := &Guard{gcPercent: debug.SetGCPercent(-1)}

	restore, err := raise()
	if err != nil {
		g.err = err
		warnOnce.Do(func() {
			log.Printf("sched: real-time priority unavailable, continuing: %v", err)
		})
		return g
	}
	g.restore = restore
	return g
}

// Err reports why priority elevation failed, or nil if it succeeded.
func (g *Guard) Err() error {
	return g.err
}

// Release restores default scheduling, the GC setting and unlocks the thread.
// Calling Release more than once is a no-op.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true

	debug.SetGCPercent(g.gcPercent)
	if g.restore != nil {
		if err := g.restore(); err != nil {
			// Keep the thread wired to this goroutine so the elevated
			// thread is never handed to another goroutine.
			log.Printf("sched: restore default priority: %v", err)
			return
		}
	}
	runtime.UnlockOSThread()
}
