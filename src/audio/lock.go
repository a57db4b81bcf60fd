package audio

import (
	"runtime"
	"sync/atomic"
)

// FairLock is a ticket lock: goroutines get the lock in the order they asked for it,
// so a MIDI-triggered change never waits more than one scheduler tick.
type FairLock struct {
	next    atomic.Uint64
	serving atomic.Uint64
}

// Lock blocks until every earlier caller has unlocked.
func (l *FairLock) Lock() {
	ticket := l.next.Add(1) - 1
	for l.serving.Load() != ticket {
		runtime.Gosched()
	}
}

// Unlock hands the lock to the next ticket.
func (l *FairLock) Unlock() {
	l.serving.Add(1)
}
