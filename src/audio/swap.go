package audio

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/jinjor/partials/src/unit"
)

// ----- Swap ----- //

// Frame is what one voice hands to the sample builder for one tick.
type Frame struct {
	Freq    [unit.NumPartials]float64
	Amp     [unit.NumPartials]float64
	Order   [unit.NumPartials]uint8
	Pitch   float64
	Gain    float64
	Restart bool
	Dephase bool
}

// Snapshot is one side of the swap.
type Snapshot struct {
	Frames []Frame
	Wet    float64
	Room   float64
	Damp   float64
}

func (s *Snapshot) resize(n int) {
	if cap(s.Frames) >= n {
		s.Frames = s.Frames[:n]
		return
	}
	frames := make([]Frame, n)
	copy(frames, s.Frames)
	s.Frames = frames
}

// Swap hands snapshots from the voice-advance loop to the emission loop. The producer
// fills Back, then Publish waits until the previous snapshot was taken and flips.
// The consumer copies what it needs in Take, so it never reads a slot after clearing
// the ready flag.
type Swap struct {
	slots [2]Snapshot
	back  int
	front int
	ready atomic.Bool
}

// Back returns the snapshot the producer may write.
func (s *Swap) Back() *Snapshot {
	return &s.slots[s.back]
}

// Ready reports whether a published snapshot waits to be taken.
func (s *Swap) Ready() bool {
	return s.ready.Load()
}

// Publish spins until the previous snapshot was taken, then makes Back visible.
func (s *Swap) Publish(ctx context.Context) error {
	for s.ready.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	s.front = s.back
	s.back = 1 - s.back
	s.ready.Store(true)
	return nil
}

// Take passes the published snapshot to f and clears the ready flag. It never waits:
// without a new snapshot it returns false and the caller keeps the previous state.
func (s *Swap) Take(f func(*Snapshot)) bool {
	if !s.ready.Load() {
		return false
	}
	f(&s.slots[s.front])
	s.ready.Store(false)
	return true
}
