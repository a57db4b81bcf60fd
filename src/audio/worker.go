package audio

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jinjor/partials/src/sound"
)

// ----- Voice worker ----- //

// voiceWorker advances a slice of voices when signaled. It sleeps on a condition
// variable between ticks; the busy flag lets the waiter skip the lock when done early.
type voiceWorker struct {
	mu     sync.Mutex
	cond   *sync.Cond
	voices []*sound.Voice
	busy   atomic.Bool
	quit   bool
}

func newVoiceWorker() *voiceWorker {
	w := &voiceWorker{}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

func (w *voiceWorker) loop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		for !w.busy.Load() && !w.quit {
			w.cond.Wait()
		}
		if w.quit {
			return
		}
		voices := w.voices
		w.mu.Unlock()
		for _, v := range voices {
			v.Go()
		}
		w.mu.Lock()
		w.busy.Store(false)
		w.cond.Broadcast()
	}
}

func (w *voiceWorker) start(voices []*sound.Voice) {
	w.mu.Lock()
	w.voices = voices
	w.busy.Store(true)
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *voiceWorker) wait() {
	if !w.busy.Load() {
		return
	}
	w.mu.Lock()
	for w.busy.Load() {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

func (w *voiceWorker) stop() {
	w.mu.Lock()
	w.quit = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// ----- Output worker ----- //

// outputWorker builds the samples of a range of voices into its own mix buffer.
// It spins between passes: the emission loop cannot afford a wake-up latency.
type outputWorker struct {
	o      *Output
	lo, hi int
	mix    []float64
	run    atomic.Bool
	done   atomic.Bool
	quit   atomic.Bool
}

func newOutputWorker(o *Output, skip int) *outputWorker {
	w := &outputWorker{o: o, mix: make([]float64, skip)}
	w.done.Store(true)
	go w.loop()
	return w
}

func (w *outputWorker) loop() {
	for {
		for !w.run.Load() {
			if w.quit.Load() {
				return
			}
			runtime.Gosched()
		}
		w.run.Store(false)
		w.o.build(w.lo, w.hi, w.mix)
		w.done.Store(true)
	}
}

func (w *outputWorker) start(lo, hi int) {
	w.lo, w.hi = lo, hi
	w.done.Store(false)
	w.run.Store(true)
}

func (w *outputWorker) wait() {
	for !w.done.Load() {
		runtime.Gosched()
	}
}

func (w *outputWorker) stop() {
	w.quit.Store(true)
}
