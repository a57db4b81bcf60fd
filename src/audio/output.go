package audio

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jinjor/partials/src/midi"
	"github.com/jinjor/partials/src/sound"
	"github.com/jinjor/partials/src/unit"
)

const (
	// amplitude smoothing per sample, keyed by partial order
	smoothing = 0.025
	// partials quieter than this are not synthesized
	minAmp       = 1.0 / (1 << 24)
	spectrumSize = 2048
)

// Config holds the fixed parameters of the scheduler.
type Config struct {
	SampleRate       int
	Skip             int // samples per tick
	BufferSize       int // device buffer in bytes
	VoicesPerThread  int
	OutputsPerThread int
}

// DefaultConfig returns the standard setup.
func DefaultConfig() Config {
	return Config{
		SampleRate:       44100,
		Skip:             64,
		BufferSize:       4096,
		VoicesPerThread:  8,
		OutputsPerThread: 8,
	}
}

// TicksPerSecond returns the scheduler tick rate.
func (c Config) TicksPerSecond() float64 {
	return float64(c.SampleRate) / float64(c.Skip)
}

// voiceState is the emission-side state of one voice, indexed by partial order.
type voiceState struct {
	freq    [unit.NumPartials]float64
	amp     [unit.NumPartials]float64
	target  [unit.NumPartials]float64
	phase   [unit.NumPartials]float64
	pitch   float64
	gain    float64
	dephase bool
}

// restart rewinds the phases of silent partials. Audible ones keep their amplitude
// and phase and are smoothed toward the new targets.
func (s *voiceState) restart() {
	for i := range s.amp {
		if s.amp[i] < minAmp {
			s.amp[i] = 0
			s.phase[i] = 0
		}
	}
}

// Status is a snapshot for monitoring.
type Status struct {
	Tick              int64   `json:"tick"`
	Voices            int     `json:"voices"`
	Sounding          int     `json:"sounding"`
	Sustained         int     `json:"sustained"`
	Groups            int     `json:"groups"`
	Gain              float64 `json:"gain"`
	Solo              int     `json:"solo"`
	VelocitySensitive bool    `json:"velocitySensitive"`
	Mono              bool    `json:"mono"`
	Clock             string  `json:"clock"`
	BPM               float64 `json:"bpm"`
	Glitched          bool    `json:"glitched"`
	Clipped           bool    `json:"clipped"`
}

// ----- Output ----- //

// Output runs the two scheduler loops. The voice-advance side (Step) owns the pool
// under the scheduler lock; the emission side (Emit) owns the synthesis state and
// only meets the other side through the swap.
type Output struct {
	cfg        Config
	lock       FairLock
	pool       *sound.Pool
	dispatcher *midi.Dispatcher
	line       Line
	swap       Swap

	tick              atomic.Int64
	gain              atomic.Uint64
	solo              atomic.Int64
	velocitySensitive atomic.Bool
	glitched          atomic.Bool
	clipped           atomic.Bool

	// voice-advance side
	voiceWorkers []*voiceWorker

	// emission side
	states        []voiceState
	outputWorkers []*outputWorker
	reverb        *reverb
	wet           float64
	room          float64
	damp          float64
	settle        float64
	mix           []float64
	buf           []byte
	emitted       bool

	monitorMu sync.Mutex
	monitor   []float64
	monitorAt int
	fft       *FFT
}

// NewOutput wires the scheduler to a pool, its dispatcher and a line.
func NewOutput(cfg Config, pool *sound.Pool, dispatcher *midi.Dispatcher, line Line) *Output {
	fft, err := NewFFT(spectrumSize)
	if err != nil {
		panic(err)
	}
	o := &Output{
		cfg:        cfg,
		pool:       pool,
		dispatcher: dispatcher,
		line:       line,
		reverb:     newReverb(cfg.SampleRate),
		settle:     math.Pow(1-smoothing, float64(cfg.Skip)),
		mix:        make([]float64, cfg.Skip),
		buf:        make([]byte, cfg.Skip*bytesPerSample),
		monitor:    make([]float64, spectrumSize),
		fft:        fft,
	}
	o.SetGain(1)
	o.solo.Store(-1)
	o.velocitySensitive.Store(true)
	pool.Transport.SampleRate = float64(cfg.SampleRate)
	pool.Transport.TicksPerSecond = cfg.TicksPerSecond()
	return o
}

// ----- Settings ----- //

// SetGain sets the master gain.
func (o *Output) SetGain(gain float64) {
	o.gain.Store(math.Float64bits(math.Max(0, gain)))
}

// Gain returns the master gain.
func (o *Output) Gain() float64 {
	return math.Float64frombits(o.gain.Load())
}

// SetSolo isolates one voice; a negative index mixes every voice.
func (o *Output) SetSolo(voice int) {
	if voice < 0 {
		voice = -1
	}
	o.solo.Store(int64(voice))
}

// Solo returns the isolated voice, or -1.
func (o *Output) Solo() int { return int(o.solo.Load()) }

// SetVelocitySensitive switches the velocity scaling of voice gains.
func (o *Output) SetVelocitySensitive(on bool) { o.velocitySensitive.Store(on) }

// VelocitySensitive reports whether velocity scales voice gains.
func (o *Output) VelocitySensitive() bool { return o.velocitySensitive.Load() }

// Glitched reports whether the device buffer ran nearly dry since the last call.
func (o *Output) Glitched() bool { return o.glitched.Swap(false) }

// Clipped reports whether the output clipped since the last call.
func (o *Output) Clipped() bool { return o.clipped.Swap(false) }

// Tick returns the number of emission passes so far.
func (o *Output) Tick() int64 { return o.tick.Load() }

// Do runs f under the scheduler lock. Every change to voices, groups or patches goes
// through here.
func (o *Output) Do(f func(pool *sound.Pool, dispatcher *midi.Dispatcher)) {
	o.lock.Lock()
	defer o.lock.Unlock()
	f(o.pool, o.dispatcher)
}

// SetVoices changes the voice count.
func (o *Output) SetVoices(n int) error {
	var err error
	o.Do(func(pool *sound.Pool, _ *midi.Dispatcher) {
		err = pool.Resize(n)
	})
	return err
}

// Status collects a monitoring snapshot and clears the sticky flags.
func (o *Output) Status() Status {
	s := Status{
		Tick:              o.Tick(),
		Gain:              o.Gain(),
		Solo:              o.Solo(),
		VelocitySensitive: o.VelocitySensitive(),
		Glitched:          o.Glitched(),
		Clipped:           o.Clipped(),
	}
	o.Do(func(pool *sound.Pool, d *midi.Dispatcher) {
		s.Voices = len(pool.Voices)
		s.Sounding = len(pool.On())
		s.Sustained = len(pool.SustainedQueue())
		s.Groups = len(pool.Groups)
		s.Mono = d.Mono()
		s.Clock = d.Clock().State().String()
		s.BPM = d.Clock().BPM()
	})
	return s
}

// ----- Voice advance ----- //

// Step runs one tick of the voice-advance side. It returns only ctx's error.
func (o *Output) Step(ctx context.Context) error {
	o.lock.Lock()
	now := o.tick.Load()
	o.pool.Transport.SyncTick = now
	o.dispatcher.Tick(now)
	o.advance()
	o.fill(o.swap.Back())
	o.lock.Unlock()
	return o.swap.Publish(ctx)
}

func (o *Output) advance() {
	voices := o.pool.Voices
	chunk := o.cfg.VoicesPerThread
	if chunk <= 0 || len(voices) <= chunk {
		for _, v := range voices {
			v.Go()
		}
		return
	}
	workers := (len(voices)+chunk-1)/chunk - 1
	for len(o.voiceWorkers) < workers {
		o.voiceWorkers = append(o.voiceWorkers, newVoiceWorker())
	}
	for i := 0; i < workers; i++ {
		lo := (i + 1) * chunk
		o.voiceWorkers[i].start(voices[lo:min(lo+chunk, len(voices))])
	}
	for _, v := range voices[:chunk] {
		v.Go()
	}
	for i := 0; i < workers; i++ {
		o.voiceWorkers[i].wait()
	}
}

func (o *Output) fill(s *Snapshot) {
	voices := o.pool.Voices
	s.resize(len(voices))
	sensitive := o.VelocitySensitive()
	for i, v := range voices {
		f := &s.Frames[i]
		e := v.Emits()
		copy(f.Freq[:], e.Freq)
		copy(f.Amp[:], e.Amp)
		copy(f.Order[:], e.Order)
		f.Pitch = v.Pitch() * v.Bend()
		f.Gain = 1
		if g := v.Group(); g < len(o.pool.Groups) {
			f.Gain = o.pool.Groups[g].Gain
		}
		if sensitive {
			f.Gain *= v.Velocity()
		}
		f.Restart = v.TakeReset()
		f.Dephase = false
		if d, ok := v.Emitter().(unit.Dephaser); ok {
			f.Dephase = d.Dephase()
		}
	}
	s.Wet, s.Room, s.Damp = 0, 0, 0
	if len(voices) > 0 {
		if r, ok := voices[0].Emitter().(unit.ReverbSource); ok {
			s.Wet, s.Room, s.Damp = r.Reverb()
		}
	}
}

// ----- Emission ----- //

func (o *Output) receive(s *Snapshot) {
	if len(o.states) != len(s.Frames) {
		states := make([]voiceState, len(s.Frames))
		copy(states, o.states)
		o.states = states
	}
	for i := range s.Frames {
		f := &s.Frames[i]
		st := &o.states[i]
		if f.Restart {
			st.restart()
		}
		for k := range f.Order {
			order := f.Order[k]
			st.freq[order] = f.Freq[k]
			st.target[order] = flush(f.Amp[k])
		}
		st.pitch = f.Pitch
		st.gain = f.Gain
		st.dephase = f.Dephase
	}
	o.wet, o.room, o.damp = s.Wet, s.Room, s.Damp
}

// Emit runs one pass of the emission side: Skip samples written to the line.
func (o *Output) Emit() error {
	if o.emitted && o.line.Available() >= o.line.Size()-len(o.buf) {
		o.glitched.Store(true)
	}
	o.swap.Take(o.receive)
	o.mixVoices()
	wet := o.wet
	if wet > 0 {
		o.reverb.applyParams(o.room, o.damp)
	}
	gain := o.Gain()
	clipped := false
	for i, x := range o.mix {
		if wet > 0 {
			x = x*(1-wet) + o.reverb.step(x)*wet
		}
		y := x * gain
		if y > 1 {
			y = 1
			clipped = true
		} else if y < -1 {
			y = -1
			clipped = true
		}
		o.mix[i] = y
		v := int16(y * math.MaxInt16)
		o.buf[bytesPerSample*i] = byte(v)
		o.buf[bytesPerSample*i+1] = byte(v >> 8)
	}
	if clipped {
		o.clipped.Store(true)
	}
	o.record(o.mix)
	_, err := o.line.Write(o.buf)
	o.emitted = true
	o.tick.Add(1)
	return err
}

func (o *Output) mixVoices() {
	n := len(o.states)
	chunk := o.cfg.OutputsPerThread
	if chunk <= 0 || n <= chunk {
		o.build(0, n, o.mix)
		return
	}
	workers := (n+chunk-1)/chunk - 1
	for len(o.outputWorkers) < workers {
		o.outputWorkers = append(o.outputWorkers, newOutputWorker(o, o.cfg.Skip))
	}
	for i := 0; i < workers; i++ {
		lo := (i + 1) * chunk
		o.outputWorkers[i].start(lo, min(lo+chunk, n))
	}
	o.build(0, chunk, o.mix)
	for i := 0; i < workers; i++ {
		w := o.outputWorkers[i]
		w.wait()
		for s, x := range w.mix {
			o.mix[s] = flush(o.mix[s] + x)
		}
	}
}

// build synthesizes voices [lo,hi) into mix.
func (o *Output) build(lo, hi int, mix []float64) {
	for i := range mix {
		mix[i] = 0
	}
	solo := o.solo.Load()
	for i := lo; i < hi; i++ {
		if solo >= 0 && int64(i) != solo {
			continue
		}
		o.buildVoice(&o.states[i], mix)
	}
}

func (o *Output) buildVoice(st *voiceState, mix []float64) {
	sampleRate := float64(o.cfg.SampleRate)
	nyquist := sampleRate / 2
	skip := float64(len(mix))
	for k := 0; k < unit.NumPartials; k++ {
		freq := st.freq[k] * st.pitch
		a, target := st.amp[k], st.target[k]
		inc := freq / sampleRate
		phase := st.phase[k]
		if freq <= 0 || freq >= nyquist || (a < minAmp && target < minAmp) {
			st.amp[k] = flush(target + (a-target)*o.settle)
			if freq > 0 {
				phase += inc * skip
				st.phase[k] = phase - math.Floor(phase)
			}
			continue
		}
		offset := 0.0
		if st.dephase {
			offset = dephaseTable[k]
		}
		for s := range mix {
			a = flush(a + (target-a)*smoothing)
			mix[s] = flush(mix[s] + st.gain*a*sine(phase+offset))
			phase += inc
			if phase >= 1 {
				phase -= 1
			}
		}
		st.amp[k] = a
		st.phase[k] = phase
	}
}

// ----- Monitor ----- //

func (o *Output) record(samples []float64) {
	o.monitorMu.Lock()
	for _, x := range samples {
		o.monitor[o.monitorAt] = x
		o.monitorAt = (o.monitorAt + 1) % len(o.monitor)
	}
	o.monitorMu.Unlock()
}

// Spectrum returns the windowed magnitude spectrum of the most recent output,
// from DC up to Nyquist.
func (o *Output) Spectrum() []float64 {
	result := make([]float64, spectrumSize)
	o.monitorMu.Lock()
	// monitor: | 4 | 1 | 2 | 3 |
	// at:          ^
	// result:  | 1 | 2 | 3 | 4 |
	n := copy(result, o.monitor[o.monitorAt:])
	copy(result[n:], o.monitor[:o.monitorAt])
	o.monitorMu.Unlock()
	for i, w := range hannTable {
		result[i] *= w
	}
	if err := o.fft.CalcAbs(result); err != nil {
		log.Printf("[WARN] spectrum: %v", err)
		return nil
	}
	for i, value := range result {
		result[i] = value * 2 / spectrumSize
	}
	return result[:spectrumSize/2]
}

// ----- Loops ----- //

// RunVoices runs Step until ctx is done.
func (o *Output) RunVoices(ctx context.Context) error {
	for {
		if err := o.Step(ctx); err != nil {
			log.Println("voice loop ended.")
			return nil
		}
	}
}

// RunEmission runs Emit until ctx is done or the line fails.
func (o *Output) RunEmission(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			log.Println("emission loop ended.")
			return nil
		default:
		}
		if err := o.Emit(); err != nil {
			return err
		}
	}
}

// Close stops the workers and closes the line.
func (o *Output) Close() error {
	log.Println("closing output...")
	for _, w := range o.voiceWorkers {
		w.stop()
	}
	for _, w := range o.outputWorkers {
		w.stop()
	}
	return o.line.Close()
}
