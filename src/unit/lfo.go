package unit

import "math"

// ----- Wave Kind ----- //

const (
	waveSine = iota
	waveTriangle
	waveSquare
	waveSaw
	waveSawRev
)

func waveAt(kind int, p float64) float64 {
	switch kind {
	case waveTriangle:
		if p < 0.5 {
			return p*4 - 1
		}
		return p*(-4) + 3
	case waveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case waveSaw:
		return p*2 - 1
	case waveSawRev:
		return p*(-2) + 1
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// ----- LFO ----- //

// beats per second at the nominal 120 bpm the clock tick counter is scaled to
const nominalBeatsPerSecond = 2

type lfo struct {
	Modulation
	wave      *Option
	sync      *Option
	rate      *Option // Hz
	division  *Option // beats per cycle
	retrigger *Option
	depth     *ModInput
	out       *ModOutput
	phase     float64
}

func newLfo() Node {
	l := &lfo{}
	l.wave = l.DeclareOption("wave", waveSine, waveSine, waveSawRev)
	l.sync = l.DeclareOption("sync", 0, 0, 1)
	l.rate = l.DeclareOption("rate", 5, 0, 100)
	l.division = l.DeclareOption("division", 1, 1.0/16, 64)
	l.retrigger = l.DeclareOption("retrigger", 0, 0, 1)
	l.depth = l.DeclareInput("depth", 1)
	l.out = l.DeclareOutput("out")
	return l
}

// PreLoad migrates version 1 records, which stored the rate as "freq".
func (l *lfo) PreLoad(rec *Record) {
	if rec.Version >= 2 {
		return
	}
	if v, ok := rec.Options["freq"]; ok {
		rec.Options["rate"] = v
		delete(rec.Options, "freq")
	}
}

func (l *lfo) Reset() {
	l.Modulation.Reset()
	l.phase = 0
	l.out.Set(0.5)
}

func (l *lfo) Gate() {
	if l.retrigger.Bool() {
		l.phase = 0
	}
}

func (l *lfo) Restart() {
	l.phase = 0
}

func (l *lfo) Go() {
	l.Modulation.Go()
	if l.sync.Bool() {
		ticksPerCycle := l.host.TicksPerSecond() / nominalBeatsPerSecond * l.division.Value
		p := l.host.ClockTick() / ticksPerCycle
		p -= math.Floor(p)
		if p < l.phase {
			l.out.Trigger()
		}
		l.phase = p
	} else {
		l.phase += l.rate.Value / l.host.TicksPerSecond()
		if l.phase >= 1 {
			l.phase -= math.Floor(l.phase)
			l.out.Trigger()
		}
	}
	v := 0.5 + 0.5*waveAt(l.wave.Int(), l.phase)*l.depth.Value()
	l.out.Set(math.Max(0, math.Min(1, v)))
}
