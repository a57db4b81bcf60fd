package unit

import "math"

// ----- Performance ----- //

const (
	sourceVelocity = iota
	sourceAftertouch
	sourceBend
	sourceCC
	sourceNRPN
	sourceNote
	sourceReleaseVelocity
)

// bend multipliers map onto [0,1] across this many octaves either way
const bendOctaves = 2

// performance exposes one piece of the voice's MIDI state as a modulation signal.
type performance struct {
	Modulation
	source *Option
	number *Option
	out    *ModOutput
	gated  bool
}

func newPerformance() Node {
	p := &performance{}
	p.source = p.DeclareOption("source", sourceVelocity, sourceVelocity, sourceReleaseVelocity)
	p.number = p.DeclareOption("number", 1, 0, 16383)
	p.out = p.DeclareOutput("out")
	return p
}

func (p *performance) Gate() {
	p.gated = true
}

func (p *performance) Go() {
	p.Modulation.Go()
	if p.gated {
		p.out.Trigger()
		p.gated = false
	}
	h := p.host
	v := 0.0
	switch p.source.Int() {
	case sourceVelocity:
		v = h.Velocity()
	case sourceAftertouch:
		v = h.Aftertouch()
	case sourceBend:
		v = 0.5 + math.Log2(h.Bend())/(2*bendOctaves)
	case sourceCC:
		v = h.CC(p.number.Int())
	case sourceNRPN:
		v = h.NRPN(p.number.Int())
	case sourceNote:
		v = float64(h.Note()) / 127
	case sourceReleaseVelocity:
		v = h.ReleaseVelocity()
	}
	p.out.Set(math.Max(0, math.Min(1, v)))
}

// ----- Multiply ----- //

type multiply struct {
	Modulation
	a   *ModInput
	b   *ModInput
	out *ModOutput
}

func newMultiply() Node {
	m := &multiply{}
	m.a = m.DeclareInput("a", 1)
	m.b = m.DeclareInput("b", 1)
	m.out = m.DeclareOutput("out")
	return m
}

func (m *multiply) Go() {
	m.Modulation.Go()
	m.out.Set(m.a.Value() * m.b.Value())
}
