package unit

import "math"

// ----- Harmonics ----- //

// harmonics is a source: the 1..count ladder with amplitudes falling as 1/h^slope.
type harmonics struct {
	Unit
	count *Option
	slope *Option
	level *ModInput
	out   int
}

func newHarmonics() Node {
	h := &harmonics{}
	h.count = h.DeclareOption("count", NumPartials, 1, NumPartials)
	h.slope = h.DeclareOption("slope", 1, 0, 4)
	h.level = h.DeclareInput("level", 1)
	h.out = h.DeclareUnitOutput("out")
	return h
}

func (h *harmonics) Go() {
	h.Unit.Go()
	p := h.Own(h.out)
	count := h.count.Int()
	level := h.level.Value()
	for i := 0; i < NumPartials; i++ {
		p.Freq[i] = float64(i + 1)
		p.Order[i] = uint8(i)
		if i < count {
			p.Amp[i] = level * math.Pow(float64(i+1), -h.slope.Value)
		} else {
			p.Amp[i] = 0
		}
	}
}

// ----- Amplifier ----- //

// amplifier scales the amplitudes of the active subset by its gain input.
type amplifier struct {
	Unit
	in   *UnitInput
	gain *ModInput
	out  int
}

func newAmplifier() Node {
	a := &amplifier{}
	a.in = a.DeclareUnitInput("in")
	a.gain = a.DeclareInput("gain", 1)
	a.out = a.DeclareUnitOutput("out")
	a.DeclareConstraint()
	return a
}

func (a *amplifier) Go() {
	a.Unit.Go()
	gain := a.gain.Value()
	c := a.Constraint()
	if gain == 1 {
		a.Push(a.out, a.in)
		return
	}
	p := a.Copy(a.out, a.in)
	for i := 0; i < NumPartials; i++ {
		if a.Active(c, i) {
			p.Amp[i] *= gain
		}
	}
}

// ----- Stretch ----- //

// stretch bends the ladder inharmonically: f' = f*sqrt(1+B*f^2). Negative B can
// fold partials below their neighbours, so the result is re-sorted.
type stretch struct {
	Unit
	in     *UnitInput
	amount *ModInput
	out    int
}

// largest |B| reachable with amount at 0 or 1
const maxInharmonicity = 0.0005

func newStretch() Node {
	s := &stretch{}
	s.in = s.DeclareUnitInput("in")
	s.amount = s.DeclareInput("amount", 0.5)
	s.out = s.DeclareUnitOutput("out")
	s.DeclareConstraint()
	return s
}

func (s *stretch) Go() {
	s.Unit.Go()
	b := (s.amount.Value()*2 - 1) * maxInharmonicity
	if b == 0 {
		s.Push(s.out, s.in)
		return
	}
	p := s.Copy(s.out, s.in)
	for i := 0; i < NumPartials; i++ {
		f := p.Freq[i]
		k := 1 + b*f*f
		if k <= 0 {
			p.Freq[i] = 0
			p.Amp[i] = 0
			continue
		}
		p.Freq[i] = f * math.Sqrt(k)
	}
	s.Constrain(p)
	p.Sort(false)
}

// ----- Scatter ----- //

// scatter detunes every partial by a random offset chosen per order at gate time.
type scatter struct {
	Unit
	in      *UnitInput
	amount  *ModInput
	spread  *Option // semitones
	out     int
	offsets [NumPartials]float64
}

func newScatter() Node {
	s := &scatter{}
	s.in = s.DeclareUnitInput("in")
	s.amount = s.DeclareInput("amount", 0)
	s.spread = s.DeclareOption("spread", 12, 0, 48)
	s.out = s.DeclareUnitOutput("out")
	s.DeclareConstraint()
	return s
}

func (s *scatter) Gate() {
	r := s.host.Rand()
	for i := range s.offsets {
		s.offsets[i] = r.Float64()*2 - 1
	}
}

func (s *scatter) Go() {
	s.Unit.Go()
	amount := s.amount.Value()
	if amount == 0 {
		s.Push(s.out, s.in)
		return
	}
	p := s.Copy(s.out, s.in)
	semis := amount * s.spread.Value
	for i := 0; i < NumPartials; i++ {
		p.Freq[i] *= math.Pow(2, s.offsets[p.Order[i]]*semis/12)
	}
	s.Constrain(p)
	p.Sort(true)
}
