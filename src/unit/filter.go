package unit

import (
	"math"
)

// ----- Filter ----- //

const (
	filterLowPass = iota
	filterHighPass
	filterBandPass
	filterNotch
	filterPeaking
)

const (
	minCutoff = 20.0 // Hz
	maxCutoff = 20000.0
)

// filter weights every partial by the magnitude response of an RBJ biquad at the
// partial's absolute frequency. Frequencies do not move, so no sort is needed.
type filter struct {
	Unit
	kind   *Option
	q      *Option
	in     *UnitInput
	cutoff *ModInput
	gain   *ModInput
	out    int
}

func newFilter() Node {
	f := &filter{}
	f.kind = f.DeclareOption("kind", filterLowPass, filterLowPass, filterPeaking)
	f.q = f.DeclareOption("q", 0.7071, 0.1, 30)
	f.in = f.DeclareUnitInput("in")
	f.cutoff = f.DeclareInput("cutoff", 1)
	f.gain = f.DeclareInput("gain", 0.5)
	f.out = f.DeclareUnitOutput("out")
	f.DeclareConstraint()
	return f
}

func (f *filter) Go() {
	f.Unit.Go()
	sampleRate := f.host.SampleRate()
	fc := minCutoff * math.Pow(maxCutoff/minCutoff, f.cutoff.Value())
	dBgain := (f.gain.Value()*2 - 1) * 24
	h := newBiquad(f.kind.Int(), 2*math.Pi*fc/sampleRate, f.q.Value, dBgain)
	p := f.Copy(f.out, f.in)
	pitch := f.host.Pitch()
	c := f.Constraint()
	for i := 0; i < NumPartials; i++ {
		if p.Amp[i] == 0 || !f.Active(c, i) {
			continue
		}
		w := 2 * math.Pi * p.Freq[i] * pitch / sampleRate
		if w >= math.Pi {
			continue
		}
		p.Amp[i] = math.Min(1, p.Amp[i]*h.response(w))
	}
}

// biquad holds normalized coefficients (a0 = 1) of an RBJ cookbook section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func newBiquad(kind int, w0, q, dBgain float64) biquad {
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)
	var h biquad
	a0 := 1 + alpha
	h.a1 = -2 * cos
	h.a2 = 1 - alpha
	switch kind {
	case filterHighPass:
		h.b0, h.b1, h.b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	case filterBandPass:
		h.b0, h.b1, h.b2 = alpha, 0, -alpha
	case filterNotch:
		h.b0, h.b1, h.b2 = 1, -2*cos, 1
	case filterPeaking:
		g := math.Pow(10, dBgain/40)
		h.b0, h.b1, h.b2 = 1+alpha*g, -2*cos, 1-alpha*g
		a0 = 1 + alpha/g
		h.a2 = 1 - alpha/g
	default:
		h.b0, h.b1, h.b2 = (1-cos)/2, 1-cos, (1-cos)/2
	}
	h.b0 /= a0
	h.b1 /= a0
	h.b2 /= a0
	h.a1 /= a0
	h.a2 /= a0
	return h
}

// response is |H(e^jw)| for w in radians per sample.
func (h biquad) response(w float64) float64 {
	c1, s1 := math.Cos(w), math.Sin(w)
	c2, s2 := math.Cos(2*w), math.Sin(2*w)
	nr := h.b0 + h.b1*c1 + h.b2*c2
	ni := h.b1*s1 + h.b2*s2
	dr := 1 + h.a1*c1 + h.a2*c2
	di := h.a1*s1 + h.a2*s2
	return math.Sqrt((nr*nr + ni*ni) / (dr*dr + di*di))
}
