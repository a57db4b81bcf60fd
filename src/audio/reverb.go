package audio

import "math"

// ----- Delay ----- //

type delay struct {
	cursor int
	past   []float64
}

func newDelay(length int) *delay {
	if length < 1 {
		length = 1
	}
	return &delay{past: make([]float64, length)}
}

func (d *delay) step(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) getDelayed() float64 {
	return d.past[d.cursor]
}

func (d *delay) clear() {
	for i := range d.past {
		d.past[i] = 0
	}
}

// ----- Comb / Allpass ----- //

type comb struct {
	delay    *delay
	store    float64
	feedback float64
	damp     float64
}

func (c *comb) step(in float64) float64 {
	out := c.delay.getDelayed()
	c.store = flush(out*(1-c.damp) + c.store*c.damp)
	c.delay.step(flush(in + c.store*c.feedback))
	return out
}

type allpass struct {
	delay *delay
}

func (a *allpass) step(in float64) float64 {
	delayed := a.delay.getDelayed()
	a.delay.step(flush(in + delayed*0.5))
	return delayed - in
}

// ----- Reverb ----- //

// tunings in samples at 44100 Hz
var (
	combTunings    = []int{1116, 1188, 1277, 1356, 1422, 1491}
	allpassTunings = []int{556, 441, 341}
)

const (
	reverbInputGain = 0.015
	roomScale       = 0.28
	roomOffset      = 0.7
)

// reverb is a mono Schroeder reverb: parallel damped combs into serial allpasses.
type reverb struct {
	combs     []*comb
	allpasses []*allpass
	room      float64
	damp      float64
}

func newReverb(sampleRate int) *reverb {
	scale := float64(sampleRate) / 44100
	r := &reverb{room: -1, damp: -1}
	for _, n := range combTunings {
		r.combs = append(r.combs, &comb{delay: newDelay(int(math.Round(float64(n) * scale)))})
	}
	for _, n := range allpassTunings {
		r.allpasses = append(r.allpasses, &allpass{delay: newDelay(int(math.Round(float64(n) * scale)))})
	}
	return r
}

// applyParams takes room size and damping in [0,1].
func (r *reverb) applyParams(room, damp float64) {
	if room == r.room && damp == r.damp {
		return
	}
	r.room, r.damp = room, damp
	for _, c := range r.combs {
		c.feedback = room*roomScale + roomOffset
		c.damp = damp * 0.4
	}
}

func (r *reverb) step(in float64) float64 {
	in *= reverbInputGain
	out := 0.0
	for _, c := range r.combs {
		out += c.step(in)
	}
	for _, a := range r.allpasses {
		out = a.step(out)
	}
	return flush(out)
}

func (r *reverb) clear() {
	for _, c := range r.combs {
		c.delay.clear()
		c.store = 0
	}
	for _, a := range r.allpasses {
		a.delay.clear()
	}
}
