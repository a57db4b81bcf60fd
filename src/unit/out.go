package unit

// ----- Out ----- //

// emitter is the usual final node of a voice. Besides the partials it carries the reverb
// parameters read from the first voice and the dephase request.
type emitter struct {
	Unit
	in      *UnitInput
	gain    *ModInput
	wet     *ModInput
	room    *ModInput
	damp    *ModInput
	dephase *Option
	out     int
}

func newEmitter() Node {
	o := &emitter{}
	o.in = o.DeclareUnitInput("in")
	o.gain = o.DeclareInput("gain", 1)
	o.wet = o.DeclareInput("wet", 0)
	o.room = o.DeclareInput("room", 0.5)
	o.damp = o.DeclareInput("damp", 0.5)
	o.dephase = o.DeclareOption("dephase", 0, 0, 1)
	o.out = o.DeclareUnitOutput("out")
	return o
}

func (o *emitter) Go() {
	o.Unit.Go()
	gain := o.gain.Value()
	if gain == 1 {
		o.Push(o.out, o.in)
		return
	}
	p := o.Copy(o.out, o.in)
	for i := range p.Amp {
		p.Amp[i] *= gain
	}
}

func (o *emitter) Reverb() (wet, room, damp float64) {
	return o.wet.Value(), o.room.Value(), o.damp.Value()
}

func (o *emitter) Dephase() bool {
	return o.dephase.Bool()
}
