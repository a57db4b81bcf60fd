package unit

import "math"

// ----- Envelope ----- //

const (
	phaseNone = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
)

// envelope is an ADSR advanced once per tick.
//
//	1 +     x
//	  |    / \
//	  |   /   \
//	s +  /     x------x
//	  | /              \
//	  |/                \
//	0 +-----+--+------+---
//	  |a     |d |      |r |
type envelope struct {
	Modulation
	attack         *Option // ms
	decay          *Option // ms
	sustain        *Option // 0-1
	release        *Option // ms
	level          *ModInput
	out            *ModOutput
	value          float64
	phase          int
	phasePos       int
	valueAtNoteOn  float64
	valueAtNoteOff float64
	gated          bool
}

func newEnvelope() Node {
	e := &envelope{}
	e.attack = e.DeclareOption("attack", 10, 0, 10000)
	e.decay = e.DeclareOption("decay", 100, 0, 10000)
	e.sustain = e.DeclareOption("sustain", 0.7, 0, 1)
	e.release = e.DeclareOption("release", 200, 0, 10000)
	e.level = e.DeclareInput("level", 1)
	e.out = e.DeclareOutput("out")
	return e
}

func (e *envelope) Reset() {
	e.Modulation.Reset()
	e.value = 0
	e.phase = phaseNone
	e.phasePos = 0
	e.valueAtNoteOn = 0
	e.valueAtNoteOff = 0
	e.gated = false
}

func (e *envelope) Gate() {
	e.phase = phaseAttack
	e.phasePos = 0
	e.valueAtNoteOn = e.value
	e.gated = true
}

func (e *envelope) Release() {
	e.phase = phaseRelease
	e.phasePos = 0
	e.valueAtNoteOff = e.value
}

// Restart replays the attack from the current value.
func (e *envelope) Restart() {
	if e.phase != phaseNone {
		e.Gate()
	}
}

func (e *envelope) Go() {
	e.Modulation.Go()
	if e.gated {
		e.out.Trigger()
		e.gated = false
	}
	e.step()
	e.out.Set(math.Max(0, math.Min(1, e.value*e.level.Value())))
}

func (e *envelope) step() {
	phaseTime := float64(e.phasePos) * 1000 / e.host.TicksPerSecond() // ms
	switch e.phase {
	case phaseAttack:
		if phaseTime >= e.attack.Value {
			e.phase = phaseDecay
			e.phasePos = 0
			e.value = 1
		} else {
			t := phaseTime / e.attack.Value
			e.value = t + (1-t)*e.valueAtNoteOn
			e.phasePos++
		}
	case phaseDecay:
		ended := e.decay.Value == 0
		if !ended {
			e.value = setTargetAtTime(1, e.sustain.Value, phaseTime/e.decay.Value)
			ended = math.Abs(e.value-e.sustain.Value) < 0.001
		}
		if ended {
			e.phase = phaseSustain
			e.phasePos = 0
			e.value = e.sustain.Value
		} else {
			e.phasePos++
		}
	case phaseSustain:
		e.value = e.sustain.Value
	case phaseRelease:
		ended := e.release.Value == 0
		if !ended {
			e.value = setTargetAtTime(e.valueAtNoteOff, 0, phaseTime/e.release.Value)
			ended = e.value < 0.001
		}
		if ended {
			e.phase = phaseNone
			e.phasePos = 0
			e.value = 0
		} else {
			e.phasePos++
		}
	default:
		e.value = 0
	}
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
