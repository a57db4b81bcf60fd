package sound

import (
	"math"
	"testing"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

var testTransport = Transport{SampleRate: 44100, TicksPerSecond: 44100.0 / 64}

func TestNoteToFreq(t *testing.T) {
	expectNearlyEqual(t, NoteToFreq(69), 440)
	expectNearlyEqual(t, NoteToFreq(60), 261.6256)
	expectNearlyEqual(t, NoteToFreq(81), 880)
}

func TestQueues(t *testing.T) {
	p := NewPool(3, testTransport)
	expectEqual(t, len(p.Off()), 3)
	v0 := p.Allocate(0)
	expectEqual(t, v0.Index(), 0)
	p.MarkOn(v0)
	v1 := p.Allocate(0)
	expectEqual(t, v1.Index(), 1)
	p.MarkOn(v1)
	expectEqual(t, p.On()[0], v1)
	expectEqual(t, v0.State(), Sounding)

	p.MarkOff(v0)
	expectEqual(t, v0.State(), Free)
	expectEqual(t, p.Off()[0], v0)
	expectEqual(t, len(p.On()), 1)

	// the voice freed longest ago goes first
	expectEqual(t, p.Allocate(0).Index(), 2)
}

func TestStealing(t *testing.T) {
	p := NewPool(2, testTransport)
	a := p.Allocate(0)
	p.MarkOn(a)
	b := p.Allocate(0)
	p.MarkOn(b)
	expectEqual(t, p.Allocate(0), a)
	p.Sustain(a)
	expectEqual(t, a.State(), Sustained)
	expectEqual(t, p.Allocate(0), a)
	p.ReleaseSustained()
	expectEqual(t, len(p.SustainedQueue()), 0)
	expectEqual(t, a.State(), Free)
}

func TestAssign(t *testing.T) {
	p := NewPool(8, testTransport)
	g := NewGroup(2)
	g.Voices = 3
	expectNoError(t, p.AddGroup(g))
	expectEqual(t, p.Groups[0].Voices, 5)
	count := 0
	for _, v := range p.Voices {
		if v.Group() == 1 {
			count++
		}
	}
	expectEqual(t, count, 3)
	expectEqual(t, p.Allocate(1).Group(), 1)

	expectEqual(t, p.RemoveGroup(0), ErrPrimaryGroup)
	expectNoError(t, p.RemoveGroup(1))
	expectEqual(t, p.Groups[0].Voices, 8)
}

func TestGroupValidate(t *testing.T) {
	g := NewGroup(ChannelOmni)
	expectNoError(t, g.Validate(0))
	if g.Validate(1) == nil {
		t.Errorf("omni should be rejected outside the primary group")
	}
	g = NewGroup(3)
	g.Min, g.Max = 70, 60
	if g.Validate(1) == nil {
		t.Errorf("min above max should be rejected")
	}
	g.Min, g.Max = 0, 128
	if g.Validate(1) == nil {
		t.Errorf("max out of range should be rejected")
	}
	if ValidateGroups(nil) == nil {
		t.Errorf("the primary group is required")
	}
}

func TestVoiceLoadAndGo(t *testing.T) {
	p := NewPool(2, testTransport)
	for _, name := range BuiltinNames() {
		expectNoError(t, p.SetPatch(0, Builtin(name)))
		v := p.Voices[0]
		expectEqual(t, v.Emitter() != nil, true)
		v.Assign(0, 60, 1)
		v.Gate()
		expectEqual(t, v.TakeReset(), true)
		expectEqual(t, v.TakeReset(), false)
		for i := 0; i < 20; i++ {
			v.Go()
		}
		e := v.Emits()
		if !e.Sorted() || !e.IsPermutation() {
			t.Errorf("%s: emitter output is not a sorted permutation", name)
		}
		sum := 0.0
		for _, a := range e.Amp {
			sum += a
		}
		if sum == 0 {
			t.Errorf("%s: expected sound", name)
		}
	}
}

func TestVoiceWithoutEmitterIsSilent(t *testing.T) {
	p := NewPool(1, testTransport)
	e := p.Voices[0].Emits()
	for _, a := range e.Amp {
		expectEqual(t, a, 0.0)
	}
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	l := NewLibrary(dir)
	names, err := l.List()
	expectNoError(t, err)
	expectEqual(t, len(names), len(BuiltinNames()))

	p, err := l.Load("bell")
	expectNoError(t, err)
	expectEqual(t, p.Emits, 5)
	expectNoError(t, l.Save("mine", p))

	l2 := NewLibrary(dir)
	names, err = l2.List()
	expectNoError(t, err)
	expectEqual(t, names[0], "mine")
	p2, err := l2.Load("mine")
	expectNoError(t, err)
	expectEqual(t, len(p2.Nodes), len(p.Nodes))

	_, err = l2.Load("missing")
	if err == nil {
		t.Errorf("expected an error")
	}
}
