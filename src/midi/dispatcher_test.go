package midi

import (
	"testing"

	"github.com/jinjor/partials/src/sound"
)

func expectAllFree(t *testing.T, pool *sound.Pool) {
	t.Helper()
	for _, v := range pool.Voices {
		if v.State() != sound.Free {
			t.Errorf("voice %d still %v on note %d", v.Index(), v.State(), v.Note())
		}
	}
	expectEqual(t, len(pool.On()), 0)
}

func TestMonoOnReleasesPolyNotes(t *testing.T) {
	d, pool := newTestDispatcher(4)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 100)
	expectEqual(t, len(pool.On()), 2)

	d.SetMono(true)
	d.NoteOff(0, 60, 0)
	d.NoteOff(0, 64, 0)
	expectAllFree(t, pool)
}

func TestMonoOnTakesOverPolyVoice(t *testing.T) {
	d, pool := newTestDispatcher(4)
	d.NoteOn(0, 60, 100)
	d.SetMono(true)
	d.NoteOn(0, 67, 100)
	v := pool.Voices[0]
	expectEqual(t, v.Note(), 67)
	expectEqual(t, len(pool.On()), 1)

	// the poly key no longer has a voice of its own
	d.NoteOff(0, 60, 0)
	expectEqual(t, v.State(), sound.Sounding)
	expectEqual(t, v.Note(), 67)

	d.NoteOff(0, 67, 0)
	expectAllFree(t, pool)
}

func TestMonoOffReleasesMonoVoice(t *testing.T) {
	d, pool := newTestDispatcher(4)
	d.SetMono(true)
	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 100)
	expectEqual(t, len(pool.On()), 1)

	d.SetMono(false)
	d.NoteOff(0, 64, 0)
	d.NoteOff(0, 60, 0)
	expectAllFree(t, pool)

	d.NoteOn(0, 60, 100)
	d.NoteOn(0, 64, 100)
	expectEqual(t, len(pool.On()), 2)
}

func TestMonoToggleWithSustain(t *testing.T) {
	d, pool := newTestDispatcher(4)
	d.ControlChange(0, 64, 127)
	d.NoteOn(0, 60, 100)
	d.SetMono(true)
	d.NoteOff(0, 60, 0)
	expectEqual(t, len(pool.SustainedQueue()), 1)
	d.ControlChange(0, 64, 0)
	expectAllFree(t, pool)
}
