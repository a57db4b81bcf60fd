package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
}

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	expectNoError(t, err)
	expectEqual(t, len(s.Keys()), 0)
	expectEqual(t, s.Int(Voices, 16), 16)
	expectEqual(t, s.Float(AudioGain, 0.5), 0.5)
	expectEqual(t, s.Bool(Mono, true), true)
	expectEqual(t, s.String(Patch, "init"), "init")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.yaml")
	s := New(path)
	s.Set(Voices, 24)
	s.Set(AudioGain, 0.25)
	s.Set(Mono, true)
	s.Set(MidiIn, "Keystation")
	expectNoError(t, s.Save())

	loaded, err := Load(path)
	expectNoError(t, err)
	expectEqual(t, loaded.Int(Voices, 0), 24)
	expectEqual(t, loaded.Float(AudioGain, 0), 0.25)
	expectEqual(t, loaded.Bool(Mono, false), true)
	expectEqual(t, loaded.String(MidiIn, ""), "Keystation")
	expectEqual(t, len(loaded.Keys()), 4)

	loaded.Delete(MidiIn)
	_, ok := loaded.Get(MidiIn)
	expectEqual(t, ok, false)
}

func TestUnparsableFallsBack(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "prefs.yaml"))
	s.Set(Voices, "many")
	s.Set(AudioGain, "loud")
	s.Set(Mono, "perhaps")
	expectEqual(t, s.Int(Voices, 8), 8)
	expectEqual(t, s.Float(AudioGain, 0.1), 0.1)
	expectEqual(t, s.Bool(Mono, false), false)
}

func TestHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	data := "voices: 12\naudio.gain: 0.3\nmono: yes\nmidi.in: \"Arturia\"\n"
	expectNoError(t, os.WriteFile(path, []byte(data), 0644))
	s, err := Load(path)
	expectNoError(t, err)
	expectEqual(t, s.Int(Voices, 0), 12)
	expectEqual(t, s.Float(AudioGain, 0), 0.3)
	expectEqual(t, s.String(MidiIn, ""), "Arturia")
}

func TestBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	expectNoError(t, os.WriteFile(path, []byte("voices: [1, 2\n"), 0644))
	if _, err := Load(path); err == nil {
		t.Errorf("expected an error")
	}
}
